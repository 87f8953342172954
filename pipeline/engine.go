package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Engine drives pipelines against a stage registry. It is the only
// component callers invoke directly; one Engine can serve many runs.
type Engine struct {
	reg *Registry
}

// NewEngine returns an engine resolving stage names against reg.
func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg}
}

// RunOptions attaches an Observer and optional RunID to a run. If
// Observer is set and RunID is empty, a new UUID is generated. StageOffset
// is added to each stage index (Resume sets it to the token's resume index
// so halt descriptors and observer hooks keep absolute indices).
type RunOptions struct {
	Observer    Observer
	RunID       string
	StageOffset int
}

// RunResult is the outcome of one Run or Resume invocation. Exactly one of
// three shapes applies: completed (Items set), halted (Halted true, Halt
// and Token set), or cancelled (Cancelled true, from an unapproved
// Resume). Errors are returned separately and never alongside a result.
type RunResult struct {
	Items     []Item
	Halted    bool
	Halt      *HaltDescriptor
	Token     string
	Cancelled bool
}

// Run resolves and executes the pipeline with the given initial items.
// Resolution happens up front: an unregistered stage name fails with
// *UnknownStageError before any stage executes. If a stage halts, the
// returned result carries the halt descriptor and a continuation token
// encoding it together with the remaining stage calls.
func (e *Engine) Run(ctx context.Context, pl Pipeline, initial []Item, ec *ExecContext, opts *RunOptions) (*RunResult, error) {
	if ec == nil {
		ec = &ExecContext{}
	}
	if ec.Registry == nil {
		ec.Registry = e.reg
	}
	if ec.Logger == nil {
		ec.Logger = slog.Default()
	}
	stages := make([]Stage, len(pl))
	for i, call := range pl {
		s, err := e.reg.Resolve(call)
		if err != nil {
			return nil, err
		}
		stages[i] = s
	}

	if opts == nil || opts.Observer == nil {
		offset := 0
		if opts != nil {
			offset = opts.StageOffset
		}
		return e.compose(ctx, pl, stages, initial, ec, nil, "", offset)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	obs := opts.Observer
	if err := obs.BeforePipeline(ctx, runID, len(pl), initial); err != nil {
		return nil, fmt.Errorf("before pipeline: %w", err)
	}
	result, err := e.compose(ctx, pl, stages, initial, ec, obs, runID, opts.StageOffset)
	if postErr := obs.AfterPipeline(ctx, runID, result, err); postErr != nil {
		// Don't mask the pipeline error.
		if err == nil {
			err = fmt.Errorf("after pipeline: %w", postErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Resume decodes a continuation token and either cancels or re-enters the
// pipeline at the token's resume index with the pending items as input.
//
// With approved=false the result is Cancelled with empty output and no
// stage executes; calling it again with the same token yields the same
// result. Tokens are not single-use: resuming the same token twice is
// allowed and re-runs the remaining stages with identical inputs. Guarding
// against double approval, where it matters, belongs to the caller.
func (e *Engine) Resume(ctx context.Context, token string, approved bool, ec *ExecContext, opts *RunOptions) (*RunResult, error) {
	cont, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if !approved {
		return &RunResult{Items: []Item{}, Cancelled: true}, nil
	}
	var o RunOptions
	if opts != nil {
		o = *opts
	}
	o.StageOffset = cont.Halt.ResumeIndex
	return e.Run(ctx, cont.Remaining, cont.Halt.Items, ec, &o)
}

// compose chains the stages: stage i's output stream is stage i+1's input.
// If a stage halts, later stages never execute. Stage indices reported in
// errors, halt descriptors, and observer hooks are offset to absolute
// positions in the original pipeline.
func (e *Engine) compose(ctx context.Context, pl Pipeline, stages []Stage, initial []Item, ec *ExecContext, obs Observer, runID string, offset int) (*RunResult, error) {
	in := FromItems(initial...)
	for i, stage := range stages {
		abs := i + offset
		name := pl[i].Name
		if obs != nil {
			if err := obs.BeforeStage(ctx, runID, abs, name); err != nil {
				return nil, fmt.Errorf("before stage %d: %w", abs, err)
			}
		}
		start := time.Now()
		res, stageErr := stage.Run(ctx, ec, in)
		if obs != nil {
			if postErr := obs.AfterStage(ctx, runID, abs, name, stageErr, time.Since(start)); postErr != nil {
				if stageErr == nil {
					stageErr = fmt.Errorf("after stage: %w", postErr)
				}
			}
		}
		if stageErr != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", abs, name, stageErr)
		}
		if res.Halt != nil {
			halt := &HaltDescriptor{
				StageIndex:  abs,
				ResumeIndex: abs + 1,
				Items:       res.Halt.Items,
				Prompt:      res.Halt.Prompt,
			}
			ec.logger().Debug("pipeline halting", "stage", abs, "name", name, "pending_items", len(halt.Items))
			token, err := EncodeToken(*halt, pl[i+1:])
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", abs, name, err)
			}
			return &RunResult{Halted: true, Halt: halt, Token: token}, nil
		}
		in = tagStream(res.Out, abs, name)
	}
	items, err := Collect(in)
	if err != nil {
		return nil, err
	}
	return &RunResult{Items: items}, nil
}

// tagStream annotates errors surfacing from a stage's lazy output with the
// stage's absolute index, so failures during downstream consumption still
// name the stage that produced them.
func tagStream(s Stream, index int, name string) Stream {
	if s == nil {
		return FromItems()
	}
	return func(yield func(Item, error) bool) {
		for it, err := range s {
			if err != nil {
				err = fmt.Errorf("stage %d (%s): %w", index, name, err)
			}
			if !yield(it, err) {
				return
			}
		}
	}
}
