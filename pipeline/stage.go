package pipeline

import (
	"context"
	"log/slog"
)

// Stage is a single step in a pipeline. It receives the previous stage's
// output stream (or the run's initial items) and returns the stream for
// the next stage, optionally requesting a halt.
//
// A stage may consume its input lazily (transforms), fully (aggregations
// and gates), or not at all (sources). Side effects are stage-specific;
// the contract imposes none. Failure is signalled by returning an error,
// either from Run directly or through the output stream; the Engine does
// not retry, errors terminate the run.
type Stage interface {
	Run(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error)

// Run implements Stage.
func (f StageFunc) Run(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
	return f(ctx, ec, in)
}

// StageResult is a stage's output: a lazy stream plus an optional halt
// request. When Halt is non-nil, Out is ignored and the Engine pauses the
// run after this stage.
type StageResult struct {
	Out  Stream
	Halt *Halt
}

// Halt is a stage's request to pause the run pending external approval.
// Items are the pending items carried across the pause; they become the
// input of the next stage when the run is resumed. Items must be
// JSON-serializable so the halt can be encoded into a continuation token.
type Halt struct {
	Prompt string
	Items  []Item
}

// StageCall names one stage invocation in a pipeline: a registered stage
// name plus its arguments.
type StageCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Pipeline is an ordered list of stage calls. The Engine treats it as an
// immutable input resolved against the Registry at run time; it is
// typically produced by a parser or config layer.
type Pipeline []StageCall

// ExecContext carries ambient, read-mostly values into every stage. No
// stage may mutate it for another stage's benefit; cross-stage
// communication happens only through the item stream or the state store.
type ExecContext struct {
	// Env holds environment values visible to stages.
	Env map[string]string

	// WorkDir is the working directory for stages that touch the filesystem.
	WorkDir string

	// Interactive distinguishes interactive from headless execution. Gate
	// stages may consult it when deciding whether to halt.
	Interactive bool

	// Registry is the stage registry the run was resolved against.
	Registry *Registry

	// Logger is never nil after the Engine has seen the context.
	Logger *slog.Logger
}

func (ec *ExecContext) logger() *slog.Logger {
	if ec == nil || ec.Logger == nil {
		return slog.Default()
	}
	return ec.Logger
}
