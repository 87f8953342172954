package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Observer provides pre/post hooks for pipeline and stage execution so
// runs can be logged or tracked. BeforePipeline is called before any stage
// runs; BeforeStage/AfterStage surround each stage's invocation;
// AfterPipeline is called once the run finishes, halts, or fails.
//
// Stage streams are lazy: AfterStage durations cover the stage invocation
// itself, and the cost of item production by lazy transforms is attributed
// to the downstream stage that pulls the items (ultimately the final
// collection).
type Observer interface {
	BeforePipeline(ctx context.Context, runID string, stageCount int, input []Item) error
	AfterPipeline(ctx context.Context, runID string, result *RunResult, err error) error
	BeforeStage(ctx context.Context, runID string, index int, name string) error
	AfterStage(ctx context.Context, runID string, index int, name string, stageErr error, duration time.Duration) error
}

// MultiObserver combines observers; hooks are called in order and the
// first error stops the chain.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) BeforePipeline(ctx context.Context, runID string, stageCount int, input []Item) error {
	for _, o := range m {
		if err := o.BeforePipeline(ctx, runID, stageCount, input); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterPipeline(ctx context.Context, runID string, result *RunResult, err error) error {
	for _, o := range m {
		if hookErr := o.AfterPipeline(ctx, runID, result, err); hookErr != nil {
			return hookErr
		}
	}
	return nil
}

func (m multiObserver) BeforeStage(ctx context.Context, runID string, index int, name string) error {
	for _, o := range m {
		if err := o.BeforeStage(ctx, runID, index, name); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterStage(ctx context.Context, runID string, index int, name string, stageErr error, duration time.Duration) error {
	for _, o := range m {
		if err := o.AfterStage(ctx, runID, index, name, stageErr, duration); err != nil {
			return err
		}
	}
	return nil
}

// LogObserver emits run and stage lifecycle events through slog.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver returns a LogObserver. A nil logger uses slog.Default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) BeforePipeline(ctx context.Context, runID string, stageCount int, input []Item) error {
	o.Logger.InfoContext(ctx, "pipeline started", "run_id", runID, "stages", stageCount, "input_items", len(input))
	return nil
}

func (o *LogObserver) AfterPipeline(ctx context.Context, runID string, result *RunResult, err error) error {
	switch {
	case err != nil:
		o.Logger.ErrorContext(ctx, "pipeline failed", "run_id", runID, "error", err)
	case result != nil && result.Halted:
		o.Logger.InfoContext(ctx, "pipeline halted", "run_id", runID, "resume_index", result.Halt.ResumeIndex, "prompt", result.Halt.Prompt)
	default:
		o.Logger.InfoContext(ctx, "pipeline completed", "run_id", runID)
	}
	return nil
}

func (o *LogObserver) BeforeStage(ctx context.Context, runID string, index int, name string) error {
	o.Logger.DebugContext(ctx, "stage started", "run_id", runID, "stage", index, "name", name)
	return nil
}

func (o *LogObserver) AfterStage(ctx context.Context, runID string, index int, name string, stageErr error, duration time.Duration) error {
	if stageErr != nil {
		o.Logger.ErrorContext(ctx, "stage failed", "run_id", runID, "stage", index, "name", name, "duration", duration, "error", stageErr)
		return nil
	}
	o.Logger.DebugContext(ctx, "stage finished", "run_id", runID, "stage", index, "name", name, "duration", duration)
	return nil
}
