package stages

import (
	"context"

	"github.com/dmalone87/gatepipe/pipeline"
)

// Gate returns a stage that always halts the pipeline pending external
// approval. The gate buffers its entire input; the buffered items become
// the halt's pending items and flow into the next stage on approval.
func Gate(prompt string) pipeline.Stage {
	return GateIf(prompt, func(*pipeline.ExecContext, []pipeline.Item) bool { return true })
}

// GateIf returns a gate that halts only when decide returns true. decide
// may consult the execution context (e.g. halt in headless mode only) and
// the buffered items. When decide returns false, the items pass through
// unchanged.
func GateIf(prompt string, decide func(ec *pipeline.ExecContext, items []pipeline.Item) bool) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		items, err := pipeline.Collect(in)
		if err != nil {
			return pipeline.StageResult{}, err
		}
		if decide(ec, items) {
			return pipeline.StageResult{Halt: &pipeline.Halt{Prompt: prompt, Items: items}}, nil
		}
		return pipeline.StageResult{Out: pipeline.FromItems(items...)}, nil
	})
}

// HeadlessGate halts only in headless execution; interactive runs pass
// through, assuming the operator is present to supervise.
func HeadlessGate(prompt string) pipeline.Stage {
	return GateIf(prompt, func(ec *pipeline.ExecContext, _ []pipeline.Item) bool {
		return ec == nil || !ec.Interactive
	})
}
