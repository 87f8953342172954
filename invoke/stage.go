package invoke

import (
	"context"

	"github.com/dmalone87/gatepipe/pipeline"
)

// CallStage returns the external-call pipeline stage. It buffers the
// input items into the request's Input (they participate in the cache
// key), performs the validated invocation, and emits the result's output:
// each element when the output is a list, otherwise the canonical result
// record as a single item.
func CallStage(client *Client, base Request) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		items, err := pipeline.Collect(in)
		if err != nil {
			return pipeline.StageResult{}, err
		}
		req := base
		if len(items) > 0 {
			req.Input = items
		}
		res, err := client.Do(ctx, req)
		if err != nil {
			return pipeline.StageResult{}, err
		}
		if list, ok := res.Output.([]any); ok {
			return pipeline.StageResult{Out: pipeline.FromItems(list...)}, nil
		}
		items2, err := res.asItems()
		if err != nil {
			return pipeline.StageResult{}, err
		}
		return pipeline.StageResult{Out: pipeline.FromItems(items2...)}, nil
	})
}
