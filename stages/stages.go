// Package stages provides the stage variants pipelines are built from:
// sources, item-by-item transforms, aggregations, gates, and the external
// call stage in package invoke. Constructors return pipeline.Stage values;
// RegisterBuiltins wires the arg-expressible ones into a registry for
// config-driven pipelines.
package stages

import (
	"context"
	"fmt"

	"github.com/dmalone87/gatepipe/pipeline"
)

// Source returns a stage that ignores its input and emits the given items.
func Source(items ...pipeline.Item) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, _ pipeline.Stream) (pipeline.StageResult, error) {
		return pipeline.StageResult{Out: pipeline.FromItems(items...)}, nil
	})
}

// Transform returns a stage that converts items one at a time. The output
// stream is lazy: convert runs only as downstream stages pull items.
func Transform(convert func(ctx context.Context, item pipeline.Item) (pipeline.Item, error)) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		out := func(yield func(pipeline.Item, error) bool) {
			for it, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				next, convErr := convert(ctx, it)
				if convErr != nil {
					yield(nil, convErr)
					return
				}
				if !yield(next, nil) {
					return
				}
			}
		}
		return pipeline.StageResult{Out: out}, nil
	})
}

// Filter returns a stage that keeps only items for which keep is true.
func Filter(keep func(item pipeline.Item) bool) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		out := func(yield func(pipeline.Item, error) bool) {
			for it, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				if !keep(it) {
					continue
				}
				if !yield(it, nil) {
					return
				}
			}
		}
		return pipeline.StageResult{Out: out}, nil
	})
}

// Tap returns a stage that calls fn for each item and passes it through
// unchanged. Use for logging or metrics without changing the stream.
func Tap(fn func(ctx context.Context, item pipeline.Item)) pipeline.Stage {
	return Transform(func(ctx context.Context, it pipeline.Item) (pipeline.Item, error) {
		fn(ctx, it)
		return it, nil
	})
}

// Aggregate returns a stage that buffers its entire input before producing
// anything. Use for grouping, sorting, or summaries.
func Aggregate(fn func(ctx context.Context, items []pipeline.Item) ([]pipeline.Item, error)) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		items, err := pipeline.Collect(in)
		if err != nil {
			return pipeline.StageResult{}, err
		}
		out, err := fn(ctx, items)
		if err != nil {
			return pipeline.StageResult{}, err
		}
		return pipeline.StageResult{Out: pipeline.FromItems(out...)}, nil
	})
}

// Take returns a stage that passes through at most n items.
func Take(n int) pipeline.Stage {
	return pipeline.StageFunc(func(ctx context.Context, ec *pipeline.ExecContext, in pipeline.Stream) (pipeline.StageResult, error) {
		out := func(yield func(pipeline.Item, error) bool) {
			seen := 0
			for it, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				if seen >= n {
					return
				}
				seen++
				if !yield(it, nil) {
					return
				}
			}
		}
		return pipeline.StageResult{Out: out}, nil
	})
}

// SelectFields returns a stage that projects map items down to the given
// fields. Non-map items pass through unchanged.
func SelectFields(fields ...string) pipeline.Stage {
	return Transform(func(ctx context.Context, it pipeline.Item) (pipeline.Item, error) {
		rec, ok := it.(map[string]any)
		if !ok {
			return it, nil
		}
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, has := rec[f]; has {
				out[f] = v
			}
		}
		return out, nil
	})
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing %q argument", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q argument must be a string, got %T", key, v)
	}
	return s, nil
}

// intArg accepts the numeric types YAML and JSON decoding produce.
func intArg(args map[string]any, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing %q argument", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%q argument must be an integer, got %T", key, v)
	}
}

func stringSliceArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("missing %q argument", key)
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("%q argument must be a list of strings, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%q argument must contain only strings, got %T", key, e)
		}
		out = append(out, s)
	}
	return out, nil
}
