package stages

import (
	"github.com/dmalone87/gatepipe/pipeline"
)

// RegisterBuiltins registers the arg-expressible stage factories so
// config-defined pipelines can reference them by name. Stages needing Go
// code (Transform, Filter, custom gates) are registered by the caller.
func RegisterBuiltins(reg *pipeline.Registry) {
	reg.Register("gate", func(args map[string]any) (pipeline.Stage, error) {
		prompt, err := stringArg(args, "prompt")
		if err != nil {
			return nil, err
		}
		return Gate(prompt), nil
	})
	reg.Register("headless-gate", func(args map[string]any) (pipeline.Stage, error) {
		prompt, err := stringArg(args, "prompt")
		if err != nil {
			return nil, err
		}
		return HeadlessGate(prompt), nil
	})
	reg.Register("triage", func(map[string]any) (pipeline.Stage, error) {
		return Triage(), nil
	})
	reg.Register("bucket-summary", func(map[string]any) (pipeline.Stage, error) {
		return BucketSummary(), nil
	})
	reg.Register("take", func(args map[string]any) (pipeline.Stage, error) {
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return Take(n), nil
	})
	reg.Register("select", func(args map[string]any) (pipeline.Stage, error) {
		fields, err := stringSliceArg(args, "fields")
		if err != nil {
			return nil, err
		}
		return SelectFields(fields...), nil
	})
}
