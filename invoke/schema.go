package invoke

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validateOutput checks value against the output contract. It returns the
// validation messages (nil when the value conforms). A contract that does
// not compile is a configuration problem, reported as an error.
func validateOutput(schema map[string]any, value any) ([]string, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("contract.json", normalizeSchema(schema)); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("output contract: %v", err)}
	}
	compiled, err := compiler.Compile("contract.json")
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("output contract: %v", err)}
	}
	if err := compiled.Validate(value); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return leafMessages(ve), nil
		}
		return []string{err.Error()}, nil
	}
	return nil, nil
}

// normalizeSchema round-trips the contract through JSON so documents built
// from Go literals or YAML decode into the generic form the compiler
// expects (float64 numbers, map[string]any objects).
func normalizeSchema(schema map[string]any) any {
	data, err := json.Marshal(schema)
	if err != nil {
		return schema
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return schema
	}
	return generic
}

// leafMessages flattens a validation error tree into the most specific
// messages, the ones worth feeding back to the callee on retry.
func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		return []string{ve.Error()}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, leafMessages(cause)...)
	}
	return out
}
