package invoke

import (
	"encoding/json"
	"fmt"
)

// Provenance tags where a result came from.
type Provenance string

const (
	ProvenanceRemote   Provenance = "remote"
	ProvenanceCache    Provenance = "cache"
	ProvenanceRunState Provenance = "run_state"
)

// Result is the canonical invocation result, identical in shape regardless
// of which transport (or store tier) produced it.
type Result struct {
	CallID      string         `json:"call_id,omitempty"`
	Model       string         `json:"model,omitempty"`
	Status      string         `json:"status"`
	Output      any            `json:"output,omitempty"`
	Text        string         `json:"text,omitempty"`
	Usage       map[string]any `json:"usage,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
	Provenance  Provenance     `json:"provenance"`
	Cached      bool           `json:"cached"`
	Attempts    int            `json:"attempts"`
}

// normalizeResult maps a transport's result object onto the canonical
// shape. Unknown fields are dropped; missing status defaults to "ok".
func normalizeResult(obj map[string]any, attempts int) *Result {
	r := &Result{
		Status:     "ok",
		Provenance: ProvenanceRemote,
		Attempts:   attempts,
	}
	for _, key := range []string{"call_id", "run_id", "id"} {
		if s, ok := obj[key].(string); ok && s != "" {
			r.CallID = s
			break
		}
	}
	if s, ok := obj["model"].(string); ok {
		r.Model = s
	}
	if s, ok := obj["status"].(string); ok && s != "" {
		r.Status = s
	}
	if v, ok := obj["output"]; ok {
		r.Output = v
	}
	for _, key := range []string{"text", "content"} {
		if s, ok := obj[key].(string); ok && s != "" {
			r.Text = s
			break
		}
	}
	if m, ok := obj["usage"].(map[string]any); ok {
		r.Usage = m
	}
	r.Warnings = stringList(obj["warnings"])
	r.Diagnostics = stringList(obj["diagnostics"])
	return r
}

// structured returns the value the output contract is validated against:
// the structured output when present, otherwise the text parsed as JSON.
func (r *Result) structured() any {
	if r.Output != nil {
		return r.Output
	}
	if r.Text != "" {
		var parsed any
		if err := json.Unmarshal([]byte(r.Text), &parsed); err == nil {
			return parsed
		}
	}
	return nil
}

// asItems serializes the result into the items slice persisted by both
// store tiers.
func (r *Result) asItems() ([]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("invoke: encode result: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("invoke: encode result: %w", err)
	}
	return []any{generic}, nil
}

// resultFromItems rebuilds a Result from persisted items, restamping
// provenance for the tier it was read from.
func resultFromItems(items []any, provenance Provenance) (*Result, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("invoke: stored record has no items")
	}
	data, err := json.Marshal(items[0])
	if err != nil {
		return nil, fmt.Errorf("invoke: decode stored result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invoke: decode stored result: %w", err)
	}
	r.Provenance = provenance
	r.Cached = true
	return &r, nil
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
