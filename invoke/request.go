package invoke

import (
	"encoding/base64"

	"github.com/dmalone87/gatepipe/cachekey"
)

// Artifact is an attachment included with a call. Its content is hashed
// individually; only the hash participates in the call's cache key.
type Artifact struct {
	Name    string
	Content []byte
}

// Hash returns the artifact's content digest.
func (a Artifact) Hash() string {
	return cachekey.SumBytes(a.Content)
}

// Request describes one external call. Prompt and Model are required.
// RunKey, the retry override, and the bypass flags are operational and do
// not participate in the cache key.
type Request struct {
	Prompt    string
	Model     string
	Input     []any
	Metadata  map[string]any
	Artifacts []Artifact

	// OutputSchema is the optional output contract, a JSON Schema
	// document in decoded form. When set, the structured result is
	// validated against it and invalid results are retried with feedback.
	OutputSchema map[string]any

	// RunKey is the caller-chosen logical key for run-state persistence.
	// Empty means no run-state tier for this call.
	RunKey string

	// MaxValidationRetries overrides the client default when non-nil.
	MaxValidationRetries *int

	// Refresh bypasses both lookup tiers; the call is issued fresh.
	Refresh bool

	// DisableCache skips the content cache for both lookup and persist.
	DisableCache bool
}

func (r Request) validate() error {
	if r.Prompt == "" {
		return &ConfigError{Reason: "request prompt is required"}
	}
	if r.Model == "" {
		return &ConfigError{Reason: "request model is required"}
	}
	return nil
}

// cacheKey derives the content hash over the call's semantically relevant
// fields. Artifact hashes stand in for artifact content; metadata is
// canonicalized so key order never matters.
func (r Request) cacheKey(schemaVersion string) (string, error) {
	hashes := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		hashes = append(hashes, a.Hash())
	}
	return cachekey.Sum(map[string]any{
		"prompt":          r.Prompt,
		"model":           r.Model,
		"schema_version":  schemaVersion,
		"input":           r.Input,
		"metadata":        r.Metadata,
		"artifact_hashes": hashes,
		"output_schema":   r.OutputSchema,
	})
}

// payload builds the call body. Retry context (attempt number, prior
// validation errors) is attached from the second attempt on so the callee
// can self-correct.
func (r Request) payload(schemaVersion string, attempt int, priorErrors []string) map[string]any {
	p := map[string]any{
		"prompt":         r.Prompt,
		"model":          r.Model,
		"schema_version": schemaVersion,
	}
	if r.Input != nil {
		p["input"] = r.Input
	}
	if r.Metadata != nil {
		p["metadata"] = r.Metadata
	}
	if len(r.Artifacts) > 0 {
		arts := make([]map[string]any, 0, len(r.Artifacts))
		for _, a := range r.Artifacts {
			arts = append(arts, map[string]any{
				"name":    a.Name,
				"hash":    a.Hash(),
				"content": base64.StdEncoding.EncodeToString(a.Content),
			})
		}
		p["artifacts"] = arts
	}
	if r.OutputSchema != nil {
		p["output_schema"] = r.OutputSchema
	}
	if attempt > 1 {
		p["retry"] = map[string]any{
			"attempt":                 attempt,
			"prior_validation_errors": priorErrors,
		}
	}
	return p
}
