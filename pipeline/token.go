package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// tokenVersion is bumped on incompatible payload changes so old tokens
// fail decoding explicitly instead of being misread.
const tokenVersion = 1

// HaltDescriptor records where and why a run paused. Indices are always
// absolute against the original full pipeline, even across chained halts.
// ResumeIndex is StageIndex+1: resumption continues with the next stage.
type HaltDescriptor struct {
	StageIndex  int    `json:"stage_index"`
	ResumeIndex int    `json:"resume_index"`
	Items       []Item `json:"items"`
	Prompt      string `json:"prompt,omitempty"`
}

// Continuation is the decoded form of an exhaustive resumption token: the
// halt descriptor plus the stage calls that have not yet run.
type Continuation struct {
	Halt      HaltDescriptor
	Remaining Pipeline
}

type tokenPayload struct {
	Version   int            `json:"v"`
	Halt      HaltDescriptor `json:"halt"`
	Remaining Pipeline       `json:"remaining,omitempty"`
}

// EncodeToken serializes a halt descriptor and the remaining stage calls
// into an opaque, URL-safe string. The token is an operational resumption
// handle, not a security boundary: it is neither signed nor encrypted, and
// anyone holding it can resume the run. The halt's pending items must be
// JSON-serializable.
func EncodeToken(halt HaltDescriptor, remaining Pipeline) (string, error) {
	data, err := json.Marshal(tokenPayload{
		Version:   tokenVersion,
		Halt:      halt,
		Remaining: remaining,
	})
	if err != nil {
		return "", fmt.Errorf("encode continuation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeToken decodes a token produced by EncodeToken. Every failure mode
// (bad base64, non-JSON payload, missing or unsupported version) returns a
// *InvalidTokenError; decoding never partially succeeds.
func DecodeToken(token string) (*Continuation, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, &InvalidTokenError{Reason: "transport decoding failed", Err: err}
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &InvalidTokenError{Reason: "payload is not valid JSON", Err: err}
	}
	if payload.Version == 0 {
		return nil, &InvalidTokenError{Reason: "missing version"}
	}
	if payload.Version != tokenVersion {
		return nil, &InvalidTokenError{Reason: fmt.Sprintf("unsupported version %d", payload.Version)}
	}
	return &Continuation{Halt: payload.Halt, Remaining: payload.Remaining}, nil
}
