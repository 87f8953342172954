package pipeline

import "fmt"

// UnknownStageError reports a stage name with no registration. The Engine
// fails resolution before any stage executes.
type UnknownStageError struct {
	Name string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Name)
}

// InvalidTokenError reports a continuation token that could not be
// decoded: malformed transport encoding, non-JSON payload, or a missing or
// unsupported version. Decoding is all-or-nothing; every decode failure is
// reported through this one type.
type InvalidTokenError struct {
	Reason string
	Err    error
}

func (e *InvalidTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid continuation token: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid continuation token: %s", e.Reason)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }
