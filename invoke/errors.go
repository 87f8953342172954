package invoke

import (
	"fmt"
	"strings"
)

// ConfigError reports unusable invocation configuration: no transport
// endpoint, or a required request field missing.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invoke: configuration error: " + e.Reason
}

// TransportError reports a non-success HTTP status or an unreadable
// response body. Transport failures are never retried automatically.
type TransportError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoke: transport %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("invoke: transport %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EnvelopeError reports a response that parsed as JSON but does not match
// the expected envelope shape.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return "invoke: invalid response envelope: " + e.Reason
}

// RemoteError reports an envelope that explicitly signals failure (ok
// false, or an error field set).
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "invoke: remote error: " + e.Message
}

// SchemaValidationError reports that the structured result never satisfied
// the caller's output contract within the retry bound. Errors holds the
// last attempt's validation messages.
type SchemaValidationError struct {
	Attempts int
	Errors   []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invoke: output contract not satisfied after %d attempt(s): %s",
		e.Attempts, strings.Join(e.Errors, "; "))
}
