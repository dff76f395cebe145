package detectclient

import "fmt"

// RemoteServiceError reports a failed exchange with the classification
// service: a non-2xx status or a transport failure before any status
// was received (StatusCode 0).
type RemoteServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *RemoteServiceError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("remote service unreachable: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("remote service returned status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("remote service returned status %d", e.StatusCode)
	}
}

// Unwrap returns the underlying transport error, if any.
func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a response body that could not be
// interpreted even after the fallback derivation rules.
type MalformedResponseError struct {
	Err error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed detection response: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
