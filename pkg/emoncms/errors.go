package emoncms

import (
	"fmt"
)

// TransportError reports a failed request: network errors, timeouts and
// non-200 responses.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("emoncms: GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("emoncms: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError reports a response body that is not a feed list.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("emoncms: invalid feed list: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("emoncms: invalid feed list: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
