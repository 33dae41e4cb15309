package fetch

import (
	"errors"
	"fmt"
)

// NetworkError reports a request that could not complete: DNS, connection, timeout or cancellation.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error requesting %s: %s", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseError reports a completed request with a non-success status or a malformed payload.
type ResponseError struct {
	URL    string
	Status int // 0 when the status was fine but the body was not
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bad response from %s: status %d: %s", e.URL, e.Status, e.Err)
	}

	return fmt.Sprintf("bad response from %s: %s", e.URL, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// TransformError reports a payload whose fields are missing or have the wrong shape.
type TransformError struct {
	Source string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("unexpected %s data: %s", e.Source, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Kind names the class of a fetch cycle failure.
type Kind string

// Failure classes.
const (
	KindNetwork   Kind = "network"
	KindResponse  Kind = "response"
	KindTransform Kind = "transform"
)

// Classify returns the class of err; errors outside the taxonomy are reported as transform failures since they can
// only come from source specific decoding.
func Classify(err error) Kind {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return KindNetwork
	}

	var re *ResponseError
	if errors.As(err, &re) {
		return KindResponse
	}

	return KindTransform
}

// Errors returned.
var (
	ErrStatus    = errors.New("unexpected http status")
	ErrNotJSON   = errors.New("body is not valid JSON")
	ErrEmptyBody = errors.New("empty body")
)
