package warnings

import (
	"context"
	"errors"
	"fmt"
)

// ErrParse marks a feed document that could not be decoded.
var ErrParse = errors.New("malformed feed")

// FetchKind classifies why a refresh failed.
type FetchKind string

const (
	KindTransport FetchKind = "transport"
	KindTimeout   FetchKind = "timeout"
	KindStatus    FetchKind = "status"
	KindCircuit   FetchKind = "circuit"
	KindParse     FetchKind = "parse"
)

// FetchError is returned by Cache.Refresh for every failed refresh. Parse
// failures are a kind of FetchError and also match ErrParse.
type FetchError struct {
	Kind FetchKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// asFetchError classifies err, keeping an existing FetchError as is.
func asFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, ErrParse) {
		return &FetchError{Kind: KindParse, Err: err}
	}
	return &FetchError{Kind: KindTransport, Err: err}
}
