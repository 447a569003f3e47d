package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks malformed input: bad hex, wrong-length digests, invalid curve points.
	ErrDecode = errors.New("decode error")
	// ErrTransport marks a failure talking to the beacon node.
	ErrTransport = errors.New("transport error")
	// ErrSchemaMismatch marks an object whose layout does not match the fork schema it was decoded with.
	// It is a decode failure: errors.Is(err, ErrDecode) holds for it.
	ErrSchemaMismatch = fmt.Errorf("%w: schema mismatch", ErrDecode)
	// ErrInvariant marks a data or logic bug, e.g. a Merkle branch that does not verify.
	ErrInvariant = errors.New("invariant violation")
)

// HTTPError is returned when the node answers with a non-200 status.
type HTTPError struct {
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API request %s failed with status %d: %s", e.Path, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return ErrTransport
}

func decodeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

func invariantErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
