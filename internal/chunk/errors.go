package chunk

import (
	"errors"
	"fmt"
)

// Error kinds shared by the manifest and resource table editors. Callers
// match them with errors.Is; the wrapped message carries the detail.
var (
	// ErrMalformed is returned when the input violates the binary format.
	ErrMalformed = errors.New("malformed input")

	// ErrAttributeNotFound is returned when a lookup rule finds no match.
	ErrAttributeNotFound = errors.New("attribute not found")

	// ErrValueTooLong is returned when a value exceeds what its field or
	// encoding can hold.
	ErrValueTooLong = errors.New("value too long")

	// ErrInvalidValue is returned for values the format cannot carry.
	ErrInvalidValue = errors.New("invalid value")

	// ErrTypeMismatch is returned when an edit targets an attribute of the
	// wrong value type.
	ErrTypeMismatch = errors.New("attribute type mismatch")

	// ErrFinalized is returned when a serialized document is edited again.
	ErrFinalized = errors.New("document already serialized")
)

// Malformedf returns an ErrMalformed error with a formatted detail.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
