package blob

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated is matched by every TruncatedError.
	ErrTruncated = errors.New("blob: truncated")
	// ErrUninhabited is returned when validating a type with no valid values.
	ErrUninhabited = errors.New("blob: uninhabited type")
	// ErrTooLarge is returned when metadata implies a length that overflows int.
	ErrTooLarge = errors.New("blob: length overflows")
)

// TruncatedError reports a slice shorter than its type requires.
type TruncatedError struct {
	Want int
	Got  int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("blob: truncated: want %d bytes, got %d", e.Want, e.Got)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

// BoolError reports a bool byte other than 0 or 1.
type BoolError struct {
	Value byte
}

func (e *BoolError) Error() string {
	return fmt.Sprintf("blob: invalid bool byte 0x%02x", e.Value)
}

// NonZeroError reports an all-zero encoding of a non-zero integer.
type NonZeroError struct {
	Size int
}

func (e *NonZeroError) Error() string {
	return fmt.Sprintf("blob: zero value for %d-byte non-zero integer", e.Size)
}

// DiscriminantError reports an unknown enum tag.
type DiscriminantError struct {
	Value byte
}

func (e *DiscriminantError) Error() string {
	return fmt.Sprintf("blob: invalid discriminant 0x%02x", e.Value)
}

// PaddingError reports a non-zero byte where the layout requires zero.
type PaddingError struct {
	Offset int
	Value  byte
}

func (e *PaddingError) Error() string {
	return fmt.Sprintf("blob: non-zero padding byte 0x%02x at offset %d", e.Value, e.Offset)
}

// FieldError wraps a validation failure of one field of a composite value.
type FieldError struct {
	Index  int
	Offset int
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("blob: field %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// checkPadding returns a PaddingError for the first non-zero byte of b.
// base is added to the reported offset.
func checkPadding(b []byte, base int) error {
	for i, c := range b {
		if c != 0 {
			return &PaddingError{Offset: base + i, Value: c}
		}
	}
	return nil
}
