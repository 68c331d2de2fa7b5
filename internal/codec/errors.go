package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned for shape ids the layout text cannot carry.
var ErrInvalidID = errors.New("id must not start with '#' or ';' or contain ','")

// LayoutParseError reports input the parser cannot read at all. Individual
// malformed records never produce it; they are skipped.
type LayoutParseError struct {
	Line int
	Err  error
}

func (e *LayoutParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("layout parse: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("layout parse: %v", e.Err)
}

func (e *LayoutParseError) Unwrap() error { return e.Err }

// SerializationError wraps an I/O failure while writing layout text.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("layout write: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ValidateID reports whether a phase or detector id survives a round trip.
// Ids are written unquoted, so a leading comment marker or a comma would
// lose the record.
func ValidateID(id string) error {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "#") || strings.HasPrefix(id, ";") || strings.Contains(id, ",") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
