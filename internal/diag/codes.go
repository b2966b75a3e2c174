package diag

import (
	"fmt"
)

// Code classifies a fatal code generation failure.
type Code uint16

const (
	// UnknownCode is reserved for errors that were not classified.
	UnknownCode Code = 0

	// UnsupportedType: a data type has no C spelling (bad width, bad lane
	// count, vector handle).
	UnsupportedType Code = 1001
	// MalformedCall: a builtin call has arguments that violate its shape.
	MalformedCall Code = 1002
	// StructuralViolation: the function set cannot be emitted as given
	// (abstract function, duplicate entry, duplicate name).
	StructuralViolation Code = 1003
	// ConfigConflict: the target configuration is self-contradictory.
	ConfigConflict Code = 1004
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	UnsupportedType:     "Unsupported type",
	MalformedCall:       "Malformed call",
	StructuralViolation: "Structural violation",
	ConfigConflict:      "Configuration conflict",
}

// ID returns the stable short identifier, for example "GEN1001".
func (c Code) ID() string {
	if c == UnknownCode {
		return "E0000"
	}
	return fmt.Sprintf("GEN%04d", int(c))
}

// Title returns the human readable category name.
func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Error lets a bare Code be used as an errors.Is target.
func (c Code) Error() string {
	return c.String()
}
