// Package naming checks candidate file and folder names before they are sent
// to the server.
package naming

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Reason identifies why a name was rejected
type Reason int

const (
	ReasonEmpty Reason = iota + 1
	ReasonExists
	ReasonTrailingSpace
	ReasonTrailingPeriod
	ReasonInvalidChar
	ReasonReserved
)

// invalidChars may not appear anywhere in a name
const invalidChars = "<>:\"/\\|?*\x00"

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Message returns the user-facing text for a reason
func (r Reason) Message() string {
	switch r {
	case ReasonEmpty:
		return "Name cannot be empty"
	case ReasonExists:
		return "An item with this name already exists"
	case ReasonTrailingSpace:
		return "Name cannot end with a space"
	case ReasonTrailingPeriod:
		return "Name cannot end with a period"
	case ReasonInvalidChar:
		return `Name cannot contain any of < > : " / \ | ? *`
	case ReasonReserved:
		return "Name is reserved by the operating system"
	default:
		return "Invalid name"
	}
}

// ValidationError is returned for names rejected locally
type ValidationError struct {
	Name   string
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason.Message())
}

// Validate checks name against naming rules and the names already present in
// the target directory. The existence check is an exact, case-sensitive match.
func Validate(name string, existing []string) error {
	if name == "" {
		return &ValidationError{Name: name, Reason: ReasonEmpty}
	}
	if slices.Contains(existing, name) {
		return &ValidationError{Name: name, Reason: ReasonExists}
	}
	return ValidateSyntax(name)
}

// ValidateSyntax applies every rule except the existence check
func ValidateSyntax(name string) error {
	if name == "" {
		return &ValidationError{Name: name, Reason: ReasonEmpty}
	}
	if strings.HasSuffix(name, " ") {
		return &ValidationError{Name: name, Reason: ReasonTrailingSpace}
	}
	if strings.HasSuffix(name, ".") {
		return &ValidationError{Name: name, Reason: ReasonTrailingPeriod}
	}
	if strings.ContainsAny(name, invalidChars) {
		return &ValidationError{Name: name, Reason: ReasonInvalidChar}
	}
	stem, _, _ := strings.Cut(name, ".")
	if reservedNames[strings.ToUpper(stem)] {
		return &ValidationError{Name: name, Reason: ReasonReserved}
	}
	return nil
}

// ReasonOf extracts the rejection reason, or 0 when err is not a ValidationError
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return 0
}
