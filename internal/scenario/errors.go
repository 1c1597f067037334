package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is returned when a builder is missing a required field.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidScenario is returned when a scenario fails validation.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// ExpectedError describes an error an operation is expected to fail with.
//
// Err, when set, must match the actual error under errors.Is. Message, when
// set, must be a substring of the actual error text. The zero value expects
// no error.
type ExpectedError struct {
	Err     error
	Message string
}

// IsSet reports whether an error is expected.
func (e ExpectedError) IsSet() bool {
	return e.Err != nil || e.Message != ""
}

// Matches reports whether err satisfies the expectation.
// A nil err never matches a set expectation.
func (e ExpectedError) Matches(err error) bool {
	if !e.IsSet() {
		return err == nil
	}
	if err == nil {
		return false
	}
	if e.Err != nil && !errors.Is(err, e.Err) {
		return false
	}
	return strings.Contains(err.Error(), e.Message)
}

// String describes the expectation.
func (e ExpectedError) String() string {
	switch {
	case !e.IsSet():
		return "no error"
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("error matching %q containing %q", e.Err, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("error matching %q", e.Err)
	default:
		return fmt.Sprintf("error containing %q", e.Message)
	}
}
