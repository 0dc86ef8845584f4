package script

import (
	"errors"
	"fmt"
)

// Errors for script execution.
var (
	// ErrNoDocument is raised when a script uses doc without an editor attached.
	ErrNoDocument = errors.New("no JSON document attached")

	// ErrTimeout is returned when a script runs past its timeout.
	ErrTimeout = errors.New("script timed out")
)

// Error reports a failed script run.
type Error struct {
	// Script is the name or path of the script.
	Script string
	// Message is the Lua error message.
	Message string
	// Err is the Go error that was raised into Lua, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %s", e.Script, e.Message)
}

// Unwrap returns the underlying Go error.
func (e *Error) Unwrap() error {
	return e.Err
}
