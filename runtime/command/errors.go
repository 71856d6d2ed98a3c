package command

import (
	"errors"
	"fmt"
)

// UnknownCommandError is returned when no command is registered under a
// name.
type UnknownCommandError struct {
	Name       string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.Name)
}

// InputError is a ParseInput rejection: a missing keyword, a wrong argument
// count or a value of the wrong type.
type InputError struct {
	Command string
	Message string
}

func (e *InputError) Error() string {
	return e.Command + ": " + e.Message
}

// Inputf builds an InputError.
func Inputf(command, format string, args ...any) *InputError {
	return &InputError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// ErrRemoved is wrapped when a command is past its removal version.
var ErrRemoved = errors.New("command removed")

// Error locates a dispatch failure at its command node.
type Error struct {
	Command string
	Line    int
	Column  int
	Err     error
}

func (e *Error) Error() string {
	if in, ok := e.Err.(*InputError); ok && in.Command == e.Command {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Command, in.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %v", e.Line, e.Column, e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
