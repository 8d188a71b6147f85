package errors

import "fmt"

// CommandError is returned by CLI commands and carries the process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
	Err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err with an exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Err:         err,
	}
}

// NewCommandErrorf formats a message and wraps it with an exit code.
func NewCommandErrorf(code int, format string, args ...any) *CommandError {
	return NewCommandError(fmt.Errorf(format, args...), code)
}
