package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandError(t *testing.T) {
	err := NewCommandErrorf(2, "refresh failed: %w", io.EOF)
	assert.Equal(t, 2, err.ExitCode)
	assert.Equal(t, "refresh failed: EOF", err.Error())
	assert.True(t, stderrors.Is(err, io.EOF))

	var cmdErr *CommandError
	wrapped := error(NewCommandError(io.ErrUnexpectedEOF, 1))
	assert.True(t, stderrors.As(wrapped, &cmdErr))
	assert.Equal(t, 1, cmdErr.ExitCode)
}
