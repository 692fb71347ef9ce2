package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsThroughWrapping(t *testing.T) {
	base := New(CodeTaskNotFound, "task %d not found", 5)
	wrapped := fmt.Errorf("loading chart: %w", base)

	assert.True(t, Is(wrapped, CodeTaskNotFound))
	assert.False(t, Is(wrapped, CodeLinkNotFound))
	assert.Equal(t, "task 5 not found", UserMessage(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, cause, "update task")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal_error: update task: connection reset", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(CodeInvalidInput, "x"), http.StatusBadRequest},
		{New(CodeSelfLink, "x"), http.StatusBadRequest},
		{New(CodeProjectMismatch, "x"), http.StatusBadRequest},
		{New(CodeTypeNotAllowed, "x"), http.StatusBadRequest},
		{New(CodeTaskNotFound, "x"), http.StatusNotFound},
		{New(CodeLinkNotFound, "x"), http.StatusNotFound},
		{New(CodeForbidden, "x"), http.StatusForbidden},
		{New(CodeUnauthorized, "x"), http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestForeignErrorsAreHidden(t *testing.T) {
	err := errors.New("pq: password authentication failed")
	assert.Equal(t, CodeInternal, GetCode(err))
	assert.Equal(t, "internal error", UserMessage(err))
}
