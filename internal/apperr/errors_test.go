package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("nil error has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(nil))
	})

	t.Run("plain error is unknown", func(t *testing.T) {
		assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
	})

	t.Run("wrapped app error keeps its code", func(t *testing.T) {
		err := fmt.Errorf("load messages: %w", NotFound("conversation not found"))
		assert.Equal(t, CodeNotFound, CodeOf(err))
		assert.True(t, Is(err, CodeNotFound))
		assert.False(t, Is(err, CodeInternal))
	})
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("server unreachable", cause)

	assert.Equal(t, "server unreachable: connection refused", err.Error())
	assert.Equal(t, "server unreachable", UserMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
