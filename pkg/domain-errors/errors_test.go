package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeUnauthorized, "caller is not the principal")
		assert.True(t, HasCode(err, CodeUnauthorized))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		err := fmt.Errorf("deposit: %w", New(CodeInsufficientBalance, "balance too low"))
		assert.True(t, HasCode(err, CodeInsufficientBalance))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "missing")
		err := Wrap(inner, CodeInternal, "load failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))

	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "failed to commit")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to commit: disk full", err.Error())
}
