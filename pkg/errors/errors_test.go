package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(InvalidTrace, "events out of order")
	require.Error(t, err)
	assert.Equal(t, "events out of order", err.Error())

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, InvalidTrace, e.Code())
}

func TestWrap(t *testing.T) {
	t.Run("WrapsOriginal", func(t *testing.T) {
		original := fmt.Errorf("disk full")
		err := Wrap(original, MemoryStoreFailed, "append failed")
		assert.Equal(t, "append failed: disk full", err.Error())
		assert.ErrorIs(t, err, original)
	})

	t.Run("NilReturnsNil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, Unknown, "ignored"))
	})
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(JudgeFailed, "invalid scores"), Fields{"attempt": 2})
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, JudgeFailed, e.Code())
	assert.Equal(t, 2, e.Fields()["attempt"])
	assert.Contains(t, err.Error(), "attempt=2")

	t.Run("MergesExistingFields", func(t *testing.T) {
		err := WithFields(err, Fields{"session": "s-1"})
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, 2, e.Fields()["attempt"])
		assert.Equal(t, "s-1", e.Fields()["session"])
	})

	t.Run("ForeignErrorGetsUnknownCode", func(t *testing.T) {
		err := WithFields(stderrors.New("boom"), Fields{"k": "v"})
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, Unknown, e.Code())
	})
}

func TestIs(t *testing.T) {
	err := New(Timeout, "judge call timed out")
	assert.True(t, stderrors.Is(err, New(Timeout, "other message")))
	assert.False(t, stderrors.Is(err, New(JudgeFailed, "other message")))
}

func TestCheckContext(t *testing.T) {
	t.Run("ActiveContext", func(t *testing.T) {
		assert.NoError(t, CheckContext(context.Background(), "judge"))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := CheckContext(ctx, "judge")
		require.Error(t, err)
		assert.Equal(t, Canceled, Code(err))
	})

	t.Run("ExpiredDeadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		<-ctx.Done()
		err := CheckContext(ctx, "judge")
		require.Error(t, err)
		assert.Equal(t, Timeout, Code(err))
	})
}
