package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("whatever"), KindUnknown},
		{"not found", ErrNotFound, KindNotFound},
		{"validation", ErrValidation, KindValidation},
		{"action failed", ErrActionFailed, KindActionFailed},
		{"timeout", ErrTimeout, KindTimeout},
		{"internal", ErrInternal, KindInternal},
		{"dependency", ErrDependencyFailure, KindDependencyFailure},
		{"canceled", context.Canceled, KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped", fmt.Errorf("outer: %w", ErrActionFailed), KindActionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMarkKind(t *testing.T) {
	base := errors.New("trigger exploded")
	marked := MarkKind(base, KindActionFailed)

	assert.Equal(t, KindActionFailed, KindOf(marked))
	require.ErrorIs(t, marked, base)
	require.ErrorIs(t, marked, ErrActionFailed)

	// Idempotent: marking again does not double wrap.
	again := MarkKind(marked, KindActionFailed)
	assert.Equal(t, marked, again)
}

func TestMarkKind_NilAndSpecialKinds(t *testing.T) {
	assert.Equal(t, ErrTimeout, MarkKind(nil, KindTimeout))

	base := errors.New("plain")
	assert.Equal(t, base, MarkKind(base, KindUnknown))
	assert.Equal(t, base, MarkKind(base, KindCanceled))
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	wrapped := Wrap(base, "loading config")
	require.ErrorIs(t, wrapped, base)
	assert.Equal(t, "loading config: boom", wrapped.Error())

	assert.Nil(t, Wrap(nil, "context"))
	assert.Equal(t, base, Wrap(base, ""))
}

func TestWrapf(t *testing.T) {
	base := errors.New("boom")

	wrapped := Wrapf(base, "trigger %q at tick %d", "bedtime", 7)
	require.ErrorIs(t, wrapped, base)
	assert.Equal(t, `trigger "bedtime" at tick 7: boom`, wrapped.Error())

	assert.Nil(t, Wrapf(nil, "anything"))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsActionFailed(fmt.Errorf("x: %w", ErrActionFailed)))
	assert.False(t, IsActionFailed(ErrNotFound))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsValidation(ErrValidation))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsDependencyFailure(ErrDependencyFailure))
}

func TestCause(t *testing.T) {
	root := errors.New("root")
	chain := fmt.Errorf("a: %w", fmt.Errorf("b: %w", root))

	assert.Equal(t, root, Cause(chain))
	assert.Equal(t, root, Cause(root))
	assert.Nil(t, Cause(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ActionFailed", KindActionFailed.String())
	assert.Equal(t, "Unknown", KindUnknown.String())
	assert.Equal(t, "Canceled", KindCanceled.String())
}
