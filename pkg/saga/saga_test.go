package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga_AbortRunsInReverse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(ctx, "test")

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.Defer(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	cause := errors.New("boom")
	err := s.Abort(ctx, cause)
	assert.Same(t, cause, err)
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestSaga_CompensationFailureKeepsCause(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(ctx, "test")

	ran := false
	s.Defer("ok", func(context.Context) error {
		ran = true
		return nil
	})
	s.Defer("fails", func(context.Context) error {
		return errors.New("compensation failed")
	})

	cause := errors.New("step failed")
	err := s.Abort(ctx, cause)
	require.ErrorIs(t, err, cause)
	assert.True(t, ran, "later compensations still run after a failing one")
}

func TestSaga_CommitSkipsCompensation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(ctx, "test")

	ran := false
	s.Defer("never", func(context.Context) error {
		ran = true
		return nil
	})
	s.Commit()

	cause := errors.New("late")
	assert.Same(t, cause, s.Abort(ctx, cause))
	assert.False(t, ran)
}

func TestAccumulator(t *testing.T) {
	t.Parallel()

	var acc Accumulator
	assert.NoError(t, acc.Err())

	acc.Add(nil)
	acc.Add(errors.New("remove network n1 failed"))
	acc.AddMessage("remove host h2 failed")
	acc.Add(errors.New("delete cluster failed"))

	require.True(t, acc.Failed())
	assert.Equal(t, "remove network n1 failed;remove host h2 failed;delete cluster failed", acc.Err().Error())
	assert.Len(t, acc.Messages(), 3)
}
