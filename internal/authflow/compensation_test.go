package authflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompensationRunsNewestFirstAndContinuesOnError(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	c := newCompensation(zap.NewNop())
	c.add("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	c.add("second", func(context.Context) error {
		order = append(order, "second")
		return boom
	})
	c.add("third", func(context.Context) error {
		order = append(order, "third")
		return nil
	})

	err := c.run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"third", "second", "first"}, order)

	require.NoError(t, c.run(context.Background()))
	require.Len(t, order, 3)
}

func TestCompensationIgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCompensation(zap.NewNop())
	c.add("check", func(ctx context.Context) error {
		return ctx.Err()
	})
	require.NoError(t, c.run(ctx))
}
