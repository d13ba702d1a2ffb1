package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReducesAllResults(t *testing.T) {
	sum, err := Run(context.Background(), 4, 100,
		func(ctx context.Context, task int) (int, error) { return task, nil },
		func(a, b int) int { return a + b },
	)
	require.NoError(t, err)
	assert.Equal(t, 4950, sum)
}

func TestRun_ZeroTasks(t *testing.T) {
	sum, err := Run(context.Background(), 4, 0,
		func(ctx context.Context, task int) (int, error) { return 1, nil },
		func(a, b int) int { return a + b },
	)
	require.NoError(t, err)
	assert.Equal(t, 0, sum)
}

func TestRun_SingleTask(t *testing.T) {
	// One task never calls reduce; the single result passes through.
	got, err := Run(context.Background(), 8, 1,
		func(ctx context.Context, task int) (string, error) { return "only", nil },
		func(a, b string) string { t.Fatal("reduce called"); return "" },
	)
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	_, err := Run(context.Background(), 3, 50,
		func(ctx context.Context, task int) (int, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			current.Add(-1)
			return 0, nil
		},
		func(a, b int) int { return 0 },
	)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_FirstErrorFailsRun(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), 2, 10,
		func(ctx context.Context, task int) (int, error) {
			if task == 5 {
				return 0, boom
			}
			return task, nil
		},
		func(a, b int) int { return a + b },
	)
	require.ErrorIs(t, err, boom)
}

func TestRun_MoreWorkersThanTasks(t *testing.T) {
	sum, err := Run(context.Background(), 64, 3,
		func(ctx context.Context, task int) (int, error) { return 1, nil },
		func(a, b int) int { return a + b },
	)
	require.NoError(t, err)
	assert.Equal(t, 3, sum)
}
