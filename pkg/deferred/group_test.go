package deferred_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-result-client/pkg/deferred"
	"github.com/keboola/go-result-client/pkg/result"
)

func TestGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var running, maxRunning atomic.Int64
	g := deferred.NewGroupWithLimit(ctx, 2)

	var tasks []*deferred.Deferred[string]
	for i := range 10 {
		tasks = append(tasks, deferred.GoInGroup(g, func(ctx context.Context) (string, error) {
			current := running.Add(1)
			defer running.Add(-1)
			for {
				peak := maxRunning.Load()
				if current <= peak || maxRunning.CompareAndSwap(peak, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			if i == 5 {
				return "", errors.New("task 5 failed")
			}
			return fmt.Sprintf("task %d", i), nil
		}))
	}

	// Failures do not stop the group
	assert.NoError(t, g.Wait())
	assert.LessOrEqual(t, maxRunning.Load(), int64(2))

	results, err := deferred.AwaitAll(ctx, tasks...)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, r := range results {
		if i == 5 {
			assert.EqualError(t, r.Err(), "task 5 failed")
		} else {
			assert.Equal(t, result.Success(fmt.Sprintf("task %d", i)), r)
		}
	}
}

func TestNewGroupWithLimit_Invalid(t *testing.T) {
	t.Parallel()
	assert.PanicsWithError(t, "group limit must be at least 1, given 0", func() {
		deferred.NewGroupWithLimit(context.Background(), 0)
	})
	assert.PanicsWithError(t, "group limit must be at least 1, given -1", func() {
		deferred.NewGroupWithLimit(context.Background(), -1)
	})
}

func TestGroup_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := deferred.NewGroupWithLimit(ctx, 1)
	for range 3 {
		deferred.GoInGroup(g, func(ctx context.Context) (string, error) {
			assert.Fail(t, "task should not be started")
			return "", nil
		})
	}

	// All cancellations are returned
	err := g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 errors occurred:")
}

func TestGroup_SingleCancellation(t *testing.T) {
	t.Parallel()
	g := deferred.NewGroup(context.Background())

	cancelErr := result.NewCancellationError("Simulated cancellation")
	task := deferred.GoInGroup(g, func(ctx context.Context) (string, error) {
		return "", cancelErr
	})
	deferred.GoInGroup(g, func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	// Single error is unwrapped
	assert.Same(t, cancelErr, g.Wait())
	_, err := task.Await(context.Background())
	assert.Same(t, cancelErr, err)
}

func TestAwaitAll_Cancelled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	release := make(chan struct{})
	slow := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		<-release
		return "slow", nil
	})
	cancelled := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		return "", result.NewCancellationError("Simulated cancellation")
	})

	// The first cancellation stops awaiting
	results, err := deferred.AwaitAll(ctx, slow, cancelled)
	assert.EqualError(t, err, "Simulated cancellation")
	assert.Nil(t, results)

	// The slow task is not affected
	close(release)
	r, err := slow.Await(ctx)
	assert.NoError(t, err)
	assert.Equal(t, result.Success("slow"), r)
}
