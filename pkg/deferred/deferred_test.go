package deferred_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/keboola/go-result-client/pkg/deferred"
	"github.com/keboola/go-result-client/pkg/result"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGo_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		return "post success", nil
	})
	r, err := task.Await(ctx)
	assert.NoError(t, err)
	assert.Equal(t, result.Success("post success"), r)
	assert.True(t, task.IsCompleted())

	// Await is idempotent
	r, err = task.Await(ctx)
	assert.NoError(t, err)
	assert.Equal(t, result.Success("post success"), r)
}

func TestGo_Failure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	someErr := errors.New("some error")
	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		return "", someErr
	})
	r, err := task.Await(ctx)
	assert.NoError(t, err)
	assert.Same(t, someErr, r.Err())
}

func TestGo_ConcurrentAwait(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	release := make(chan struct{})
	task := deferred.Go(ctx, func(ctx context.Context) (int, error) {
		<-release
		return 123, nil
	})

	wg := &sync.WaitGroup{}
	results := make([]result.Result[int], 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := task.Await(ctx)
			assert.NoError(t, err)
			results[i] = r
		}()
	}

	assert.False(t, task.IsCompleted())
	close(release)
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, result.Success(123), r)
	}
}

func TestStart_Panic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	task := deferred.Start(ctx, func(ctx context.Context) (result.Result[int], error) {
		panic("boom")
	})
	r, err := task.Await(ctx)
	assert.NoError(t, err)
	var panicErr *result.PanicError
	assert.ErrorAs(t, r.Err(), &panicErr)
}

func TestDeferred_Cancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	started := make(chan struct{})
	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	<-started
	task.Cancel()

	r, err := task.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.IsFailure())
	<-task.Done()
}

func TestDeferred_CancelBeforeCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The operation ignores the context, but the task has been cancelled before completion
	release := make(chan struct{})
	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		<-release
		return "value", nil
	})
	task.Cancel()
	close(release)

	_, err := task.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeferred_CancelAfterCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		return "value", nil
	})
	<-task.Done()
	task.Cancel()

	r, err := task.Await(ctx)
	assert.NoError(t, err)
	assert.Equal(t, result.Success("value"), r)
}

func TestDeferred_ParentCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())

	task := deferred.Go(ctx, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	cancel()

	_, err := task.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeferred_AwaitContextDone(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	task := deferred.Go(context.Background(), func(ctx context.Context) (string, error) {
		<-release
		return "value", nil
	})

	// Awaiting stops, the task continues
	awaitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := task.Await(awaitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, task.IsCompleted())

	close(release)
	r, err := task.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Success("value"), r)
}
