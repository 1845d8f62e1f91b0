package deferred

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/keboola/go-result-client/pkg/result"
)

// GroupConcurrencyLimit is the default maximum number of concurrently running tasks in one Group.
const GroupConcurrencyLimit = 8

// Group starts tasks immediately by the GoInGroup/StartInGroup functions,
// with a limited number of tasks running concurrently,
// and waits until all tasks are completed using the Wait method.
//
// Failures are part of the task results, they do not stop the group.
// The Wait method returns all cancellation errors that have occurred, if any.
type Group struct {
	ctx context.Context
	wg  *sync.WaitGroup     // wait for all
	sem *semaphore.Weighted // limit concurrency

	lock *sync.Mutex // for err
	err  *multierror.Error
}

// NewGroup creates a new Group.
func NewGroup(ctx context.Context) *Group {
	return NewGroupWithLimit(ctx, GroupConcurrencyLimit)
}

// NewGroupWithLimit creates a new Group with given concurrent tasks limit.
// The limit must be at least 1.
func NewGroupWithLimit(ctx context.Context, limit int64) *Group {
	if limit < 1 {
		panic(fmt.Errorf("group limit must be at least 1, given %d", limit))
	}
	return &Group{ctx: ctx, wg: &sync.WaitGroup{}, sem: semaphore.NewWeighted(limit), lock: &sync.Mutex{}}
}

// GoInGroup is Go for a task in the Group.
func GoInGroup[T any](g *Group, fn func(ctx context.Context) (T, error)) *Deferred[T] {
	return StartInGroup(g, func(ctx context.Context) (result.Result[T], error) {
		return result.RunSafe(ctx, fn)
	})
}

// StartInGroup is Start for a task in the Group.
// The task waits for a free slot, if the concurrency limit is reached.
func StartInGroup[T any](g *Group, fn Func[T]) *Deferred[T] {
	g.wg.Add(1)
	return start(g.ctx, func(ctx context.Context) (result.Result[T], error) {
		// Limit number of concurrent tasks
		if err := g.sem.Acquire(ctx, 1); err != nil {
			// Ctx is done, return
			return result.Result[T]{}, err
		}
		defer g.sem.Release(1)
		return fn(ctx)
	}, func(err error) {
		defer g.wg.Done()
		if err != nil {
			g.lock.Lock()
			defer g.lock.Unlock()
			g.err = multierror.Append(g.err, err)
		}
	})
}

// Wait for all tasks to complete. All cancellation errors that have occurred will be returned.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.lock.Lock()
	defer g.lock.Unlock()
	// If there is only one error, then unwrap multierror
	if g.err != nil && len(g.err.Errors) == 1 {
		return g.err.Errors[0]
	}
	return g.err.ErrorOrNil()
}

// AwaitAll awaits all tasks concurrently and returns their results in the same order.
// If any task is cancelled, or the ctx is done, awaiting stops and the first cancellation error is returned.
// The tasks themselves are not cancelled.
func AwaitAll[T any](ctx context.Context, tasks ...*Deferred[T]) ([]result.Result[T], error) {
	out := make([]result.Result[T], len(tasks))
	grp, ctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		grp.Go(func() error {
			r, err := task.Await(ctx)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
