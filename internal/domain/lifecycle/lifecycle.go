// Package lifecycle defines the load/save capabilities of persisted objects.
//
// Loadable and Saveable are independent. A type that persists itself
// implements both; nothing here forces the pairing.
//
// Load is not safe to call concurrently on the same instance. Callers that
// reload while serving must serialize reloads per object.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Loadable objects can replace their in-memory state with what is on disk.
type Loadable interface {
	Load(ctx context.Context) error
}

// Saveable objects can persist their in-memory state.
type Saveable interface {
	Save(ctx context.Context) error
}

// LoadError reports a failed hydration of a single item.
type LoadError struct {
	Item string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Item, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Policy decides what happens to a pass when one item fails to hydrate.
type Policy string

const (
	// PolicyAbort fails the whole pass on the first hydration error.
	PolicyAbort Policy = "abort"
	// PolicySkip drops failing items and keeps the rest.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown hydration policy %q", s)
	}
}

// Named is the minimum an item must expose to be hydrated.
type Named interface {
	FullName() string
}

// Hydrate calls Load on every item that implements Loadable, using at most
// workers goroutines. Each item is loaded exactly once.
//
// With PolicyAbort the first failure is returned and the remaining loads are
// cancelled. With PolicySkip the items that loaded successfully are returned
// along with every failure joined into one error. If ctx is done when the loads
// finish, ctx.Err() is returned under either policy.
func Hydrate[T Named](ctx context.Context, items []T, policy Policy, workers int) ([]T, error) {
	if workers <= 0 {
		workers = 1
	}

	failed := make([]bool, len(items))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, it := range items {
		l, ok := any(it).(Loadable)
		if !ok {
			continue
		}
		g.Go(func() error {
			loadCtx := ctx
			if policy == PolicyAbort {
				loadCtx = gctx
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			if err := l.Load(loadCtx); err != nil {
				lerr := &LoadError{Item: it.FullName(), Err: err}
				if policy == PolicyAbort {
					return lerr
				}
				mu.Lock()
				failed[i] = true
				errs = append(errs, lerr)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Cancellation is not an item fault; nothing loaded under it is kept.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loaded := make([]T, 0, len(items))
	for i, it := range items {
		if !failed[i] {
			loaded = append(loaded, it)
		}
	}
	return loaded, errors.Join(errs...)
}
