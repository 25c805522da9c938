package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/boot"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/id"
)

// CollisionPolicy decides what happens when two loaders claim the same name
// in one pass.
type CollisionPolicy string

const (
	// CollisionReject aborts the pass.
	CollisionReject CollisionPolicy = "reject"
	// CollisionFirstWins keeps the item from the earlier loader.
	CollisionFirstWins CollisionPolicy = "first-wins"
	// CollisionLastWins replaces it with the item from the later loader.
	CollisionLastWins CollisionPolicy = "last-wins"
)

// ParseCollisionPolicy validates a collision policy name.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case CollisionReject, CollisionFirstWins, CollisionLastWins:
		return CollisionPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", s)
	}
}

// ErrNameCollision marks a rejected collision.
var ErrNameCollision = errors.New("name collision")

// CollisionError reports a name claimed by two loaders.
type CollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: %q claimed by %s and %s", ErrNameCollision, e.Name, e.First, e.Second)
}

func (e *CollisionError) Is(target error) bool { return target == ErrNameCollision }

// Boot validates the persistence root and runs the first pass. A validation
// failure is terminal: it is returned from this and every later call, no
// loader is invoked, and the instance never becomes ready.
func (i *Instance) Boot(ctx context.Context) error {
	i.passMu.Lock()
	defer i.passMu.Unlock()

	if f := i.Failure(); f != nil {
		return f
	}

	log := i.opts.Logger
	log.Info("Validating persistence root", zap.String("home", i.opts.Home))
	if err := boot.Check(i.opts.Validator, i.opts.Home); err != nil {
		var failure *boot.Failure
		if !errors.As(err, &failure) {
			failure = &boot.Failure{Message: err.Error()}
		}
		i.mu.Lock()
		i.state = StateFailed
		i.failure = failure
		i.mu.Unlock()
		i.opts.Metrics.IncBootFailures()
		log.Error("Boot failed", zap.String("reason", failure.Message))
		return failure
	}

	return i.pass(ctx)
}

// Reload re-runs loaders and hydration. Items keep their identity when they
// are still on disk; items that are gone disappear. On error the live
// namespace is unchanged.
func (i *Instance) Reload(ctx context.Context) error {
	i.passMu.Lock()
	defer i.passMu.Unlock()

	if f := i.Failure(); f != nil {
		return f
	}
	if i.State() != StateReady {
		return ErrNotReady
	}
	return i.pass(ctx)
}

// ReloadItem reloads the item with the given full name from disk, in place.
// Concurrent calls for the same item share one load.
func (i *Instance) ReloadItem(ctx context.Context, fullName string) (item.Item, error) {
	if !i.Ready() {
		return nil, ErrNotReady
	}
	v, err, _ := i.reloads.Do(fullName, func() (any, error) {
		i.passMu.RLock()
		defer i.passMu.RUnlock()

		it, err := i.ItemByFullName(fullName)
		if err != nil {
			return nil, err
		}
		log := i.opts.Logger.ForItem(it.FullName())
		if err := it.Load(ctx); err != nil {
			i.opts.Metrics.AddHydrationFailures(1)
			log.Warn("Reload failed", zap.Error(err))
			return nil, &lifecycle.LoadError{Item: it.FullName(), Err: err}
		}
		i.reportChildErrors(log, []item.Item{it})
		log.Info("Reloaded item")
		return it, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(item.Item), nil
}

// pass runs loaders and hydration and commits the result. passMu must be held.
func (i *Instance) pass(ctx context.Context) error {
	start := time.Now()
	passID := id.NewLoadPassID()
	log := i.opts.Logger.With(zap.String("pass", passID.String()))
	st := newStaging(log, i.opts.Collision, i.opts.Metrics)

	i.mu.Lock()
	i.staging = st
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.staging = nil
		i.mu.Unlock()
	}()

	items, err := i.collect(ctx, st)
	if err == nil {
		items, err = i.hydrate(ctx, log, items)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		i.opts.Metrics.RecordPass(false, 0, time.Since(start))
		log.Error("Load pass aborted", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return err
	}

	live := make(map[string]item.Item, len(items))
	for _, it := range items {
		live[it.Name()] = it
	}
	i.mu.Lock()
	i.items = live
	i.state = StateReady
	i.mu.Unlock()

	d := time.Since(start)
	i.opts.Metrics.RecordPass(true, len(live), d)
	log.Info("Load pass complete", zap.Int("items", len(live)), zap.Duration("duration", d))
	return nil
}

// collect invokes every loader in rank order and merges the results serially.
func (i *Instance) collect(ctx context.Context, st *staging) ([]item.Item, error) {
	for _, reg := range i.opts.Registry.Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		llog := st.log.ForLoader(reg.Name)
		timer := monitoring.NewTimer(i.opts.Metrics, reg.Name)

		items, err := reg.Loader.Load(ctx, i)
		if err != nil {
			timer.Stop(monitoring.StatusError, 0)
			return nil, &loader.Error{Loader: reg.Name, Err: err}
		}
		d := timer.Stop(monitoring.StatusSuccess, len(items))

		for _, it := range items {
			if err := it.OnLoad(i, it.Name()); err != nil {
				return nil, &loader.Error{Loader: reg.Name, Err: err}
			}
			if err := st.merge(reg.Name, it); err != nil {
				return nil, err
			}
		}
		llog.Info("Loader finished",
			zap.String("rank", reg.Order.String()),
			zap.Int("items", len(items)),
			zap.Duration("duration", d))
	}
	return st.items(), nil
}

// hydrate loads staged items under the hydration policy.
func (i *Instance) hydrate(ctx context.Context, log *logging.Logger, items []item.Item) ([]item.Item, error) {
	loaded, err := lifecycle.Hydrate(ctx, items, i.opts.Hydration, i.opts.Workers)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		var lerrs []error
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			lerrs = joined.Unwrap()
		} else {
			lerrs = []error{err}
		}
		i.opts.Metrics.AddHydrationFailures(len(lerrs))
		if i.opts.Hydration == lifecycle.PolicyAbort {
			return nil, err
		}
		for _, e := range lerrs {
			var lerr *lifecycle.LoadError
			if errors.As(e, &lerr) {
				log.ForItem(lerr.Item).Warn("Skipping item that failed to load", zap.Error(lerr.Err))
			}
		}
	}
	i.reportChildErrors(log, loaded)
	return loaded, nil
}

func (i *Instance) reportChildErrors(log *logging.Logger, items []item.Item) {
	for _, it := range items {
		f, ok := it.(*item.Folder)
		if !ok {
			continue
		}
		errs := f.ChildErrors()
		for _, e := range errs {
			var lerr *lifecycle.LoadError
			if errors.As(e, &lerr) {
				log.ForItem(lerr.Item).Warn("Skipping folder child that failed to load", zap.Error(lerr.Err))
			}
		}
		i.opts.Metrics.AddFolderChildErrors(len(errs))
		i.reportChildErrors(log, f.Items())
	}
}

type claim struct {
	loader string
	item   item.Item
}

// staging is the namespace built by one pass.
type staging struct {
	log     *logging.Logger
	policy  CollisionPolicy
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	order  []string
	claims map[string]claim
}

func newStaging(log *logging.Logger, policy CollisionPolicy, metrics *monitoring.Metrics) *staging {
	return &staging{
		log:     log,
		policy:  policy,
		metrics: metrics,
		claims:  make(map[string]claim),
	}
}

func (s *staging) claimed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.claims[name]
	return ok
}

func (s *staging) merge(loaderName string, it item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := it.Name()
	prev, ok := s.claims[name]
	if !ok {
		s.claims[name] = claim{loader: loaderName, item: it}
		s.order = append(s.order, name)
		return nil
	}

	s.metrics.IncNameCollision(string(s.policy))
	fields := []zap.Field{
		zap.String("item", name),
		zap.String("first", prev.loader),
		zap.String("second", loaderName),
	}
	switch s.policy {
	case CollisionFirstWins:
		s.log.Warn("Name collision, keeping first", fields...)
	case CollisionLastWins:
		s.log.Warn("Name collision, keeping last", fields...)
		s.claims[name] = claim{loader: loaderName, item: it}
	default:
		return &CollisionError{Name: name, First: prev.loader, Second: loaderName}
	}
	return nil
}

// items returns the staged items in claim order.
func (s *staging) items() []item.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]item.Item, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.claims[name].item)
	}
	return out
}
