package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/ordering"
)

var (
	// ErrInvalidRegistration marks a registration without a name or loader.
	ErrInvalidRegistration = errors.New("invalid loader registration")
	// ErrDuplicateLoader marks a second registration under the same name.
	ErrDuplicateLoader = errors.New("duplicate loader")
)

// Root is the handle given to loaders during a pass. It is also the parent
// node of every top-level item.
type Root interface {
	model.Node

	// HomeDir is the persistence root.
	HomeDir() string
	// ItemsDir is the directory holding one subdirectory per top-level item.
	ItemsDir() string
	// Claimed reports whether an earlier loader in this pass produced name.
	Claimed(name string) bool
	// Existing returns the live instance named name from before this pass,
	// or nil. Loaders reuse it so item identity survives a reload.
	Existing(name string) item.Item
	Logger() *logging.Logger
}

// ItemLoader produces items from the persistence root. Load may scan in
// parallel internally but returns a materialized slice; the host merges
// results serially. The returned items are not hydrated yet.
type ItemLoader interface {
	Load(ctx context.Context, root Root) ([]item.Item, error)
}

// Func adapts a function to ItemLoader.
type Func func(ctx context.Context, root Root) ([]item.Item, error)

// Load implements ItemLoader.
func (f Func) Load(ctx context.Context, root Root) ([]item.Item, error) {
	return f(ctx, root)
}

// Registration binds a loader to its name and rank.
type Registration struct {
	Name   string
	Order  ordering.Ordering
	Loader ItemLoader
}

// Error reports a loader failure. It aborts the whole pass.
type Error struct {
	Loader string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("loader %s: %v", e.Loader, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry is the explicit list of loaders known to the host.
type Registry struct {
	mu    sync.RWMutex
	regs  []Registration
	names map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a loader. Names must be unique.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}
	if reg.Loader == nil {
		return fmt.Errorf("%w: %s has no loader", ErrInvalidRegistration, reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[reg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLoader, reg.Name)
	}
	r.names[reg.Name] = struct{}{}
	r.regs = append(r.regs, reg)
	return nil
}

// MustRegister is like Register but panics on error. Use it for static
// composition tables.
func (r *Registry) MustRegister(reg Registration) {
	if err := r.Register(reg); err != nil {
		panic(err)
	}
}

// Sorted returns the registrations in ascending rank. Equal ranks keep their
// registration order.
func (r *Registry) Sorted() []Registration {
	r.mu.RLock()
	out := append([]Registration(nil), r.regs...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order.Before(out[j].Order)
	})
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// excluded reports whether name matches any of the glob patterns.
func excluded(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// resolve returns the item for dir, reusing the live instance when it is
// backed by the same directory, codec and kind.
func resolve(root Root, name, dir string, codec item.Codec) (item.Item, error) {
	if existing := root.Existing(name); existing != nil && reusable(existing, dir, codec) {
		if err := existing.OnLoad(root, name); err != nil {
			return nil, err
		}
		return existing, nil
	}
	return item.Detect(root, dir, codec)
}

func reusable(existing item.Item, dir string, codec item.Codec) bool {
	if existing.RootDir() != dir || existing.Codec().Name() != codec.Name() {
		return false
	}
	kind, err := item.PeekKind(dir, codec)
	if err != nil {
		// Let hydration report the broken config on the live instance.
		return true
	}
	return (kind == item.KindFolder) == (existing.Kind() == item.KindFolder)
}
