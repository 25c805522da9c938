package host

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/config"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/boot"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/buildlog"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/logging"
)

// State is the lifecycle state of the instance.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// RootDisplayName is the display name of the unnamed root.
const RootDisplayName = "All"

var (
	// ErrNotFound is returned by lookups for unknown items.
	ErrNotFound = errors.New("item not found")
	// ErrNotReady is returned by operations that need a booted instance.
	ErrNotReady = errors.New("instance not ready")
)

// Options configure an Instance.
type Options struct {
	Home      string
	ItemsDir  string
	Validator boot.Validator
	Registry  *loader.Registry
	Collision CollisionPolicy
	Hydration lifecycle.Policy
	Workers   int
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
	BuildLog  buildlog.Options
	// Collector, when set, receives build logs instead of files.
	Collector buildlog.Dialer
}

// OptionsFrom maps configuration onto options. The registry and validator are
// composition decisions and are left to the caller.
func OptionsFrom(cfg *config.Config) (Options, error) {
	collision, err := ParseCollisionPolicy(cfg.Loading.CollisionPolicy)
	if err != nil {
		return Options{}, err
	}
	hydration, err := lifecycle.ParsePolicy(cfg.Loading.HydrationPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Home:      cfg.Home.Dir,
		ItemsDir:  cfg.Home.ItemsDir,
		Collision: collision,
		Hydration: hydration,
		Workers:   cfg.Loading.HydrationWorkers,
		BuildLog:  buildlog.OptionsFrom(cfg.BuildLog),
	}, nil
}

// Instance is the root orchestration instance.
type Instance struct {
	opts Options

	// passMu serializes passes. Single item reloads hold it shared so they
	// never overlap a pass that may be loading the same instance.
	passMu sync.RWMutex

	mu      sync.RWMutex
	staging *staging
	items   map[string]item.Item
	state   State
	failure *boot.Failure

	reloads  singleflight.Group
	buildMu  sync.Mutex
	createMu sync.Mutex
}

// New creates an instance. Nothing is read from disk until Boot.
func New(opts Options) (*Instance, error) {
	if opts.Home == "" {
		return nil, errors.New("host: home directory is required")
	}
	if opts.ItemsDir == "" {
		opts.ItemsDir = item.ChildrenDir
	}
	if opts.Registry == nil {
		return nil, errors.New("host: loader registry is required")
	}
	if opts.Validator == nil {
		opts.Validator = boot.NewLayoutValidator(opts.ItemsDir, true)
	}
	if opts.Collision == "" {
		opts.Collision = CollisionReject
	}
	if opts.Hydration == "" {
		opts.Hydration = lifecycle.PolicySkip
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.BuildLog.Metrics == nil {
		opts.BuildLog.Metrics = opts.Metrics
	}
	if opts.BuildLog.Logger == nil {
		opts.BuildLog.Logger = opts.Logger
	}
	if opts.BuildLog.Destinations == nil {
		opts.BuildLog.Destinations = buildlog.NewDestinations()
	}
	return &Instance{
		opts:  opts,
		items: make(map[string]item.Item),
		state: StateStarting,
	}, nil
}

var (
	_ loader.Root = (*Instance)(nil)
	_ model.Group = (*Instance)(nil)
)

// Name implements model.Node. The root is unnamed.
func (i *Instance) Name() string { return "" }

// DisplayName implements model.Node.
func (i *Instance) DisplayName() string { return RootDisplayName }

// Parent implements model.Node.
func (i *Instance) Parent() model.Node { return nil }

// URL implements model.Addressable. The root is the empty fragment.
func (i *Instance) URL() string { return "" }

// FullName implements model.FullNamed.
func (i *Instance) FullName() string { return "" }

// URLChildPrefix implements model.Group.
func (i *Instance) URLChildPrefix() string { return model.DefaultURLChildPrefix }

// HomeDir implements loader.Root.
func (i *Instance) HomeDir() string { return i.opts.Home }

// ItemsDir implements loader.Root.
func (i *Instance) ItemsDir() string { return filepath.Join(i.opts.Home, i.opts.ItemsDir) }

// Claimed implements loader.Root. It is false outside a pass.
func (i *Instance) Claimed(name string) bool {
	if st := i.currentStaging(); st != nil {
		return st.claimed(name)
	}
	return false
}

// Existing implements loader.Root.
func (i *Instance) Existing(name string) item.Item {
	it, _ := i.Item(name)
	return it
}

// Logger implements loader.Root. During a pass the logger carries the pass ID.
func (i *Instance) Logger() *logging.Logger {
	if st := i.currentStaging(); st != nil {
		return st.log
	}
	return i.opts.Logger
}

// Metrics returns the metrics the instance records to.
func (i *Instance) Metrics() *monitoring.Metrics { return i.opts.Metrics }

// State returns the lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Ready reports whether the instance is serving.
func (i *Instance) Ready() bool {
	return i.State() == StateReady
}

// Failure returns the boot failure, or nil.
func (i *Instance) Failure() *boot.Failure {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.failure
}

// Item returns the top-level item with the given name.
func (i *Instance) Item(name string) (item.Item, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	it, ok := i.items[name]
	return it, ok
}

// Items returns the top-level items sorted by name.
func (i *Instance) Items() []item.Item {
	i.mu.RLock()
	out := make([]item.Item, 0, len(i.items))
	for _, it := range i.items {
		out = append(out, it)
	}
	i.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Name() < out[b].Name() })
	return out
}

// AllItems returns every item in the tree, parents before children, sorted
// by full name.
func (i *Instance) AllItems() []item.Item {
	var out []item.Item
	var visit func(items []item.Item)
	visit = func(items []item.Item) {
		for _, it := range items {
			out = append(out, it)
			if f, ok := it.(*item.Folder); ok {
				visit(f.Items())
			}
		}
	}
	visit(i.Items())
	return out
}

func (i *Instance) currentStaging() *staging {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.staging
}

func (i *Instance) String() string {
	return fmt.Sprintf("host[%s]", i.opts.Home)
}
