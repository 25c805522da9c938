package item

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/validation"
)

// ChildrenDir is the directory inside a folder that holds its children.
const ChildrenDir = "jobs"

// Folder is an item that contains other items.
type Folder struct {
	Job

	// loadMu serializes Load with CreateChild so a child created while the
	// folder is listing its directory is not dropped by the swap.
	loadMu sync.Mutex

	childMu     sync.RWMutex
	children    map[string]Item
	childErrors []error
}

// NewFolder creates a detached folder backed by dir.
func NewFolder(dir string, codec Codec) *Folder {
	f := &Folder{Job: Job{dir: dir, codec: codec, config: Config{Kind: KindFolder}}}
	f.children = make(map[string]Item)
	return f
}

// OnLoad implements Item.
func (f *Folder) OnLoad(parent model.Node, name string) error {
	return f.Attach(f, parent, name)
}

// URLChildPrefix implements model.Group.
func (f *Folder) URLChildPrefix() string {
	return model.DefaultURLChildPrefix
}

// Load reads the folder config and then its children. Children that are
// already known keep their identity and are reloaded in place; directories
// without a config file are skipped. A child that fails to load is dropped
// and reported through ChildErrors; the folder itself still loads.
func (f *Folder) Load(ctx context.Context) error {
	f.loadMu.Lock()
	defer f.loadMu.Unlock()

	if err := f.Job.Load(ctx); err != nil {
		return err
	}

	dir := filepath.Join(f.RootDir(), ChildrenDir)
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to list children: %w", err)
	}

	loaded := make(map[string]Item, len(entries))
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		child, err := f.loadChild(ctx, name, filepath.Join(dir, name))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, ErrNoConfig) {
			continue
		}
		if err != nil {
			errs = append(errs, &lifecycle.LoadError{Item: model.FullName(f) + "/" + name, Err: err})
			continue
		}
		loaded[name] = child
	}

	f.childMu.Lock()
	f.children = loaded
	f.childErrors = errs
	f.childMu.Unlock()
	return nil
}

func (f *Folder) loadChild(ctx context.Context, name, dir string) (Item, error) {
	f.childMu.RLock()
	existing := f.children[name]
	f.childMu.RUnlock()

	if existing != nil && reusableChild(existing, dir) {
		if err := existing.OnLoad(f, name); err != nil {
			return nil, err
		}
		if err := existing.Load(ctx); err != nil {
			return nil, err
		}
		return existing, nil
	}

	child, err := Open(f, dir)
	if err != nil {
		return nil, err
	}
	if err := child.Load(ctx); err != nil {
		return nil, err
	}
	return child, nil
}

// reusableChild reports whether existing can be reloaded in place from dir:
// its codec and its folder or job shape must be unchanged.
func reusableChild(existing Item, dir string) bool {
	codec, ok := CodecFor(dir)
	if !ok || codec.Name() != existing.Codec().Name() {
		return false
	}
	kind, err := PeekKind(dir, codec)
	if err != nil {
		// Load on the live instance reports the broken config.
		return true
	}
	return (kind == KindFolder) == (existing.Kind() == KindFolder)
}

// Item returns the direct child with the given name.
func (f *Folder) Item(name string) (Item, bool) {
	f.childMu.RLock()
	defer f.childMu.RUnlock()
	it, ok := f.children[name]
	return it, ok
}

// Items returns the direct children sorted by name.
func (f *Folder) Items() []Item {
	f.childMu.RLock()
	defer f.childMu.RUnlock()
	out := make([]Item, 0, len(f.children))
	for _, it := range f.children {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ChildErrors returns the child failures from the last Load.
func (f *Folder) ChildErrors() []error {
	f.childMu.RLock()
	defer f.childMu.RUnlock()
	return append([]error(nil), f.childErrors...)
}

// CreateChild writes a new child item and adds it to the folder.
func (f *Folder) CreateChild(ctx context.Context, name string, codec Codec, cfg Config) (Item, error) {
	if err := validation.ItemName(name); err != nil {
		return nil, err
	}
	f.loadMu.Lock()
	defer f.loadMu.Unlock()
	if _, ok := f.Item(name); ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrExists, name, model.FullName(f))
	}
	child, err := Create(ctx, f, filepath.Join(f.RootDir(), ChildrenDir, name), codec, cfg)
	if err != nil {
		return nil, err
	}
	f.childMu.Lock()
	f.children[name] = child
	f.childMu.Unlock()
	return child, nil
}
