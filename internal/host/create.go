package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/validation"
)

// CreateItem writes a new item named name and adds it to the live namespace.
// With an empty parent the item is top-level; otherwise parent is the full
// name of the folder to create it in. New items use the current config format.
func (i *Instance) CreateItem(ctx context.Context, parent, name string, cfg item.Config) (item.Item, error) {
	if !i.Ready() {
		return nil, ErrNotReady
	}
	if err := validation.ItemName(name); err != nil {
		return nil, err
	}

	// Shared with ReloadItem, exclusive with passes.
	i.passMu.RLock()
	defer i.passMu.RUnlock()
	i.createMu.Lock()
	defer i.createMu.Unlock()

	var (
		it  item.Item
		err error
	)
	if parent == "" {
		it, err = i.createTopLevel(ctx, name, cfg)
	} else {
		it, err = i.createChild(ctx, parent, name, cfg)
	}
	if err != nil {
		return nil, err
	}
	i.opts.Logger.ForItem(it.FullName()).Info("Item created", zap.String("kind", it.Kind()))
	return it, nil
}

func (i *Instance) createTopLevel(ctx context.Context, name string, cfg item.Config) (item.Item, error) {
	if _, ok := i.Item(name); ok {
		return nil, fmt.Errorf("%w: %s", item.ErrExists, name)
	}
	dir := filepath.Join(i.ItemsDir(), name)
	// An unclaimed directory may still belong to something else.
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s is already on disk", item.ErrExists, dir)
	}

	it, err := item.Create(ctx, i, dir, item.YAML, cfg)
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	i.items[name] = it
	i.mu.Unlock()
	return it, nil
}

func (i *Instance) createChild(ctx context.Context, parent, name string, cfg item.Config) (item.Item, error) {
	p, err := i.ItemByFullName(parent)
	if err != nil {
		return nil, err
	}
	folder, ok := p.(*item.Folder)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a folder", ErrNotFound, parent)
	}
	return folder.CreateChild(ctx, name, item.YAML, cfg)
}
