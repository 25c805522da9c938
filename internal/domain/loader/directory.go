package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
)

// DirectoryLoader is the structural loader. It claims every directory
// directly under the items directory that contains config.yaml.
type DirectoryLoader struct {
	exclude []string
}

// NewDirectoryLoader creates a directory loader that ignores names matching
// any of the exclude globs.
func NewDirectoryLoader(exclude []string) *DirectoryLoader {
	return &DirectoryLoader{exclude: exclude}
}

// Load implements ItemLoader.
func (l *DirectoryLoader) Load(ctx context.Context, root Root) ([]item.Item, error) {
	base := root.ItemsDir()
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", base)
	}

	var (
		mu      sync.Mutex
		dirs    []string
		skipped int
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, base, func(path string, d os.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}
		if path == base || !d.IsDir() {
			return nil
		}

		name := d.Name()
		if !excluded(l.exclude, name) {
			if item.HasConfig(path, item.YAML) {
				mu.Lock()
				dirs = append(dirs, path)
				mu.Unlock()
			} else {
				mu.Lock()
				skipped++
				mu.Unlock()
			}
		}
		// Items own everything below their directory.
		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", base, err)
	}

	sort.Strings(dirs)
	items := make([]item.Item, 0, len(dirs))
	for _, dir := range dirs {
		it, err := resolve(root, filepath.Base(dir), dir, item.YAML)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	root.Logger().Debug("Directory scan complete",
		zap.String("dir", base),
		zap.Int("items", len(items)),
		zap.Int("skipped", skipped))
	return items, nil
}
