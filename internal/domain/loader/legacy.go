package loader

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
)

// legacyPattern matches item directories in the older config formats.
const legacyPattern = "*/config.{json,toml}"

// LegacyLoader is the generic fallback loader. It picks up items stored as
// config.json or config.toml that no earlier loader claimed.
type LegacyLoader struct {
	exclude []string
}

// NewLegacyLoader creates a legacy loader that ignores names matching any of
// the exclude globs.
func NewLegacyLoader(exclude []string) *LegacyLoader {
	return &LegacyLoader{exclude: exclude}
}

// Load implements ItemLoader.
func (l *LegacyLoader) Load(ctx context.Context, root Root) ([]item.Item, error) {
	base := root.ItemsDir()
	matches, err := doublestar.Glob(os.DirFS(base), legacyPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", base, err)
	}

	// A directory with both files is read with the preferred codec.
	codecs := make(map[string]item.Codec)
	for _, m := range matches {
		name, file := path.Split(m)
		name = path.Clean(name)
		codec := codecForFile(file)
		if codec == nil {
			continue
		}
		if prev, ok := codecs[name]; ok && rank(prev) <= rank(codec) {
			continue
		}
		codecs[name] = codec
	}

	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)

	log := root.Logger()
	items := make([]item.Item, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if excluded(l.exclude, name) {
			continue
		}
		if root.Claimed(name) {
			log.Debug("Skipping item claimed by an earlier loader", zap.String("item", name))
			continue
		}
		it, err := resolve(root, name, filepath.Join(base, name), codecs[name])
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func codecForFile(file string) item.Codec {
	for _, c := range item.Codecs() {
		if c.File() == file {
			return c
		}
	}
	return nil
}

func rank(c item.Codec) int {
	for i, known := range item.Codecs() {
		if known.Name() == c.Name() {
			return i
		}
	}
	return len(item.Codecs())
}
