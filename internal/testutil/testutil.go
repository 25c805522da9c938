// Package testutil provides fixtures and mocks shared by package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/item"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/loader"
)

// Home is a temporary persistence root.
type Home struct {
	t        *testing.T
	Dir      string
	ItemsDir string
}

// NewHome creates an empty persistence root with an items directory.
func NewHome(t *testing.T) *Home {
	t.Helper()
	dir := t.TempDir()
	items := filepath.Join(dir, item.ChildrenDir)
	require.NoError(t, os.MkdirAll(items, 0o755))
	return &Home{t: t, Dir: dir, ItemsDir: items}
}

// WriteFile writes content to a path relative to the home directory.
func (h *Home) WriteFile(rel, content string) string {
	h.t.Helper()
	path := filepath.Join(h.Dir, filepath.FromSlash(rel))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Job writes a top-level item whose config uses codec. An empty body gets a
// minimal config of the codec's format.
func (h *Home) Job(name string, codec item.Codec, body string) string {
	h.t.Helper()
	if body == "" {
		data, err := codec.Marshal(item.Config{Kind: item.KindFreestyle})
		require.NoError(h.t, err)
		body = string(data)
	}
	return h.WriteFile(filepath.Join(item.ChildrenDir, name, codec.File()), body)
}

// Folder writes a top-level folder item in YAML.
func (h *Home) Folder(name string) string {
	h.t.Helper()
	return h.WriteFile(filepath.Join(item.ChildrenDir, name, item.YAML.File()), "kind: folder\n")
}

// Mkdir creates an empty directory relative to the home directory.
func (h *Home) Mkdir(rel string) {
	h.t.Helper()
	require.NoError(h.t, os.MkdirAll(filepath.Join(h.Dir, filepath.FromSlash(rel)), 0o755))
}

// MockLoader is a mock implementation of loader.ItemLoader for testing.
type MockLoader struct {
	mock.Mock
}

// Load mocks the Load method.
func (m *MockLoader) Load(ctx context.Context, root loader.Root) ([]item.Item, error) {
	args := m.Called(ctx, root)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]item.Item), args.Error(1)
}

// NewMockLoader creates a mock loader that claims the given items.
func NewMockLoader(t *testing.T, items ...item.Item) *MockLoader {
	t.Helper()
	m := new(MockLoader)
	m.On("Load", mock.Anything, mock.Anything).Return(items, nil)
	return m
}

// NewFailingLoader creates a mock loader that fails with err.
func NewFailingLoader(t *testing.T, err error) *MockLoader {
	t.Helper()
	m := new(MockLoader)
	m.On("Load", mock.Anything, mock.Anything).Return(nil, err)
	return m
}
