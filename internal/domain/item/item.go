package item

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/lifecycle"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/domain/model"
	"github.com/GriffinCanCode/Orchestrator/backend/internal/shared/validation"
)

// Kinds understood by Open.
const (
	KindFreestyle = "freestyle"
	KindPipeline  = "pipeline"
	KindFolder    = "folder"
)

var (
	// ErrNoConfig is returned by Open for a directory without a config file.
	ErrNoConfig = errors.New("no config file")
	// ErrExists is returned when creating an item whose name is taken.
	ErrExists = errors.New("item already exists")
)

// Item is a top-level persisted entity.
type Item interface {
	model.Node
	model.Addressable
	lifecycle.Loadable
	lifecycle.Saveable

	FullName() string
	FullDisplayName() string
	RootDir() string
	Kind() string
	Codec() Codec

	// OnLoad places the item in the tree. It is called when the item is read
	// from disk and again when an existing instance is reused on reload.
	OnLoad(parent model.Node, name string) error
}

// Config is the persisted state of an item.
type Config struct {
	Kind        string `yaml:"kind" json:"kind" toml:"kind"`
	DisplayName string `yaml:"displayName,omitempty" json:"displayName,omitempty" toml:"displayName,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Disabled    bool   `yaml:"disabled,omitempty" json:"disabled,omitempty" toml:"disabled,omitempty"`
}

// Job is a plain persisted item.
type Job struct {
	model.Base

	mu     sync.RWMutex
	dir    string
	codec  Codec
	config Config
}

// NewJob creates a detached job backed by dir.
func NewJob(dir string, codec Codec) *Job {
	return &Job{dir: dir, codec: codec, config: Config{Kind: KindFreestyle}}
}

// OnLoad implements Item.
func (j *Job) OnLoad(parent model.Node, name string) error {
	return j.Attach(j, parent, name)
}

// RootDir returns the item directory.
func (j *Job) RootDir() string {
	return j.dir
}

// Codec returns the config format.
func (j *Job) Codec() Codec {
	return j.codec
}

// Kind returns the configured kind.
func (j *Job) Kind() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.config.Kind
}

// Config returns a copy of the current state.
func (j *Job) Config() Config {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.config
}

// SetConfig replaces the in-memory state. Call Save to persist it.
func (j *Job) SetConfig(cfg Config) {
	if cfg.Kind == "" {
		cfg.Kind = KindFreestyle
	}
	j.mu.Lock()
	j.config = cfg
	j.mu.Unlock()
	j.SetDisplayName(cfg.DisplayName)
}

// ConfigFile returns the path of the config file.
func (j *Job) ConfigFile() string {
	return filepath.Join(j.dir, j.codec.File())
}

// Load implements lifecycle.Loadable. Unsaved changes are discarded.
func (j *Job) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := readConfig(j.dir, j.codec)
	if err != nil {
		return err
	}
	j.SetConfig(cfg)
	return nil
}

// Save implements lifecycle.Saveable.
func (j *Job) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := j.Config()
	data, err := j.codec.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", j.ConfigFile(), err)
	}
	return writeAtomic(j.ConfigFile(), data)
}

func (j *Job) String() string {
	return fmt.Sprintf("%s[%s]", j.Kind(), j.FullName())
}

func readConfig(dir string, codec Codec) (Config, error) {
	path := filepath.Join(dir, codec.File())
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	if cfg.Kind == "" {
		cfg.Kind = KindFreestyle
	}
	return cfg, nil
}

// writeAtomic replaces path via a synced temp file and rename so a crash
// never leaves a truncated config behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Open reads the config in dir to decide the item kind and returns a
// detached-from-disk instance placed under parent. The item still has to be
// hydrated with Load.
func Open(parent model.Node, dir string) (Item, error) {
	codec, ok := CodecFor(dir)
	if !ok {
		return nil, fmt.Errorf("%w in %s", ErrNoConfig, dir)
	}
	return OpenWith(parent, dir, codec)
}

// OpenWith is like Open with an explicit codec.
func OpenWith(parent model.Node, dir string, codec Codec) (Item, error) {
	kind, err := PeekKind(dir, codec)
	if err != nil {
		return nil, err
	}
	return attach(newOf(kind, dir, codec), parent, dir)
}

// PeekKind reads only the kind recorded in the config file in dir.
func PeekKind(dir string, codec Codec) (string, error) {
	cfg, err := readConfig(dir, codec)
	if err != nil {
		return "", err
	}
	return cfg.Kind, nil
}

// Detect is like OpenWith but defers config errors to Load: when the kind
// cannot be read it returns a Job whose Load reports the cause. It only fails
// when the item cannot be attached to parent.
func Detect(parent model.Node, dir string, codec Codec) (Item, error) {
	kind, err := PeekKind(dir, codec)
	if err != nil {
		kind = KindFreestyle
	}
	return attach(newOf(kind, dir, codec), parent, dir)
}

func newOf(kind, dir string, codec Codec) Item {
	if kind == KindFolder {
		return NewFolder(dir, codec)
	}
	return NewJob(dir, codec)
}

func attach(it Item, parent model.Node, dir string) (Item, error) {
	if err := it.OnLoad(parent, filepath.Base(dir)); err != nil {
		return nil, err
	}
	return it, nil
}

// Create writes a new item with cfg under dir and returns it attached to parent.
// The directory name becomes the item name and must pass validation.ItemName.
func Create(ctx context.Context, parent model.Node, dir string, codec Codec, cfg Config) (Item, error) {
	if err := errors.Join(
		validation.ItemName(filepath.Base(dir)),
		validation.DisplayName(cfg.DisplayName),
		validation.Description(cfg.Description),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	it := newOf(cfg.Kind, dir, codec)
	switch v := it.(type) {
	case *Folder:
		v.SetConfig(cfg)
	case *Job:
		v.SetConfig(cfg)
	}
	it, err := attach(it, parent, dir)
	if err != nil {
		return nil, err
	}
	if err := it.Save(ctx); err != nil {
		return nil, err
	}
	return it, nil
}
