package boot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	// LayoutFile is the version marker stored at the root of the home directory.
	LayoutFile = "layout.yaml"
	// CurrentLayoutVersion is the newest on-disk layout this build understands.
	CurrentLayoutVersion = 1
)

// Layout is the content of LayoutFile.
type Layout struct {
	Version int `yaml:"version"`
}

// LayoutValidator checks the on-disk layout of a home directory.
type LayoutValidator struct {
	itemsDir      string
	createMissing bool
}

// NewLayoutValidator creates a validator for homes whose items live under
// itemsDir. When createMissing is set a fresh home gets its items directory
// and layout marker created.
func NewLayoutValidator(itemsDir string, createMissing bool) *LayoutValidator {
	return &LayoutValidator{itemsDir: itemsDir, createMissing: createMissing}
}

// Validate implements Validator.
func (v *LayoutValidator) Validate(home string) Result {
	info, err := os.Stat(home)
	if err != nil {
		return Fail(fmt.Sprintf("home %s is not readable: %v", home, err))
	}
	if !info.IsDir() {
		return Fail(fmt.Sprintf("home %s is not a directory", home))
	}

	fresh, res := v.checkItemsDir(filepath.Join(home, v.itemsDir))
	if !res.OK {
		return res
	}
	return v.checkLayout(filepath.Join(home, LayoutFile), fresh)
}

func (v *LayoutValidator) checkItemsDir(dir string) (bool, Result) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return false, Pass()
	case err == nil:
		return false, Fail(fmt.Sprintf("%s is not a directory", dir))
	case !errors.Is(err, fs.ErrNotExist):
		return false, Fail(fmt.Sprintf("items directory %s is not readable: %v", dir, err))
	case !v.createMissing:
		return false, Fail(fmt.Sprintf("items directory %s does not exist", dir))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, Fail(fmt.Sprintf("unable to create %s: %v. Permission issue? Please create this directory manually.", dir, err))
	}
	return true, Pass()
}

func (v *LayoutValidator) checkLayout(path string, fresh bool) Result {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if !fresh && !v.createMissing {
			return Fail(fmt.Sprintf("layout marker %s is missing", path))
		}
		if err := WriteLayout(path, Layout{Version: CurrentLayoutVersion}); err != nil {
			return Fail(fmt.Sprintf("unable to write layout marker %s: %v", path, err))
		}
		return Pass()
	}
	if err != nil {
		return Fail(fmt.Sprintf("layout marker %s is not readable: %v", path, err))
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Fail(fmt.Sprintf("layout marker %s is corrupt: %v", path, err))
	}
	if layout.Version < 1 || layout.Version > CurrentLayoutVersion {
		return Fail(fmt.Sprintf("layout version %d in %s is not supported (this build reads versions 1 to %d)",
			layout.Version, path, CurrentLayoutVersion))
	}
	return Pass()
}

// WriteLayout writes a layout marker.
func WriteLayout(path string, layout Layout) error {
	data, err := yaml.Marshal(layout)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
