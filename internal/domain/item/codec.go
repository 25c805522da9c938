package item

import (
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
)

// Codec reads and writes an item configuration file.
type Codec interface {
	// Name identifies the format ("yaml", "json", "toml").
	Name() string
	// File is the config file name inside an item directory.
	File() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type yamlCodec struct{}

func (yamlCodec) Name() string                       { return "yaml" }
func (yamlCodec) File() string                       { return "config.yaml" }
func (yamlCodec) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlCodec) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) File() string { return "config.json" }
func (jsonCodec) Marshal(v any) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(v, "", "  ")
}

// Unmarshal accepts hand-edited legacy files: comments and trailing commas
// are stripped before decoding.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(jsonc.ToJSON(data), v)
}

type tomlCodec struct{}

func (tomlCodec) Name() string                       { return "toml" }
func (tomlCodec) File() string                       { return "config.toml" }
func (tomlCodec) Marshal(v any) ([]byte, error)      { return toml.Marshal(v) }
func (tomlCodec) Unmarshal(data []byte, v any) error { return toml.Unmarshal(data, v) }

var (
	// YAML is the current config format.
	YAML Codec = yamlCodec{}
	// JSON is the legacy config format.
	JSON Codec = jsonCodec{}
	// TOML is an alternate config format.
	TOML Codec = tomlCodec{}
)

// Codecs lists every known codec, preferred first.
func Codecs() []Codec {
	return []Codec{YAML, JSON, TOML}
}

// CodecFor returns the codec of the first config file present in dir.
func CodecFor(dir string) (Codec, bool) {
	for _, c := range Codecs() {
		if HasConfig(dir, c) {
			return c, true
		}
	}
	return nil, false
}

// HasConfig reports whether dir contains a regular config file for c.
func HasConfig(dir string, c Codec) bool {
	info, err := os.Stat(filepath.Join(dir, c.File()))
	return err == nil && info.Mode().IsRegular()
}
