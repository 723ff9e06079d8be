// Package icons loads the category label and icon lookup tables used when
// rendering notifications. The tables are data: a versioned asset embedded
// in the binary, optionally replaced by a file at startup.
package icons

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/albapepper/gagwatch/internal/snapshot"
)

// SchemaVersion is the asset version this build understands.
const SchemaVersion = 1

//go:embed icons.yaml
var defaultAsset []byte

// CategoryLabel is the display label for a stock category.
type CategoryLabel struct {
	Key   string `json:"key" yaml:"key" toml:"key"`
	Label string `json:"label" yaml:"label" toml:"label"`
}

// Table is the decoded icon asset.
type Table struct {
	Version    int               `json:"version" yaml:"version" toml:"version"`
	Categories []CategoryLabel   `json:"categories" yaml:"categories" toml:"categories"`
	Items      map[string]string `json:"items" yaml:"items" toml:"items"`
	Events     map[string]string `json:"events" yaml:"events" toml:"events"`
}

// Default returns the embedded table.
func Default() (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(defaultAsset, &t); err != nil {
		return nil, fmt.Errorf("decode embedded icons: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("embedded icons: %w", err)
	}
	return &t, nil
}

// Load reads a table from a file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (*Table, error) {
	if path == "" {
		return nil, fmt.Errorf("empty icons path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t Table
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &t)
	case ".json":
		err = json.Unmarshal(b, &t)
	case ".toml":
		err = toml.Unmarshal(b, &t)
	default:
		return nil, fmt.Errorf("unsupported icons extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &t, nil
}

// LoadOrDefault loads path when set, otherwise the embedded table.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

func (t *Table) validate() error {
	if t.Version != SchemaVersion {
		return fmt.Errorf("unsupported icons version %d (want %d)", t.Version, SchemaVersion)
	}
	for _, c := range t.Categories {
		if _, ok := snapshot.LookupCategory(c.Key); !ok {
			return fmt.Errorf("unknown category %q", c.Key)
		}
	}
	return nil
}

// Label returns the display label for a category key. Categories missing
// from the table fall back to the capitalised key.
func (t *Table) Label(key string) string {
	if t != nil {
		for _, c := range t.Categories {
			if c.Key == key && c.Label != "" {
				return c.Label
			}
		}
	}
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// Item returns the icon for an item name, or "".
func (t *Table) Item(name string) string {
	if t == nil {
		return ""
	}
	return t.Items[name]
}

// Event returns the icon for an event name, or "".
func (t *Table) Event(name string) string {
	if t == nil {
		return ""
	}
	return t.Events[name]
}
