// Package manifest handles glimmer.toml runtime configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bekzod/glimmer-vm/dom"
)

// Manifest represents a glimmer.toml configuration.
type Manifest struct {
	Cache    Cache    `toml:"cache"`
	Render   Render   `toml:"render"`
	Sanitize Sanitize `toml:"sanitize"`

	// Dir is the directory containing the glimmer.toml file (set at load time).
	Dir string `toml:"-"`
}

// Cache configures the compiled-template cache.
type Cache struct {
	Path string `toml:"path"`
}

// Render configures render behavior.
type Render struct {
	// Rehydration is "loose" or "strict". Strict logs shape mismatches at
	// warning level; both modes recover identically.
	Rehydration string `toml:"rehydration"`
}

// Sanitize configures URL sanitization.
type Sanitize struct {
	// ExtraSchemes extends the blocked URL scheme list.
	ExtraSchemes []string `toml:"extra-schemes"`
}

// Load parses a glimmer.toml file from the given directory. A missing file
// yields the defaults.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m := &Manifest{Dir: abs}
	path := filepath.Join(dir, "glimmer.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.applyDefaults()
			return m, nil
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = abs
	m.applyDefaults()

	if m.Render.Rehydration != "loose" && m.Render.Rehydration != "strict" {
		return nil, fmt.Errorf("invalid rehydration mode %q in %s", m.Render.Rehydration, path)
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".glimmer", "templates.db")
	}
	if m.Render.Rehydration == "" {
		m.Render.Rehydration = "loose"
	}
}

// StrictRehydration reports whether mismatches should log at warning level.
func (m *Manifest) StrictRehydration() bool {
	return m.Render.Rehydration == "strict"
}

// Sanitizer builds the URL sanitizer the configuration describes: the
// default blocked schemes plus any extras.
func (m *Manifest) Sanitizer() *dom.Sanitizer {
	return dom.NewSanitizer(m.Sanitize.ExtraSchemes...)
}

// CachePath returns the absolute path of the template cache file.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
