// Package configutil wraps .ini configuration files: section/key/value with
// trimmed strings, a permissive boolean grammar, caller-supplied fallbacks
// for unknown keys, and whole-file persistence on every write.
package configutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// ErrPathRequired is returned when a Config is created without a path.
var ErrPathRequired = errors.New("configutil: config path is required")

// Option configures a Config.
type Option func(*Config)

// WithSaveAs redirects writes to an alternate path while still reading from
// the original.
func WithSaveAs(path string) Option {
	return func(c *Config) {
		c.saveAsPath = path
	}
}

// Config is an .ini-backed configuration store. Reads come from the parsed
// file; Set persists the entire file and reloads it.
type Config struct {
	path       string
	saveAsPath string

	mu   sync.Mutex
	file *ini.File
}

// Load opens (or initializes) the .ini file at path. A missing file is not
// an error; it is created on the first Set.
func Load(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrPathRequired
	}

	c := &Config{path: path}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) reload() error {
	file, err := ini.LooseLoad(c.path)
	if err != nil {
		return fmt.Errorf("configutil: load %s: %w", c.path, err)
	}
	c.file = file
	return nil
}

// Get returns the trimmed value of [section] key, or fallback when the key
// is absent or empty.
func (c *Config) Get(section, key, fallback string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec := c.file.Section(section)
	if !sec.HasKey(key) {
		return fallback
	}
	value := strings.TrimSpace(sec.Key(key).String())
	if value == "" {
		return fallback
	}
	return value
}

// Bool returns the boolean value of [section] key using the permissive
// grammar true/false/yes/no/1/0 (case-insensitive). Absent or unparseable
// values return fallback.
func (c *Config) Bool(section, key string, fallback bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec := c.file.Section(section)
	if !sec.HasKey(key) {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(sec.Key(key).String())) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	default:
		return fallback
	}
}

// Set writes [section] key = value, persists the whole file (to the save-as
// path when configured) and reloads.
func (c *Config) Set(section, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.file.Section(section).Key(key).SetValue(strings.TrimSpace(fmt.Sprint(value)))

	target := c.path
	if c.saveAsPath != "" {
		target = c.saveAsPath
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("configutil: create directory for %s: %w", target, err)
	}
	if err := c.file.SaveTo(target); err != nil {
		return fmt.Errorf("configutil: save %s: %w", target, err)
	}
	return c.reload()
}

// Sections lists the non-default section names currently loaded.
func (c *Config) Sections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for _, name := range c.file.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		names = append(names, name)
	}
	return names
}
