package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Preference keys persisted between invocations
const (
	KeyChannels   = "deint.channels"
	KeyKeepSource = "deint.keep"
)

// Prefs is a small YAML-backed key/value store for the values a user last
// entered. Values are kept as strings, like a properties file.
type Prefs struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// LoadPrefs reads the preferences file at path. A missing file yields an
// empty store that will be created on Save.
func LoadPrefs(path string) (*Prefs, error) {
	p := &Prefs{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading prefs file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p.values); err != nil {
		return nil, fmt.Errorf("error parsing prefs file: %w", err)
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	return p, nil
}

// Get returns the stored value for key, or def when none is stored
func (p *Prefs) Get(key, def string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key. Call Save to persist it.
func (p *Prefs) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// GetInt returns key parsed as an int, falling back to def when the key is
// missing or malformed.
func (p *Prefs) GetInt(key string, def int) int {
	n, err := strconv.Atoi(p.Get(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

// GetBool is GetInt for booleans.
func (p *Prefs) GetBool(key string, def bool) bool {
	b, err := strconv.ParseBool(p.Get(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}

// SetInt stores an int value.
func (p *Prefs) SetInt(key string, value int) { p.Set(key, strconv.Itoa(value)) }

// SetBool stores a bool value.
func (p *Prefs) SetBool(key string, value bool) { p.Set(key, strconv.FormatBool(value)) }

// Save writes the store back to its file
func (p *Prefs) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("error creating prefs directory: %w", err)
	}

	data, err := yaml.Marshal(p.values)
	if err != nil {
		return fmt.Errorf("error marshaling prefs: %w", err)
	}

	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("error writing prefs file: %w", err)
	}
	return nil
}

// DefaultPrefsPath returns the per-user location of the prefs file
func DefaultPrefsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".deinterleave-prefs.yaml"
	}
	return filepath.Join(dir, "deinterleave", "prefs.yaml")
}
