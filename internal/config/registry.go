package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "hcat"
	configFile = "config.yaml"

	// registryVersion is bumped when the file layout changes incompatibly
	registryVersion = 1
)

var (
	loadOnce     sync.Once
	loaded       *Registry
	loadErr      error
	writeMu      sync.Mutex
	fileTemplate = `# hcat configuration
#
# USB-UART adapter profiles and tool preferences. Module settings (baud
# rate, name, PIN, role) are never written here: the module is detected on
# every run.
#
# Location: %s

`
)

// GetConfigDir returns the per-user configuration directory:
//   - Windows: %LOCALAPPDATA%\hcat
//   - macOS: ~/.config/hcat
//   - everything else: $XDG_CONFIG_HOME/hcat, falling back to ~/.config/hcat
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("cannot locate the config directory: LOCALAPPDATA and USERPROFILE are unset")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	}

	if runtime.GOOS != "darwin" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the path of config.yaml.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the process-wide registry, reading it from the
// standard path on first use. Later calls return the same instance.
func LoadRegistry() (*Registry, error) {
	loadOnce.Do(func() {
		var path string
		path, loadErr = GetConfigPath()
		if loadErr != nil {
			return
		}
		loaded, loadErr = LoadFrom(path)
	})
	return loaded, loadErr
}

// LoadFrom reads a registry from path. A missing file is not an error and
// yields the defaults.
func LoadFrom(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	reg := &Registry{}
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if reg.Version != registryVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", reg.Version, registryVersion)
	}
	reg.fillDefaults()
	return reg, nil
}

// fillDefaults repairs a hand-edited file that left sections out.
func (r *Registry) fillDefaults() {
	if r.Adapters == nil {
		r.Adapters = make(map[string]*Adapter)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	if r.Preferences.Listen == "" {
		r.Preferences.Listen = DefaultListen
	}
}

// Save writes the registry to the standard path, creating the directory
// with user-only permissions.
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return r.SaveTo(path)
}

// SaveTo writes the registry to path through a temporary file and a rename,
// so a crash leaves either the old or the new file.
func (r *Registry) SaveTo(path string) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, fileTemplate, path)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
