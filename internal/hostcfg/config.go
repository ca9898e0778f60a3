// Package hostcfg manages the registry of range backends the console client
// can connect to. Each host is a YAML file under ~/.config/cyroid/hosts/.
package hostcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// HostConfig holds the connection parameters for one range backend.
// Stored at ~/.config/cyroid/hosts/<name>.yaml.
type HostConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"` // range backend, e.g. https://range.example.com
	Token   string `yaml:"token"`    // API bearer token
	// DefaultVM is used by `cyroid connect` when no VM argument is given.
	DefaultVM string `yaml:"default_vm,omitempty"`
}

// GlobalConfig holds client-wide settings at ~/.config/cyroid/config.yaml.
type GlobalConfig struct {
	DefaultHost string `yaml:"default_host,omitempty"`
}

// baseDir allows tests to redirect the config tree.
var baseDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "cyroid"), nil
}

// ConfigDir returns the directory where host configs are stored.
func ConfigDir() (string, error) {
	base, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "hosts"), nil
}

// RunDir returns the directory for sockets and other runtime files.
func RunDir() (string, error) {
	base, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "run"), nil
}

// Validate checks required fields and URL shape.
func (c *HostConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("host name required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	if c.Token == "" {
		return fmt.Errorf("token required")
	}
	return nil
}

// Save writes the config to ~/.config/cyroid/hosts/<name>.yaml.
func (c *HostConfig) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal host config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, c.Name+".yaml"), data, 0600)
}

// Load reads a host config by name.
func Load(name string) (*HostConfig, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("read host config %q: %w", name, err)
	}
	var cfg HostConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse host config %q: %w", name, err)
	}
	return &cfg, nil
}

// List returns the names of all saved host configs.
func List() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list host configs: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	return names, nil
}

// Delete removes a host config by name.
func Delete(name string) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, name+".yaml")); err != nil {
		return fmt.Errorf("delete host config %q: %w", name, err)
	}
	return nil
}

// LoadGlobalConfig reads ~/.config/cyroid/config.yaml. A missing file is an
// empty config, not an error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(base, "config.yaml"))
	if os.IsNotExist(err) {
		return &GlobalConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read global config: %w", err)
	}
	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse global config: %w", err)
	}
	return &cfg, nil
}

// SaveGlobalConfig writes ~/.config/cyroid/config.yaml.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	base, err := baseDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal global config: %w", err)
	}
	return os.WriteFile(filepath.Join(base, "config.yaml"), data, 0600)
}
