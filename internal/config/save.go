package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// Path is where Save writes.
func Path() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// YAML renders the config the way Save stores it.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
