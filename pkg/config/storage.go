package config

import "fmt"

// StorageConfig configures the local key-value store.
type StorageConfig struct {
	Path string `koanf:"path"`
}

func (c *StorageConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("storage path is not configured")
	}
	return nil
}
