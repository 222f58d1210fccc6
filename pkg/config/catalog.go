package config

import (
	"fmt"
	"strings"
	"time"
)

// CatalogConfig configures the remote catalog service client.
type CatalogConfig struct {
	BaseURL    string           `koanf:"baseurl"`
	Timeout    time.Duration    `koanf:"timeout"`
	PageSize   int              `koanf:"pagesize"`
	Resilience ResilienceConfig `koanf:"resilience"`
}

func (c *CatalogConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("catalog base URL is not configured")
	}
	if !isValidHTTPURL(c.BaseURL) {
		return fmt.Errorf("catalog base URL must start with 'http://' or 'https://': %s", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid catalog timeout: %v", c.Timeout)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("invalid catalog page size: %d", c.PageSize)
	}
	return c.Resilience.Validate()
}

// isValidHTTPURL checks if the provided URL uses an http(s) scheme
func isValidHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://")
}
