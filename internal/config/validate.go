package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	if err := c.validateConnectivity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("api.base_url is required. Set %s env var or edit %s (create with 'petsync config init')", envAPIBaseURL, defaultPath)
	}
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Capacity < 0 {
		return errors.New("queue.capacity must be positive")
	}
	return nil
}

func (c *Config) validateIntervals() error {
	if err := ensurePositiveMap(map[string]int{
		"api.request_timeout":                 c.API.RequestTimeout,
		"connectivity.probe_interval_seconds": c.Connectivity.ProbeIntervalSeconds,
		"connectivity.probe_timeout_seconds":  c.Connectivity.ProbeTimeoutSeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Sync.IntervalSeconds < 0 {
		return errors.New("sync.interval_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	if c.Connectivity.StateFile != "" {
		return nil
	}
	if c.Connectivity.ProbeURL == "" {
		return errors.New("connectivity.probe_url must be set when connectivity.state_file is empty")
	}
	return validateHTTPURL("connectivity.probe_url", c.Connectivity.ProbeURL)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
