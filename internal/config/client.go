package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientFileName is looked up in the working directory, then in the home
// directory.
const ClientFileName = ".timetrack.yaml"

// ClientConfig configures the terminal client.
type ClientConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Timezone string        `yaml:"timezone"`
	LogLevel string        `yaml:"log_level"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:  "http://localhost:5000",
		Timeout:  10 * time.Second,
		Timezone: "Local",
		LogLevel: "warn",
	}
}

// LoadClient reads the YAML file at path, or the first default location that
// exists when path is empty, then applies TIMETRACK_API_BASE_URL.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path == "" {
		path = findClientFile()
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read client config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse client config %s: %w", path, err)
		}
	}

	if v := os.Getenv("TIMETRACK_API_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	return cfg, cfg.Validate()
}

func (c ClientConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url '%s': must be an http(s) URL", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %v: must be positive", c.Timeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone used to place events on the calendar.
func (c ClientConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

func findClientFile() string {
	candidates := []string{ClientFileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ClientFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		} else if !errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
	return ""
}
