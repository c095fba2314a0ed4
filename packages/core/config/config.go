package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the hitchain project configuration
type Config struct {
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Rate            float64           `json:"rate,omitempty" yaml:"rate,omitempty"`       // requests per second, 0 = unlimited
	Silent          *bool             `json:"silent,omitempty" yaml:"silent,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	Output          string            `json:"output,omitempty" yaml:"output,omitempty"` // console, json, junit, tap or html
	MetricsFile     string            `json:"metricsFile,omitempty" yaml:"metricsFile,omitempty"`
	SlackWebhook    string            `json:"slackWebhook,omitempty" yaml:"slackWebhook,omitempty"`
	TeamsWebhook    string            `json:"teamsWebhook,omitempty" yaml:"teamsWebhook,omitempty"`
	NotifyOn        string            `json:"notifyOn,omitempty" yaml:"notifyOn,omitempty"` // always, failure, success or recovery
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetSilent() bool {
	return getBool(c.Silent, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".hitchain.json",
	"hitchain.json",
	".hitchain.yaml",
	"hitchain.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate rejects values the runner cannot use.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("maxRedirects must not be negative")
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	switch c.Output {
	case "", "console", "json", "junit", "tap", "html":
	default:
		return fmt.Errorf("unknown output format %q", c.Output)
	}
	switch c.NotifyOn {
	case "", "always", "failure", "success", "recovery":
	default:
		return fmt.Errorf("unknown notifyOn value %q", c.NotifyOn)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Rate > 0 {
		result.Rate = other.Rate
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.MetricsFile != "" {
		result.MetricsFile = other.MetricsFile
	}
	if other.SlackWebhook != "" {
		result.SlackWebhook = other.SlackWebhook
	}
	if other.TeamsWebhook != "" {
		result.TeamsWebhook = other.TeamsWebhook
	}
	if other.NotifyOn != "" {
		result.NotifyOn = other.NotifyOn
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Silent != nil {
		result.Silent = other.Silent
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "HITCHAIN_"

// FromEnv builds a partial config from HITCHAIN_* variables, suitable for
// Merge. Unparsable values are reported rather than ignored.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	c := &Config{}

	var err error
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		if c.Timeout, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
	}
	if v, ok := lookup(EnvPrefix + "RATE"); ok {
		if c.Rate, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("%sRATE: %w", EnvPrefix, err)
		}
	}
	for _, b := range []struct {
		name string
		dst  **bool
	}{
		{"SILENT", &c.Silent},
		{"NO_COLOR", &c.NoColor},
		{"INSECURE", &c.ValidateSSL},
	} {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
		if b.name == "INSECURE" {
			parsed = !parsed
		}
		*b.dst = BoolPtr(parsed)
	}
	if v, ok := lookup(EnvPrefix + "PROXY"); ok {
		c.Proxy = v
	}
	if v, ok := lookup(EnvPrefix + "OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := lookup(EnvPrefix + "METRICS_FILE"); ok {
		c.MetricsFile = v
	}
	if v, ok := lookup(EnvPrefix + "SLACK_WEBHOOK"); ok {
		c.SlackWebhook = v
	}
	if v, ok := lookup(EnvPrefix + "TEAMS_WEBHOOK"); ok {
		c.TeamsWebhook = v
	}
	if v, ok := lookup(EnvPrefix + "NOTIFY_ON"); ok {
		c.NotifyOn = v
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveConfig saves the configuration to a file. The format follows the
// file extension.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
