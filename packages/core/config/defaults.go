package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		ValidateSSL:     BoolPtr(true),
		Silent:          BoolPtr(false),
		NoColor:         BoolPtr(false),
		Output:          "console",
		NotifyOn:        "failure",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == defaults.Proxy &&
		len(c.Headers) == 0 &&
		c.Rate == defaults.Rate &&
		c.GetSilent() == defaults.GetSilent() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.Output == defaults.Output &&
		c.MetricsFile == "" &&
		c.SlackWebhook == "" &&
		c.NotifyOn == defaults.NotifyOn
}
