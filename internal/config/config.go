package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ncecere/musicmind/flamingo"
)

// EnvLogLevel names the environment variable holding the CLI log level.
const EnvLogLevel = "MUSICMIND_LOG_LEVEL"

// Config captures the resolved settings for one CLI invocation.
type Config struct {
	Endpoint string `mapstructure:"endpoint"`
	JSON     bool   `mapstructure:"json"`
	Prompt   string `mapstructure:"prompt"`
	LogLevel string `mapstructure:"log_level"`
}

// Options controls the config loader behavior.
type Options struct {
	// EnvFile is loaded into the process environment before resolving.
	// Existing variables are never overwritten. Empty means ".env".
	EnvFile string
}

// RegisterFlags adds the CLI flags read by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("endpoint", "", "remote endpoint base URL (overrides "+flamingo.EnvEndpoint+")")
	fs.BoolP("json", "j", false, "print the raw JSON response")
	fs.StringP("prompt", "p", "", "custom prompt sent with the audio file")
	fs.String("log-level", "", "log level: debug, info, warn, error (overrides "+EnvLogLevel+")")
}

// Load merges flags, environment and built-in defaults. Precedence is
// an explicitly set flag, then the environment variable, then the
// default.
func Load(fs *pflag.FlagSet, opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetDefault("endpoint", flamingo.DefaultEndpoint)
	v.SetDefault("json", false)
	v.SetDefault("prompt", "")
	v.SetDefault("log_level", "warn")

	if err := v.BindEnv("endpoint", flamingo.EnvEndpoint); err != nil {
		return nil, err
	}
	if err := v.BindEnv("log_level", EnvLogLevel); err != nil {
		return nil, err
	}

	bindings := map[string]string{
		"endpoint":  "endpoint",
		"json":      "json",
		"prompt":    "prompt",
		"log_level": "log-level",
	}
	for key, flag := range bindings {
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes and checks the resolved values.
func (c *Config) Validate() error {
	c.Endpoint = flamingo.ResolveEndpoint(c.Endpoint)
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: must be an absolute http(s) URL", c.Endpoint)
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}
