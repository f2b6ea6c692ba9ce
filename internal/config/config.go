package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen        = ":3000"
	defaultUpstreamBase  = "https://api-dinodial-proxy.cyces.co"
	defaultTimeout       = "30s"
	defaultAdminTokenEnv = "ADMIN_TOKEN"

	TokenSourceHeader = "header"
	TokenSourceConfig = "config"

	RoutePrefixAPI  = "api"
	RoutePrefixBare = "bare"

	MakeCallModePassthrough = "passthrough"
	MakeCallModeTemplate    = "template"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type Config struct {
	Listen   string         `yaml:"listen"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Auth     AuthConfig     `yaml:"auth"`
	Routes   RoutesConfig   `yaml:"routes"`
	MakeCall MakeCallConfig `yaml:"make_call"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	timeout time.Duration
}

type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type AuthConfig struct {
	TokenSource   string `yaml:"token_source"`
	AdminTokenEnv string `yaml:"admin_token_env"`
}

type RoutesConfig struct {
	Prefix string `yaml:"prefix"`
}

// MakeCallConfig selects how the MakeCall upstream body is produced. In template
// mode the prompt and evaluation tool are read from disk on every call and the
// fixed VADEngine value is attached.
type MakeCallConfig struct {
	Mode               string `yaml:"mode"`
	PromptFile         string `yaml:"prompt_file"`
	EvaluationToolFile string `yaml:"evaluation_tool_file"`
	VADEngine          any    `yaml:"vad_engine"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// Default returns a validated configuration equivalent to an empty config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(content))
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = defaultListen
	}
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		c.Upstream.BaseURL = defaultUpstreamBase
	}
	if strings.TrimSpace(c.Upstream.Timeout) == "" {
		c.Upstream.Timeout = defaultTimeout
	}
	if strings.TrimSpace(c.Auth.TokenSource) == "" {
		c.Auth.TokenSource = TokenSourceHeader
	}
	if strings.TrimSpace(c.Auth.AdminTokenEnv) == "" {
		c.Auth.AdminTokenEnv = defaultAdminTokenEnv
	}
	if strings.TrimSpace(c.Routes.Prefix) == "" {
		c.Routes.Prefix = RoutePrefixAPI
	}
	if strings.TrimSpace(c.MakeCall.Mode) == "" {
		c.MakeCall.Mode = MakeCallModePassthrough
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = LogFormatJSON
	}
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
}

func (c *Config) Validate() error {
	base := strings.TrimSpace(c.Upstream.BaseURL)
	if base == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url is invalid: %s", c.Upstream.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.base_url must use http/https")
	}
	c.Upstream.BaseURL = strings.TrimRight(base, "/")

	timeout, err := time.ParseDuration(strings.TrimSpace(c.Upstream.Timeout))
	if err != nil {
		return fmt.Errorf("upstream.timeout is invalid: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("upstream.timeout must not be negative")
	}
	c.timeout = timeout

	tokenSource := strings.ToLower(strings.TrimSpace(c.Auth.TokenSource))
	switch tokenSource {
	case TokenSourceHeader, TokenSourceConfig:
	default:
		return fmt.Errorf("auth.token_source must be header or config")
	}
	c.Auth.TokenSource = tokenSource
	if tokenSource == TokenSourceConfig && strings.TrimSpace(c.Auth.AdminTokenEnv) == "" {
		return fmt.Errorf("auth.admin_token_env is required when token_source is config")
	}

	prefix := strings.ToLower(strings.TrimSpace(c.Routes.Prefix))
	switch prefix {
	case RoutePrefixAPI, RoutePrefixBare:
	default:
		return fmt.Errorf("routes.prefix must be api or bare")
	}
	c.Routes.Prefix = prefix

	mode := strings.ToLower(strings.TrimSpace(c.MakeCall.Mode))
	switch mode {
	case MakeCallModePassthrough:
	case MakeCallModeTemplate:
		if strings.TrimSpace(c.MakeCall.PromptFile) == "" {
			return fmt.Errorf("make_call.prompt_file is required when mode is template")
		}
		if strings.TrimSpace(c.MakeCall.EvaluationToolFile) == "" {
			return fmt.Errorf("make_call.evaluation_tool_file is required when mode is template")
		}
		if c.MakeCall.VADEngine == nil {
			return fmt.Errorf("make_call.vad_engine is required when mode is template")
		}
	default:
		return fmt.Errorf("make_call.mode must be passthrough or template")
	}
	c.MakeCall.Mode = mode

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("logging.format must be json or console")
	}

	return nil
}

// UpstreamTimeout is the total timeout applied by the shared upstream client.
// Zero means no timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return c.timeout
}

func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}
