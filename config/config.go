// Package config holds the cross-cutting settings (credentials, defaults and
// backend selection) consumed when constructing Memory and Agent instances.
//
// A Configuration is built once, through New, LoadFile or FromEnv, and is
// read-only afterwards: accessors return copies so a single *Configuration can
// be shared by reference across goroutines without synchronization.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
)

// Well known credential names.
const (
	CredentialOpenAI    = "openai_api_key"
	CredentialAnthropic = "anthropic_api_key"
)

// Well known default keys.
const (
	DefaultRedisURL = "redis_url"
	DefaultTimeout  = "timeout"
	// DefaultInstruction is the system prompt of model backed runners. Text
	// containing "{{" is parsed as a text/template, so a malformed action
	// (including stray literal braces) fails every run with a runner error.
	DefaultInstruction = "instruction"
	DefaultLogLevel    = "log_level"
)

// Settings is the mutable input to New. It mirrors the on-disk layout used by
// LoadFile.
type Settings struct {
	Credentials map[string]string `json:"credentials" yaml:"credentials"`
	Defaults    map[string]any    `json:"defaults" yaml:"defaults"`
	// Provider is the memory provider name used when a caller does not pick one.
	Provider string `json:"provider" yaml:"provider"`
	// Runner is the agent runner name used when a caller does not pick one.
	Runner string `json:"runner" yaml:"runner"`
	// Model overrides the model id used by model backed runners.
	Model string `json:"model" yaml:"model"`
}

// WithAPIKey stores a credential under name.
func WithAPIKey(name, key string) func(s *Settings) {
	return func(s *Settings) {
		if s.Credentials == nil {
			s.Credentials = map[string]string{}
		}
		s.Credentials[name] = key
	}
}

// WithDefault stores a free-form default forwarded to runners and providers.
func WithDefault(key string, value any) func(s *Settings) {
	return func(s *Settings) {
		if s.Defaults == nil {
			s.Defaults = map[string]any{}
		}
		s.Defaults[key] = value
	}
}

// Configuration is the validated, read-only result of New.
type Configuration struct {
	credentials map[string]string
	defaults    map[string]any
	provider    string
	runner      string
	model       string
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// New builds a Configuration from functional overrides.
func New(optFns ...func(s *Settings)) (*Configuration, error) {
	s := Settings{}
	for _, fn := range optFns {
		fn(&s)
	}
	return fromSettings(s)
}

func fromSettings(s Settings) (*Configuration, error) {
	c := &Configuration{
		credentials: make(map[string]string, len(s.Credentials)),
		defaults:    make(map[string]any, len(s.Defaults)),
		provider:    strings.TrimSpace(s.Provider),
		runner:      strings.TrimSpace(s.Runner),
		model:       strings.TrimSpace(s.Model),
	}
	for name, value := range s.Credentials {
		if strings.TrimSpace(name) == "" {
			return nil, core.ConfigurationError("config.New", "credential name must not be empty")
		}
		if strings.TrimSpace(value) == "" {
			return nil, core.ConfigurationError("config.New", fmt.Sprintf("credential %q has an empty value", name))
		}
		c.credentials[name] = value
	}
	for k, v := range s.Defaults {
		c.defaults[k] = v
	}
	if c.provider != "" && !namePattern.MatchString(c.provider) {
		return nil, core.ConfigurationError("config.New", fmt.Sprintf("invalid provider name %q", c.provider))
	}
	if c.runner != "" && !namePattern.MatchString(c.runner) {
		return nil, core.ConfigurationError("config.New", fmt.Sprintf("invalid runner name %q", c.runner))
	}
	if v, ok := c.defaults[DefaultTimeout]; ok {
		if _, err := ParseDuration(v); err != nil {
			return nil, core.ConfigurationError("config.New", fmt.Sprintf("invalid %s default: %v", DefaultTimeout, err))
		}
	}
	return c, nil
}

// LoadFile reads Settings from a .yaml, .yml or .json file and validates them.
func LoadFile(path string, optFns ...func(s *Settings)) (*Configuration, error) {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, core.ConfigurationError("config.LoadFile", fmt.Sprintf("unsupported config file extension %q", ext))
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- extension is validated
	if err != nil {
		return nil, core.E("config.LoadFile", core.KindConfiguration, fmt.Errorf("read %s: %w", cleanPath, err))
	}

	var s Settings
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, core.E("config.LoadFile", core.KindConfiguration, fmt.Errorf("parse %s: %w", cleanPath, err))
	}

	for _, fn := range optFns {
		fn(&s)
	}
	return fromSettings(s)
}

// Environment variable names understood by FromEnv.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvProvider     = "AGENTMEM_PROVIDER"
	EnvRunner       = "AGENTMEM_RUNNER"
	EnvModel        = "AGENTMEM_MODEL"
	EnvRedisURL     = "AGENTMEM_REDIS_URL"
	EnvLogLevel     = "AGENTMEM_LOG_LEVEL"
)

// FromEnv loads dotenv files (".env" when none are given; a missing file is
// tolerated) into the process environment and builds a Configuration from the
// well known variables. Already set variables are not overridden.
func FromEnv(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, core.E("config.FromEnv", core.KindConfiguration, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, core.E("config.FromEnv", core.KindConfiguration, err)
	}

	s := Settings{
		Provider: os.Getenv(EnvProvider),
		Runner:   os.Getenv(EnvRunner),
		Model:    os.Getenv(EnvModel),
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		WithAPIKey(CredentialOpenAI, v)(&s)
	}
	if v := os.Getenv(EnvAnthropicKey); v != "" {
		WithAPIKey(CredentialAnthropic, v)(&s)
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		WithDefault(DefaultRedisURL, v)(&s)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		WithDefault(DefaultLogLevel, v)(&s)
	}
	return fromSettings(s)
}

// Credential returns the named credential.
func (c *Configuration) Credential(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.credentials[name]
	return v, ok
}

// Default returns the named default.
func (c *Configuration) Default(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.defaults[key]
	return v, ok
}

// StringDefault returns the named default when it is a string.
func (c *Configuration) StringDefault(key string) (string, bool) {
	v, ok := c.Default(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// DurationDefault returns the named default as a duration. Strings are
// parsed with time.ParseDuration, numbers are read as seconds.
func (c *Configuration) DurationDefault(key string) (time.Duration, bool) {
	v, ok := c.Default(key)
	if !ok {
		return 0, false
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// Defaults returns a copy of all defaults. The result is never nil.
func (c *Configuration) Defaults() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(c.defaults))
	for k, v := range c.defaults {
		out[k] = v
	}
	return out
}

// Provider returns the selected memory provider name, if any.
func (c *Configuration) Provider() string {
	if c == nil {
		return ""
	}
	return c.provider
}

// Runner returns the selected runner name, if any.
func (c *Configuration) Runner() string {
	if c == nil {
		return ""
	}
	return c.runner
}

// Model returns the selected model id, if any.
func (c *Configuration) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// LogLevel returns the configured log level. Unknown or missing values
// resolve to info.
func (c *Configuration) LogLevel() logging.LogLevel {
	v, _ := c.Default(DefaultLogLevel)
	s, _ := v.(string)
	return logging.ParseLevel(s)
}

// ParseDuration converts a configuration value to a duration. Strings use
// time.ParseDuration, numbers are read as seconds.
func ParseDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		return time.ParseDuration(t)
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}
