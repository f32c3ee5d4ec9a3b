package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds runtime configuration
type Config struct {
	Provider    ProviderType `mapstructure:"provider" yaml:"provider"`
	MaxTokens   int          `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64      `mapstructure:"temperature" yaml:"temperature"`

	Anthropic ProviderSettings `mapstructure:"anthropic" yaml:"anthropic"`
	OpenAI    ProviderSettings `mapstructure:"openai" yaml:"openai"`
	Gemini    ProviderSettings `mapstructure:"gemini" yaml:"gemini"`
	Bedrock   ProviderSettings `mapstructure:"bedrock" yaml:"bedrock"`

	UI      UISettings      `mapstructure:"ui" yaml:"ui"`
	Data    DataSettings    `mapstructure:"data" yaml:"data"`
	Log     LogSettings     `mapstructure:"log" yaml:"log"`
	Guard   GuardSettings   `mapstructure:"guard" yaml:"guard"`
	Session SessionSettings `mapstructure:"session" yaml:"session"`
}

// ProviderSettings holds per-provider credentials and model choice
type ProviderSettings struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Region  string `mapstructure:"region" yaml:"region,omitempty"`
}

type UISettings struct {
	Theme         string `mapstructure:"theme" yaml:"theme"`
	Markdown      bool   `mapstructure:"markdown" yaml:"markdown"`
	MarkdownStyle string `mapstructure:"markdown_style" yaml:"markdown_style"`
}

type DataSettings struct {
	HistoryDB    string `mapstructure:"history_db" yaml:"history_db"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
}

type LogSettings struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// GuardSettings points at an optional llm-guard API. Empty URL disables it.
type GuardSettings struct {
	URL   string `mapstructure:"url" yaml:"url,omitempty"`
	Token string `mapstructure:"token" yaml:"token,omitempty"`
}

type SessionSettings struct {
	TokenBudget int `mapstructure:"token_budget" yaml:"token_budget"` // 0 = unlimited
}

const (
	configDirName  = ".llmterm"
	configFileName = "config.yaml"
	maxTokensLimit = 100000
)

// ConfigDir returns ~/.llmterm
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(home, configDirName)
}

// DefaultConfigPath returns ~/.llmterm/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), configFileName)
}

// envBindings lists the conventional variables that feed each key, after the
// LLMTERM_ prefixed form.
var envBindings = map[string][]string{
	"anthropic.api_key": {"ANTHROPIC_API_KEY"},
	"openai.api_key":    {"OPENAI_API_KEY"},
	"gemini.api_key":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"bedrock.region":    {"AWS_REGION"},
	"guard.url":         {"LLMGUARD_URL"},
	"guard.token":       {"LLMGUARD_TOKEN"},
}

func setDefaults(v *viper.Viper) {
	dir := ConfigDir()

	v.SetDefault("provider", string(ProviderAnthropic))
	v.SetDefault("max_tokens", 1000)
	v.SetDefault("temperature", 0.7)

	for _, p := range AllProviders {
		key := string(p)
		v.SetDefault(key+".api_key", "")
		v.SetDefault(key+".model", DefaultModelFor(p))
		v.SetDefault(key+".base_url", "")
		v.SetDefault(key+".region", "")
	}
	v.SetDefault("bedrock.region", "us-east-1")

	v.SetDefault("ui.theme", "default")
	v.SetDefault("ui.markdown", true)
	v.SetDefault("ui.markdown_style", "dark")
	v.SetDefault("data.history_db", filepath.Join(dir, "history.db"))
	v.SetDefault("data.history_limit", 500)
	v.SetDefault("log.file", filepath.Join(dir, "llmterm.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("guard.url", "")
	v.SetDefault("guard.token", "")
	v.SetDefault("session.token_budget", 0)
}

// ConfigStore loads, watches and persists the config file. Values come from,
// in increasing priority: defaults, the YAML file, then the environment.
type ConfigStore struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// NewConfigStore creates a store for path, or the default location when empty
func NewConfigStore(path string) *ConfigStore {
	if path == "" {
		path = DefaultConfigPath()
	}
	path = expandHome(path)

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LLMTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		prefixed := "LLMTERM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	return &ConfigStore{v: v, path: path}
}

// Path returns the config file location
func (s *ConfigStore) Path() string {
	return s.path
}

// Load reads the config file if present and returns the merged config
func (s *ConfigStore) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", s.path, err)
		}
	}
	return s.unmarshal()
}

func (s *ConfigStore) unmarshal() (*Config, error) {
	var c Config
	if err := s.v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	p, err := ParseProviderType(string(c.Provider))
	if err != nil {
		return nil, err
	}
	c.Provider = p
	return &c, nil
}

// Watch calls onChange whenever the config file is rewritten. It is a no-op
// when the file does not exist yet.
func (s *ConfigStore) Watch(onChange func(*Config, error)) {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		s.mu.Lock()
		cfg, err := s.unmarshal()
		s.mu.Unlock()
		onChange(cfg, err)
	})
	s.v.WatchConfig()
}

// Keys returns every settable key
func (s *ConfigStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.v.AllKeys()
	slices.Sort(keys)
	return keys
}

// Set validates one value and writes the result to disk
func (s *ConfigStore) Set(key, value string) (*Config, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.v.AllKeys(), key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}

	prev := s.v.Get(key)
	s.v.Set(key, value)

	cfg, err := s.unmarshal()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		s.v.Set(key, prev)
		return nil, err
	}

	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the config file, creating ~/.llmterm if needed. Keys that
// only came from the environment are not copied into the file.
func (s *ConfigStore) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	w := viper.New()
	w.SetConfigType("yaml")
	w.Set("provider", string(cfg.Provider))
	w.Set("max_tokens", cfg.MaxTokens)
	w.Set("temperature", cfg.Temperature)
	for _, p := range AllProviders {
		ps := cfg.Settings(p)
		key := string(p)
		if ps.APIKey != "" && !fromEnv(key+".api_key", ps.APIKey) {
			w.Set(key+".api_key", ps.APIKey)
		}
		w.Set(key+".model", ps.Model)
		if ps.BaseURL != "" {
			w.Set(key+".base_url", ps.BaseURL)
		}
		if ps.Region != "" {
			w.Set(key+".region", ps.Region)
		}
	}
	w.Set("ui.theme", cfg.UI.Theme)
	w.Set("ui.markdown", cfg.UI.Markdown)
	w.Set("ui.markdown_style", cfg.UI.MarkdownStyle)
	w.Set("data.history_db", cfg.Data.HistoryDB)
	w.Set("data.history_limit", cfg.Data.HistoryLimit)
	w.Set("log.file", cfg.Log.File)
	w.Set("log.level", cfg.Log.Level)
	if cfg.Guard.URL != "" && !fromEnv("guard.url", cfg.Guard.URL) {
		w.Set("guard.url", cfg.Guard.URL)
	}
	w.Set("session.token_budget", cfg.Session.TokenBudget)

	if err := w.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// The file can hold API keys.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}
	return nil
}

func fromEnv(key, value string) bool {
	names := append([]string{"LLMTERM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envBindings[key]...)
	for _, name := range names {
		if v := os.Getenv(name); v != "" && v == value {
			return true
		}
	}
	return false
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if _, err := ParseProviderType(string(c.Provider)); err != nil {
		return err
	}
	if c.MaxTokens < 1 || c.MaxTokens > maxTokensLimit {
		return fmt.Errorf("max_tokens must be between 1 and %d, got %d", maxTokensLimit, c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %s", strconv.FormatFloat(c.Temperature, 'g', -1, 64))
	}
	if _, ok := ThemePresets[c.UI.Theme]; !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", c.UI.Theme, strings.Join(ThemeNames(), ", "))
	}
	if c.Data.HistoryLimit < 0 {
		return fmt.Errorf("data.history_limit must not be negative")
	}
	if c.Session.TokenBudget < 0 {
		return fmt.Errorf("session.token_budget must not be negative")
	}
	return nil
}

// Settings returns the mutable settings block for a provider
func (c *Config) Settings(p ProviderType) *ProviderSettings {
	switch p {
	case ProviderOpenAI:
		return &c.OpenAI
	case ProviderGemini:
		return &c.Gemini
	case ProviderBedrock:
		return &c.Bedrock
	default:
		return &c.Anthropic
	}
}

// ProviderConfig builds the constructor input for a provider
func (c *Config) ProviderConfig(p ProviderType) *ProviderConfig {
	s := c.Settings(p)
	return &ProviderConfig{
		Provider: p,
		APIKey:   s.APIKey,
		Region:   s.Region,
		Model:    s.Model,
		BaseURL:  s.BaseURL,
	}
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	for _, p := range AllProviders {
		s := out.Settings(p)
		s.APIKey = maskSecret(s.APIKey)
	}
	out.Guard.Token = maskSecret(out.Guard.Token)
	return &out
}

// TokenTracker tracks token usage across the session
type TokenTracker struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	MaxTokens    int
	WarnAt       int
	warned       bool
}

// NewTokenTracker creates a new token tracker with the given limits
func NewTokenTracker(maxTokens, warnAt int) *TokenTracker {
	return &TokenTracker{
		MaxTokens: maxTokens,
		WarnAt:    warnAt,
	}
}

// Add adds tokens to the tracker and returns (ok, warning message)
func (t *TokenTracker) Add(input, output int) (bool, string) {
	t.InputTokens += input
	t.OutputTokens += output
	t.TotalTokens = t.InputTokens + t.OutputTokens

	// Check if unlimited
	if t.MaxTokens == 0 {
		return true, ""
	}

	// Check if exceeded
	if t.TotalTokens > t.MaxTokens {
		return false, "Token budget exceeded. Use /clear to start over."
	}

	// Check if approaching limit (warn once)
	if !t.warned && t.WarnAt > 0 && t.TotalTokens >= t.WarnAt {
		t.warned = true
		remaining := t.MaxTokens - t.TotalTokens
		return true, formatTokenWarning(remaining, t.MaxTokens)
	}

	return true, ""
}

// Exceeded reports whether the budget is used up
func (t *TokenTracker) Exceeded() bool {
	return t.MaxTokens > 0 && t.TotalTokens >= t.MaxTokens
}

// GetUsage returns current token usage
func (t *TokenTracker) GetUsage() (input, output, total int) {
	return t.InputTokens, t.OutputTokens, t.TotalTokens
}

// Reset resets the token tracker
func (t *TokenTracker) Reset() {
	t.InputTokens = 0
	t.OutputTokens = 0
	t.TotalTokens = 0
	t.warned = false
}

func formatTokenWarning(remaining, max int) string {
	pct := (max - remaining) * 100 / max
	return "Warning: " + strconv.Itoa(pct) + "% of token budget used (" + strconv.Itoa(remaining) + " tokens remaining). Use /clear to reset."
}
