package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/chat"
	"github.com/starford/muninn/internal/fulltext"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/llm"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/tools"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	Model    ModelConfig       `yaml:"model"`
	Fulltext FulltextConfig    `yaml:"fulltext"`
	Approval ApprovalConfig    `yaml:"approval"`
	Memory   MemoryConfig      `yaml:"memory"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Approval.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the vault directory and what gets indexed.
type VaultConfig struct {
	Path           string   `yaml:"path"`
	TextExtensions []string `yaml:"text_extensions"`
	Ignore         []string `yaml:"ignore"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.TextExtensions, validation.Each(validation.Required)),
		validation.Field(&c.Ignore, validation.Each(validation.Required)),
	)
}

// ModelConfig selects the language model and how turns are generated.
type ModelConfig struct {
	Provider        string      `yaml:"provider"`
	Name            string      `yaml:"name"`
	APIKey          string      `yaml:"api_key"`
	BaseURL         string      `yaml:"base_url"`
	Temperature     float32     `yaml:"temperature"`
	MaxOutputTokens int32       `yaml:"max_output_tokens"`
	MaxToolRounds   int         `yaml:"max_tool_rounds"`
	Retry           RetryConfig `yaml:"retry"`
}

// Validate validates the model configuration.
func (c *ModelConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(llm.ProviderGemini, llm.ProviderOllama)),
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Temperature, validation.Min(float32(0)), validation.Max(float32(1))),
		validation.Field(&c.MaxOutputTokens, validation.Required, validation.Min(int32(1))),
		validation.Field(&c.MaxToolRounds, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return c.Retry.Validate()
}

// LLM returns the provider selection for llm.NewModel.
func (c *ModelConfig) LLM() llm.ModelConfig {
	return llm.ModelConfig{
		Provider: c.Provider,
		Name:     c.Name,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
	}
}

// RetryConfig controls retries when a model step fails to open.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.Delay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(c.Delay)),
	)
}

// LLM converts c for llm.NewRunner.
func (c *RetryConfig) LLM() llm.RetryConfig {
	return llm.RetryConfig{
		MaxRetries: c.MaxRetries,
		RetryDelay: c.Delay,
		MaxDelay:   c.MaxDelay,
	}
}

// FulltextConfig holds the SQLite content-search mirror settings. The
// mirror is rebuilt from the vault on every start.
type FulltextConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// ApprovalConfig holds approval gate settings.
type ApprovalConfig struct {
	HistorySize int `yaml:"history_size"`
}

// Validate validates the approval configuration.
func (c *ApprovalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HistorySize, validation.Required, validation.Min(1)),
	)
}

// MemoryConfig locates the assistant's memory log inside the vault.
type MemoryConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	retry := llm.DefaultRetryConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:           "./vault",
			TextExtensions: index.DefaultTextExtensions,
			Ignore:         storage.DefaultIgnore,
		},
		Model: ModelConfig{
			Provider:        llm.ProviderGemini,
			Name:            "gemini-2.5-flash",
			Temperature:     chat.DefaultTemperature,
			MaxOutputTokens: chat.DefaultMaxOutputTokens,
			MaxToolRounds:   llm.DefaultMaxSteps,
			Retry: RetryConfig{
				MaxRetries: retry.MaxRetries,
				Delay:      retry.RetryDelay,
				MaxDelay:   retry.MaxDelay,
			},
		},
		Fulltext: FulltextConfig{
			Enabled: true,
			DSN:     fulltext.MemoryDSN,
		},
		Approval: ApprovalConfig{
			HistorySize: approval.DefaultHistorySize,
		},
		Memory: MemoryConfig{
			Path: tools.DefaultMemoryPath,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
