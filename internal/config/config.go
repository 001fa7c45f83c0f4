// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	LLM() LLMConfig
	Workspace() WorkspaceConfig
	Search() SearchConfig
	Browser() BrowserConfig
	Assistant() AssistantConfig
}

// Config holds the entire application configuration. Callers depend on
// Interface, not the concrete struct, so components can be wired with stub
// configs in tests.
type Config struct {
	LoggerC    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	LLMC       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	WorkspaceC WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	SearchC    SearchConfig    `mapstructure:"search" yaml:"search"`
	BrowserC   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	AssistantC AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
}

func (c *Config) Logger() LoggerConfig       { return c.LoggerC }
func (c *Config) LLM() LLMConfig             { return c.LLMC }
func (c *Config) Workspace() WorkspaceConfig { return c.WorkspaceC }
func (c *Config) Search() SearchConfig       { return c.SearchC }
func (c *Config) Browser() BrowserConfig     { return c.BrowserC }
func (c *Config) Assistant() AssistantConfig { return c.AssistantC }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMConfig defines the connection to the language-model backend. TextModel
// serves plain requests; VisionModel is selected only when an image payload
// is attached.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	TextModel   string        `mapstructure:"text_model" yaml:"text_model"`
	VisionModel string        `mapstructure:"vision_model" yaml:"vision_model"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxHistory  int           `mapstructure:"max_history" yaml:"max_history"`
}

// WorkspaceConfig pins the filesystem sandbox. Every create_folder,
// write_file, read_file and list_directory resolves under Root.
type WorkspaceConfig struct {
	Root            string `mapstructure:"root" yaml:"root"`
	PermissionsFile string `mapstructure:"permissions_file" yaml:"permissions_file"`
}

// SearchConfig tunes the web-search collaborator.
type SearchConfig struct {
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	MaxResults int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// BrowserConfig holds settings for the managed browser session that backs the
// screen-analysis and text-injection collaborators.
type BrowserConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
}

// AssistantConfig holds the interaction-loop settings.
type AssistantConfig struct {
	// ConfidenceThreshold is the floor under which a command is flagged as
	// uncertain and never auto-approved by the permission store.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "adjutant")
	v.SetDefault("logger.log_file", "adjutant.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.text_model", "gemini-2.5-flash")
	v.SetDefault("llm.vision_model", "gemini-2.5-pro")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.max_history", 10)

	// -- Workspace --
	v.SetDefault("workspace.root", "./workspace")
	v.SetDefault("workspace.permissions_file", "permissions.json")

	// -- Search --
	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.timeout", "15s")
	v.SetDefault("search.rate_limit", 1.0)

	// -- Browser --
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.headless", true)

	// -- Assistant --
	v.SetDefault("assistant.confidence_threshold", 0.6)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object,
// resolving the workspace root to an absolute path and validating the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "ADJUTANT_LLM_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the key if Unmarshal didn't pick it up.
	if cfg.LLMC.APIKey == "" {
		cfg.LLMC.APIKey = os.Getenv("ADJUTANT_LLM_API_KEY")
	}

	root, err := ResolveWorkspaceRoot(cfg.WorkspaceC.Root)
	if err != nil {
		return nil, err
	}
	cfg.WorkspaceC.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ResolveWorkspaceRoot expands "~", makes the path absolute, and creates the
// workspace directory if it does not exist yet. The returned path is the
// canonical sandbox root for the process lifetime.
func ResolveWorkspaceRoot(root string) (string, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return "", fmt.Errorf("failed to expand workspace root %q: %w", root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("could not create workspace directory %q: %w", abs, err)
	}
	return abs, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.LLMC.TextModel == "" {
		return fmt.Errorf("llm.text_model is a required configuration field")
	}
	if c.LLMC.MaxHistory <= 0 {
		return fmt.Errorf("llm.max_history must be a positive integer")
	}
	if c.WorkspaceC.Root == "" {
		return fmt.Errorf("workspace.root is a required configuration field")
	}
	if c.SearchC.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be a positive integer")
	}
	if t := c.AssistantC.ConfidenceThreshold; t < 0.0 || t > 1.0 {
		return fmt.Errorf("assistant.confidence_threshold must be between 0.0 and 1.0")
	}
	return nil
}
