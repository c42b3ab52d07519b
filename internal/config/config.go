package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CurrentConfigVersion is the config schema version this build reads
// and writes.
const CurrentConfigVersion = 1

// Config holds the per-repository settings. It lives at
// .codeatlas/config.json inside the analyzed repo; viper also accepts
// the yaml and toml spellings of the same base name.
type Config struct {
	Version    int              `json:"version" mapstructure:"version"`
	Ingest     IngestConfig     `json:"ingest" mapstructure:"ingest"`
	Chunking   ChunkingConfig   `json:"chunking" mapstructure:"chunking"`
	Embeddings EmbeddingsConfig `json:"embeddings" mapstructure:"embeddings"`
	Parser     ParserConfig     `json:"parser" mapstructure:"parser"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Watch      WatchConfig      `json:"watch" mapstructure:"watch"`
}

// IngestConfig controls file discovery.
type IngestConfig struct {
	// MaxFileSizeBytes skips source files larger than this.
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`

	// ExtraIgnoreDirs names directories to skip in addition to the
	// built-in set (.git, node_modules, __pycache__, ...).
	ExtraIgnoreDirs []string `json:"extraIgnoreDirs" mapstructure:"extraIgnoreDirs"`
}

// ChunkingConfig controls how files are cut into embedding chunks.
type ChunkingConfig struct {
	MaxClassLines int `json:"maxClassLines" mapstructure:"maxClassLines"`
	WindowSize    int `json:"windowSize" mapstructure:"windowSize"`
	WindowOverlap int `json:"windowOverlap" mapstructure:"windowOverlap"`
}

// EmbeddingsConfig selects the embedding backend. Provider is one of
// "command", "http", or "none"; with "none" analysis completes without
// ever contacting an embedder and semantic search is unavailable.
type EmbeddingsConfig struct {
	Provider string   `json:"provider" mapstructure:"provider"`
	Command  string   `json:"command,omitempty" mapstructure:"command"`
	Args     []string `json:"args,omitempty" mapstructure:"args"`
	Endpoint string   `json:"endpoint,omitempty" mapstructure:"endpoint"`
	Model    string   `json:"model,omitempty" mapstructure:"model"`

	// APIKeyEnv names the environment variable holding the bearer
	// token for the http provider. The key itself never goes in the
	// config file.
	APIKeyEnv string `json:"apiKeyEnv,omitempty" mapstructure:"apiKeyEnv"`

	BatchSize int `json:"batchSize" mapstructure:"batchSize"`
}

// ParserConfig controls the parse stage.
type ParserConfig struct {
	// Workers caps the parser worker pool. Zero picks a size from the
	// machine's CPU count.
	Workers int `json:"workers" mapstructure:"workers"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// WatchConfig controls the watch command's polling loop.
type WatchConfig struct {
	IntervalMs int `json:"intervalMs" mapstructure:"intervalMs"`
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Ingest: IngestConfig{
			MaxFileSizeBytes: 500 * 1024,
			ExtraIgnoreDirs:  []string{},
		},
		Chunking: ChunkingConfig{
			MaxClassLines: 100,
			WindowSize:    60,
			WindowOverlap: 10,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "none",
			BatchSize: 32,
		},
		Parser: ParserConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
		Watch: WatchConfig{
			IntervalMs: 2000,
			DebounceMs: 500,
		},
	}
}

// LoadConfig reads the config under repoRoot. A missing file yields
// DefaultConfig; a present file is merged over the defaults, so
// partial configs are fine.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, ".codeatlas"))
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// applyDefaults registers every leaf so values absent from the file
// fall back to DefaultConfig.
func applyDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("ingest.maxFileSizeBytes", d.Ingest.MaxFileSizeBytes)
	v.SetDefault("ingest.extraIgnoreDirs", d.Ingest.ExtraIgnoreDirs)
	v.SetDefault("chunking.maxClassLines", d.Chunking.MaxClassLines)
	v.SetDefault("chunking.windowSize", d.Chunking.WindowSize)
	v.SetDefault("chunking.windowOverlap", d.Chunking.WindowOverlap)
	v.SetDefault("embeddings.provider", d.Embeddings.Provider)
	v.SetDefault("embeddings.command", d.Embeddings.Command)
	v.SetDefault("embeddings.args", d.Embeddings.Args)
	v.SetDefault("embeddings.endpoint", d.Embeddings.Endpoint)
	v.SetDefault("embeddings.model", d.Embeddings.Model)
	v.SetDefault("embeddings.apiKeyEnv", d.Embeddings.APIKeyEnv)
	v.SetDefault("embeddings.batchSize", d.Embeddings.BatchSize)
	v.SetDefault("parser.workers", d.Parser.Workers)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("watch.intervalMs", d.Watch.IntervalMs)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
}

// Save writes the config as JSON to .codeatlas/config.json under
// repoRoot, creating the directory if needed.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".codeatlas")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks for values the rest of the pipeline cannot work
// with.
func (c *Config) Validate() error {
	if c.Version != CurrentConfigVersion {
		return &ConfigError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported config version %d (this build reads version %d)", c.Version, CurrentConfigVersion),
		}
	}
	if c.Ingest.MaxFileSizeBytes < 1 {
		return &ConfigError{Field: "ingest.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Chunking.MaxClassLines < 1 {
		return &ConfigError{Field: "chunking.maxClassLines", Message: "must be positive"}
	}
	if c.Chunking.WindowSize < 1 {
		return &ConfigError{Field: "chunking.windowSize", Message: "must be positive"}
	}
	if c.Chunking.WindowOverlap < 0 {
		return &ConfigError{Field: "chunking.windowOverlap", Message: "must not be negative"}
	}
	if c.Chunking.WindowOverlap >= c.Chunking.WindowSize {
		return &ConfigError{Field: "chunking.windowOverlap", Message: "must be smaller than windowSize"}
	}

	switch c.Embeddings.Provider {
	case "command":
		if c.Embeddings.Command == "" {
			return &ConfigError{Field: "embeddings.command", Message: `required when provider is "command"`}
		}
	case "http":
		if c.Embeddings.Endpoint == "" {
			return &ConfigError{Field: "embeddings.endpoint", Message: `required when provider is "http"`}
		}
	case "none":
	default:
		return &ConfigError{
			Field:   "embeddings.provider",
			Message: fmt.Sprintf(`unknown provider %q (expected "command", "http", or "none")`, c.Embeddings.Provider),
		}
	}
	if c.Embeddings.BatchSize < 1 {
		return &ConfigError{Field: "embeddings.batchSize", Message: "must be positive"}
	}

	if c.Parser.Workers < 0 {
		return &ConfigError{Field: "parser.workers", Message: "must not be negative"}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	if c.Watch.IntervalMs < 1 {
		return &ConfigError{Field: "watch.intervalMs", Message: "must be positive"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// ConfigError reports an invalid config value with the dotted path of
// the offending field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s': %s", e.Field, e.Message)
}
