package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultDirName      = ".docquery"
	DefaultFileName     = "config.toml"
	DefaultProvider     = "ollama"
	DefaultSearchLimit  = 5
	DefaultMaxTopK      = 50
	DefaultSnippetChars = 500
)

// Config holds all docquery settings. Zero values for optional fields
// are replaced with defaults by applyDefaults.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Embedder EmbedderConfig `toml:"embedder"`
	Search   SearchConfig   `toml:"search"`
	Watch    WatchConfig    `toml:"watch"`
}

// StorageConfig locates the markdown corpus and the chunk cache.
type StorageConfig struct {
	// Dir is the directory scanned for *.md documents (required).
	Dir string `toml:"dir"`

	// CachePath is the SQLite cache file.
	// Empty selects <config dir>/cache.db.
	CachePath string `toml:"cache_path"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the provider's default embedding model.
	Model string `toml:"model"`

	// Dimensions overrides the model's reported vector size.
	Dimensions int `toml:"dimensions"`

	// APIKey authenticates against hosted providers. Ignored by ollama.
	APIKey string `toml:"api_key"`

	// TimeoutSeconds bounds a single embedding request.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// RequestsPerSecond caps the sustained request rate.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SearchConfig sets query-time defaults.
type SearchConfig struct {
	// Limit is the default number of results when the caller does not
	// specify top_k.
	Limit int `toml:"limit"`

	// MaxTopK caps top_k requested by callers.
	MaxTopK int `toml:"max_top_k"`

	// Floor excludes results scoring below it when positive and the
	// caller does not supply a floor of their own.
	Floor float64 `toml:"similarity_floor"`

	// SnippetChars truncates result content in tool output.
	SnippetChars int `toml:"snippet_chars"`
}

// WatchConfig controls filesystem watching.
type WatchConfig struct {
	// Enabled re-runs reconciliation when the storage directory changes.
	Enabled bool `toml:"enabled"`

	// DebounceMillis coalesces bursts of filesystem events.
	DebounceMillis int `toml:"debounce_millis"`
}

// DefaultPath returns the default config file location, creating the
// config directory if needed.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName), nil
}

// DefaultCachePath returns the default cache database location.
func DefaultCachePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, DefaultDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from the given path. A missing file yields
// an all-defaults Config rather than an error; a malformed file is an
// error so a typo is never silently ignored.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes configuration to the given path with restricted
// permissions.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = DefaultProvider
	}
	if cfg.Search.Limit <= 0 {
		cfg.Search.Limit = DefaultSearchLimit
	}
	if cfg.Search.MaxTopK <= 0 {
		cfg.Search.MaxTopK = DefaultMaxTopK
	}
	if cfg.Search.SnippetChars <= 0 {
		cfg.Search.SnippetChars = DefaultSnippetChars
	}
	if cfg.Watch.DebounceMillis <= 0 {
		cfg.Watch.DebounceMillis = 500
	}
}
