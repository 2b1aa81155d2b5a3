package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the verseapi configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Policy    PolicyConfig    `yaml:"policy"`
	Search    SearchConfig    `yaml:"search"`
	CORS      CORSConfig      `yaml:"cors"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AuthConfig holds JWT settings for the principal resolver and /login.
type AuthConfig struct {
	Secret         string `yaml:"secret"`
	TokenExpiryMin int    `yaml:"token_expiry_min"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// CacheConfig holds per-resource-kind TTLs in seconds; chosen by expected
// volatility of the underlying data. There is no explicit invalidation —
// staleness is bounded by TTL only.
type CacheConfig struct {
	TagCatalogueTTLSec int `yaml:"tag_catalogue_ttl_sec"`
	TagVersesTTLSec    int `yaml:"tag_verses_ttl_sec"`
	ChapterTTLSec      int `yaml:"chapter_ttl_sec"`
	ChaptersTTLSec     int `yaml:"chapters_ttl_sec"`
	VerseTTLSec        int `yaml:"verse_ttl_sec"`
	ListingTTLSec      int `yaml:"listing_ttl_sec"`
	EmbeddingTTLSec    int `yaml:"embedding_ttl_sec"`
	SearchTTLSec       int `yaml:"search_ttl_sec"`
}

// PolicyConfig holds the guest access policy constants.
type PolicyConfig struct {
	FirstChapter      int      `yaml:"first_chapter"`
	GuestChapterLimit int      `yaml:"guest_chapter_limit"`
	GuestListingLimit int      `yaml:"guest_listing_limit"`
	GuestTagLimit     int      `yaml:"guest_tag_limit"`
	GuestTagCatalogue int      `yaml:"guest_tag_catalogue"`
	GuestTags         []string `yaml:"guest_tags"`
}

// SearchConfig holds semantic search settings.
type SearchConfig struct {
	OverfetchFactor int `yaml:"overfetch_factor"`
	MaxTopK         int `yaml:"max_top_k"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Auth.TokenExpiryMin <= 0 {
		c.Auth.TokenExpiryMin = 60
	}
	if c.Cache.TagCatalogueTTLSec <= 0 {
		c.Cache.TagCatalogueTTLSec = 86400
	}
	if c.Cache.TagVersesTTLSec <= 0 {
		c.Cache.TagVersesTTLSec = 86400
	}
	if c.Cache.ChapterTTLSec <= 0 {
		c.Cache.ChapterTTLSec = 43200
	}
	if c.Cache.ChaptersTTLSec <= 0 {
		c.Cache.ChaptersTTLSec = 43200
	}
	if c.Cache.VerseTTLSec <= 0 {
		c.Cache.VerseTTLSec = 43200
	}
	if c.Cache.ListingTTLSec <= 0 {
		c.Cache.ListingTTLSec = 43200
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 86400
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 1800
	}
	if c.Policy.FirstChapter <= 0 {
		c.Policy.FirstChapter = 1
	}
	if c.Policy.GuestChapterLimit <= 0 {
		c.Policy.GuestChapterLimit = 5
	}
	if c.Policy.GuestListingLimit <= 0 {
		c.Policy.GuestListingLimit = 5
	}
	if c.Policy.GuestTagLimit <= 0 {
		c.Policy.GuestTagLimit = 3
	}
	if c.Policy.GuestTagCatalogue <= 0 {
		c.Policy.GuestTagCatalogue = 3
	}
	if len(c.Policy.GuestTags) == 0 {
		c.Policy.GuestTags = []string{"Knowledge", "Freedom", "Self"}
	}
	if c.Search.OverfetchFactor <= 0 {
		c.Search.OverfetchFactor = 33
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 50
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "verseapi:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
