// Package config loads server configuration from defaults, an optional YAML
// file, an optional .env file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Session stores
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Post-game hooks and publishers
const (
	HookNone    = "none"
	HookLog     = "log"
	HookSummary = "summary"

	PublisherNone = "none"
	PublisherGit  = "git"
	PublisherNATS = "nats"
)

// DefaultPath is the YAML file read when no path is given
const DefaultPath = "config.yaml"

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	PostGame  PostGameConfig  `yaml:"postgame"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Game      GameConfig      `yaml:"game"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	StaticDir       string        `yaml:"static_dir"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CORSOrigins lists browser origins allowed to call the API with cookies
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig selects the persistence backend. When Type is empty it is
// derived from DatabaseURL.
type StorageConfig struct {
	Type        string `yaml:"type"`
	DatabaseURL string `yaml:"database_url"`
}

type SessionsConfig struct {
	Store    string        `yaml:"store"`
	TTL      time.Duration `yaml:"ttl"`
	RedisURL string        `yaml:"redis_url"`
}

type PostGameConfig struct {
	Hook        string        `yaml:"hook"`
	Publisher   string        `yaml:"publisher"`
	LogPath     string        `yaml:"log_path"`
	SummaryDir  string        `yaml:"summary_dir"`
	SnapshotDir string        `yaml:"snapshot_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	Async       bool          `yaml:"async"`

	GitHubToken string `yaml:"github_token"`
	GitHubRepo  string `yaml:"github_repo"`
	GitBranch   string `yaml:"git_branch"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// RateLimitConfig limits requests per client IP on the auth endpoints
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type GameConfig struct {
	MaxCodeAttempts int `yaml:"max_code_attempts"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			StaticDir:       "public",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DatabaseURL: "sqlite:///mahjong.db",
		},
		Sessions: SessionsConfig{
			Store: SessionsMemory,
			TTL:   24 * time.Hour,
		},
		PostGame: PostGameConfig{
			Hook:        HookLog,
			Publisher:   PublisherNone,
			LogPath:     "game_log.txt",
			SummaryDir:  "game_summaries",
			SnapshotDir: "backups",
			Timeout:     20 * time.Second,
			GitBranch:   "main",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Game: GameConfig{
			MaxCodeAttempts: 64,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MJTRACK_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// godotenv never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("SESSION_STORE"); v != "" {
		c.Sessions.Store = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Sessions.RedisURL = v
	}
	if v := os.Getenv("POSTGAME_HOOK"); v != "" {
		c.PostGame.Hook = v
	}
	if v := os.Getenv("POSTGAME_PUBLISHER"); v != "" {
		c.PostGame.Publisher = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.PostGame.GitHubToken = v
	}
	if v := os.Getenv("GITHUB_REPO"); v != "" {
		c.PostGame.GitHubRepo = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.PostGame.NATSURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolve fills in values derived from other settings
func (c *Config) resolve() {
	if c.Storage.Type == "" {
		c.Storage.Type = storageTypeFromURL(c.Storage.DatabaseURL)
	}
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	c.Sessions.Store = strings.ToLower(c.Sessions.Store)
	c.PostGame.Hook = strings.ToLower(c.PostGame.Hook)
	c.PostGame.Publisher = strings.ToLower(c.PostGame.Publisher)
}

func storageTypeFromURL(url string) string {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return StorageSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return StoragePostgres
	default:
		return StorageMemory
	}
}

// SQLitePath returns the file path named by a sqlite:/// URL. Three slashes
// mean a relative path and four an absolute one.
func (s StorageConfig) SQLitePath() string {
	path := strings.TrimPrefix(s.DatabaseURL, "sqlite:///")
	if path == "" || path == s.DatabaseURL {
		return "mahjong.db"
	}
	return path
}

// Validate rejects unknown choices and missing settings for selected backends
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite:
		if !strings.HasPrefix(c.Storage.DatabaseURL, "sqlite:///") {
			errs = append(errs, errors.New("storage.database_url must be sqlite:///<path> for sqlite storage"))
		}
	case StoragePostgres:
		if storageTypeFromURL(c.Storage.DatabaseURL) != StoragePostgres {
			errs = append(errs, errors.New("storage.database_url must be a postgres:// URL for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}

	switch c.Sessions.Store {
	case SessionsMemory:
	case SessionsRedis:
		if c.Sessions.RedisURL == "" {
			errs = append(errs, errors.New("sessions.redis_url is required for redis sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.store %q", c.Sessions.Store))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, errors.New("sessions.ttl must be positive"))
	}

	switch c.PostGame.Hook {
	case HookNone, HookLog, HookSummary:
	default:
		errs = append(errs, fmt.Errorf("unknown postgame.hook %q", c.PostGame.Hook))
	}
	switch c.PostGame.Publisher {
	case PublisherNone, PublisherGit:
	case PublisherNATS:
		if c.PostGame.NATSURL == "" {
			errs = append(errs, errors.New("postgame.nats_url is required for the nats publisher"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown postgame.publisher %q", c.PostGame.Publisher))
	}
	if c.PostGame.Publisher != PublisherNone && c.PostGame.Hook != HookSummary {
		errs = append(errs, errors.New("postgame.publisher requires postgame.hook: summary"))
	}

	if c.PostGame.Timeout <= 0 {
		errs = append(errs, errors.New("postgame.timeout must be positive"))
	} else if !c.PostGame.Async && c.Server.WriteTimeout > 0 && c.PostGame.Timeout >= c.Server.WriteTimeout {
		errs = append(errs, fmt.Errorf("postgame.timeout (%s) must be below server.write_timeout (%s) unless postgame.async is set",
			c.PostGame.Timeout, c.Server.WriteTimeout))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit.requests_per_second and rate_limit.burst must be positive"))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", level)
	}
	return l, nil
}
