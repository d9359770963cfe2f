package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MatcherConfig tunes symptom matching.
type MatcherConfig struct {
	Threshold float64 `yaml:"threshold"`
	Stopwords string  `yaml:"stopwords"`
}

// KnowledgeConfig selects where the symptom catalog is loaded from.
type KnowledgeConfig struct {
	Source   string          `yaml:"source"`
	Path     string          `yaml:"path,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// PostgresConfig contains connection details for the catalog database.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// TelegramConfig configures the Telegram long-polling transport.
type TelegramConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Token           string `yaml:"token,omitempty"`
	APIURL          string `yaml:"api_url"`
	PollTimeoutSecs int    `yaml:"poll_timeout_secs"`
}

// HTTPConfig configures the HTTP chat API.
type HTTPConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RateLimitConfig limits messages per chat.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
	Redis   *RedisConfig  `yaml:"redis,omitempty"`
}

// RedisConfig contains connection details for the redis rate limiter.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// AnalyticsConfig configures query event publishing to Kafka.
type AnalyticsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"buffer_size"`
}

// MetricsConfig toggles the Prometheus endpoint on the HTTP router.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Matcher   MatcherConfig   `yaml:"matcher"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/symptombot/config.yaml.
// If neither exists, it writes defaults to ~/.config/symptombot/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports settings that would stop the bot from starting correctly.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("matcher.threshold must be in [0, 1), got %v", c.Matcher.Threshold))
	}
	switch c.Matcher.Stopwords {
	case "none", "english":
	default:
		errs = append(errs, fmt.Errorf("matcher.stopwords: unknown list %q", c.Matcher.Stopwords))
	}
	switch c.Knowledge.Source {
	case "embedded":
	case "file":
		if c.Knowledge.Path == "" {
			errs = append(errs, errors.New("knowledge.path is required for the file source"))
		}
	case "postgres":
		if c.Knowledge.Postgres == nil {
			errs = append(errs, errors.New("knowledge.postgres is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("knowledge.source: unknown source %q", c.Knowledge.Source))
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required when telegram is enabled"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("ratelimit.limit and ratelimit.window must be positive"))
		}
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.RateLimit.Redis == nil || c.RateLimit.Redis.Addr == "" {
				errs = append(errs, errors.New("ratelimit.redis.addr is required for the redis backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("ratelimit.backend: unknown backend %q", c.RateLimit.Backend))
		}
	}
	if c.Analytics.Enabled && len(c.Analytics.Brokers) == 0 {
		errs = append(errs, errors.New("analytics.brokers is required when analytics is enabled"))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "symptombot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Matcher:   MatcherConfig{Threshold: 0.9, Stopwords: "none"},
		Knowledge: KnowledgeConfig{Source: "embedded"},
		Telegram: TelegramConfig{
			APIURL:          "https://api.telegram.org",
			PollTimeoutSecs: 30,
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{Backend: "memory", Limit: 20, Window: time.Minute},
		Analytics: AnalyticsConfig{Topic: "symptombot.queries", BufferSize: 256},
		Metrics:   MetricsConfig{Enabled: true},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Matcher.Stopwords == "" {
		cfg.Matcher.Stopwords = "none"
	}
	if cfg.Knowledge.Source == "" {
		cfg.Knowledge.Source = "embedded"
	}
	if pg := cfg.Knowledge.Postgres; pg != nil {
		if pg.Host == "" {
			pg.Host = "localhost"
		}
		if pg.Port == 0 {
			pg.Port = 5432
		}
		if pg.SSLMode == "" {
			pg.SSLMode = "disable"
		}
		if pg.MaxOpenConns == 0 {
			pg.MaxOpenConns = 5
		}
		if pg.MaxIdleConns == 0 {
			pg.MaxIdleConns = 2
		}
		if pg.ConnMaxLifetime == 0 {
			pg.ConnMaxLifetime = 30 * time.Minute
		}
	}
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.Telegram.PollTimeoutSecs == 0 {
		cfg.Telegram.PollTimeoutSecs = 30
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if r := cfg.RateLimit.Redis; r != nil && r.KeyPrefix == "" {
		r.KeyPrefix = "symptombot:rl:"
	}
	if cfg.Analytics.Topic == "" {
		cfg.Analytics.Topic = "symptombot.queries"
	}
	if cfg.Analytics.BufferSize == 0 {
		cfg.Analytics.BufferSize = 256
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("SYMPTOMBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
		cfg.Telegram.Enabled = true
	}
	if v := os.Getenv("SYMPTOMBOT_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = port
		}
	}
	if v := os.Getenv("SYMPTOMBOT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SYMPTOMBOT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SYMPTOMBOT_KNOWLEDGE_SOURCE"); v != "" {
		cfg.Knowledge.Source = v
	}
	if v := os.Getenv("SYMPTOMBOT_KNOWLEDGE_PATH"); v != "" {
		cfg.Knowledge.Path = v
	}
	if v := os.Getenv("SYMPTOMBOT_POSTGRES_HOST"); v != "" {
		postgresConfig(cfg).Host = v
	}
	if v := os.Getenv("SYMPTOMBOT_POSTGRES_PASSWORD"); v != "" {
		postgresConfig(cfg).Password = v
	}
	if v := os.Getenv("SYMPTOMBOT_REDIS_ADDR"); v != "" {
		if cfg.RateLimit.Redis == nil {
			cfg.RateLimit.Redis = &RedisConfig{KeyPrefix: "symptombot:rl:"}
		}
		cfg.RateLimit.Redis.Addr = v
	}
	if v := os.Getenv("SYMPTOMBOT_KAFKA_BROKERS"); v != "" {
		cfg.Analytics.Brokers = strings.Split(v, ",")
	}
}

func postgresConfig(cfg *AppConfig) *PostgresConfig {
	if cfg.Knowledge.Postgres == nil {
		cfg.Knowledge.Postgres = &PostgresConfig{}
		applyConfigDefaults(cfg)
	}
	return cfg.Knowledge.Postgres
}
