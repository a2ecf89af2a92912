package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analyst   AnalystConfig   `mapstructure:"analyst"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Universe  UniverseConfig  `mapstructure:"universe"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds PostgreSQL or SQLite configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path of the SQLite database file
	Path string `mapstructure:"path"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// PortfolioTopic carries portfolio snapshots; empty disables the consumer
	PortfolioTopic string `mapstructure:"portfolio_topic"`
	GroupID        string `mapstructure:"group_id"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// FetcherConfig holds market data fetch pacing
type FetcherConfig struct {
	MinDelay       time.Duration `mapstructure:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// SummaryRateLimit is the quoteSummary request rate per second
	SummaryRateLimit float64  `mapstructure:"summary_rate_limit"`
	Symbols          []string `mapstructure:"symbols"`
}

// ScoringConfig holds scoring options
type ScoringConfig struct {
	LabelPolicy string `mapstructure:"label_policy"`
	TopRanked   int    `mapstructure:"top_ranked"`
}

// PublisherConfig holds result publishing defaults
type PublisherConfig struct {
	Sink      string `mapstructure:"sink"`
	OutputDir string `mapstructure:"output_dir"`
	TableName string `mapstructure:"table_name"`
}

// SchedulerConfig holds the background refresh schedule
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// CacheConfig holds analysis cache settings
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AnalystConfig holds the LLM market analyst settings
type AnalystConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int64         `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
	TopN     int    `mapstructure:"top_n"`
}

// UniverseConfig holds ticker universe sources
type UniverseConfig struct {
	SP500URL string        `mapstructure:"sp500_url"`
	File     string        `mapstructure:"file"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. An empty
// path uses defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FINFUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "finfun")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "./data/finfun.db")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "stock-scores")
	v.SetDefault("kafka.portfolio_topic", "")
	v.SetDefault("kafka.group_id", "finfun")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "finfun:")

	v.SetDefault("fetcher.min_delay", "500ms")
	v.SetDefault("fetcher.max_delay", "1s")
	v.SetDefault("fetcher.request_timeout", "15s")
	v.SetDefault("fetcher.summary_rate_limit", 2.0)
	v.SetDefault("fetcher.symbols", []string{})

	v.SetDefault("scoring.label_policy", "score_bins")
	v.SetDefault("scoring.top_ranked", 5)

	v.SetDefault("publisher.sink", "csv")
	v.SetDefault("publisher.output_dir", "./results")
	v.SetDefault("publisher.table_name", "")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "0 0 * * *")

	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("analyst.enabled", false)
	v.SetDefault("analyst.model", "claude-sonnet-4-5")
	v.SetDefault("analyst.max_tokens", 2048)
	v.SetDefault("analyst.timeout", "2m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.top_n", 5)

	v.SetDefault("universe.sp500_url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	v.SetDefault("universe.file", "./data/sp500_tickers.json")
	v.SetDefault("universe.timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for postgres")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be one of: postgres, sqlite")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must contain at least one broker")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	if c.Fetcher.MinDelay < 0 {
		return fmt.Errorf("fetcher.min_delay must not be negative")
	}
	if c.Fetcher.MaxDelay < c.Fetcher.MinDelay {
		return fmt.Errorf("fetcher.max_delay must not be less than fetcher.min_delay")
	}
	if c.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be positive")
	}
	if c.Fetcher.SummaryRateLimit <= 0 {
		return fmt.Errorf("fetcher.summary_rate_limit must be positive")
	}

	validPolicies := map[string]bool{"score_bins": true, "threshold": true, "none": true}
	if !validPolicies[c.Scoring.LabelPolicy] {
		return fmt.Errorf("scoring.label_policy must be one of: score_bins, threshold, none")
	}
	if c.Scoring.TopRanked < 1 {
		return fmt.Errorf("scoring.top_ranked must be at least 1")
	}

	validSinks := map[string]bool{"csv": true, "sql": true, "kafka": true}
	if !validSinks[c.Publisher.Sink] {
		return fmt.Errorf("publisher.sink must be one of: csv, sql, kafka")
	}

	if c.Scheduler.Enabled {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("scheduler.cron is invalid: %w", err)
		}
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Analyst.Enabled {
		if c.Analyst.APIKey == "" {
			return fmt.Errorf("analyst.api_key is required when the analyst is enabled")
		}
		if c.Analyst.MaxTokens < 1 {
			return fmt.Errorf("analyst.max_tokens must be at least 1")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// ConnectionString returns the database connection string for the driver
func (d *DatabaseConfig) ConnectionString() string {
	if d.Driver == "sqlite" {
		return "file:" + filepath.ToSlash(d.Path) + "?_pragma=busy_timeout(5000)"
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}
