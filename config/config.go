package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Media     MediaConfig     `mapstructure:"media"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres | sqlite
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"` // memory | redis
	IndexTTL  time.Duration `mapstructure:"index_ttl"`
	Size      int           `mapstructure:"size"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type FeedConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type MediaConfig struct {
	Backend            string `mapstructure:"backend"` // local | s3
	Dir                string `mapstructure:"dir"`
	URLPrefix          string `mapstructure:"url_prefix"`
	S3Bucket           string `mapstructure:"s3_bucket"`
	S3Region           string `mapstructure:"s3_region"`
	S3Endpoint         string `mapstructure:"s3_endpoint"`
	MaxUploadBytes     int64  `mapstructure:"max_upload_bytes"`
	MaxPixels          int64  `mapstructure:"max_pixels"`
	ThumbnailWorkers   int    `mapstructure:"thumbnail_workers"`
	ThumbnailQueueSize int    `mapstructure:"thumbnail_queue_size"`
}

type RateLimitConfig struct {
	RPS        float64 `mapstructure:"rps"`
	Burst      int     `mapstructure:"burst"`
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load 读取 config.yaml（可选）、.env 与 YATUBE_* 环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("YATUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "yatube.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.ttl", 14*24*time.Hour)
	v.SetDefault("jwt.cookie_name", "yatube_session")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.index_ttl", 20*time.Second)
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.key_prefix", "yatube:")

	v.SetDefault("feed.page_size", 10)

	v.SetDefault("media.backend", "local")
	v.SetDefault("media.dir", "media")
	v.SetDefault("media.url_prefix", "/media/")
	v.SetDefault("media.s3_bucket", "")
	v.SetDefault("media.s3_region", "us-east-2")
	v.SetDefault("media.s3_endpoint", "")
	v.SetDefault("media.max_upload_bytes", 5<<20)
	v.SetDefault("media.max_pixels", 40_000_000)
	v.SetDefault("media.thumbnail_workers", 2)
	v.SetDefault("media.thumbnail_queue_size", 256)

	v.SetDefault("rate_limit.rps", 10)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.login_rps", 0.2)
	v.SetDefault("rate_limit.login_burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "yatube")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("cache backend redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	switch c.Media.Backend {
	case "local":
	case "s3":
		if c.Media.S3Bucket == "" {
			return fmt.Errorf("media backend s3 requires media.s3_bucket")
		}
	default:
		return fmt.Errorf("unsupported media backend %q", c.Media.Backend)
	}
	if c.Feed.PageSize < 1 {
		return fmt.Errorf("feed.page_size must be positive")
	}
	return nil
}
