package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Site     SiteConfig     `mapstructure:"site"`
	Files    FilesConfig    `mapstructure:"files"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the trigger/status surface settings
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SiteConfig describes the crawled storefront and how politely to fetch it
type SiteConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	MenuURL              string        `mapstructure:"menu_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	PolitenessDelay      time.Duration `mapstructure:"politeness_delay"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	Workers              int           `mapstructure:"workers"`
	UserAgent            string        `mapstructure:"user_agent"`
	Proxies              []string      `mapstructure:"proxies"`
	InsecureSkipVerify   bool          `mapstructure:"insecure_skip_verify"`
}

// FilesConfig holds the JSON artefacts written by a run
type FilesConfig struct {
	Menu  string `mapstructure:"menu"`
	Raw   string `mapstructure:"raw"`
	Dedup string `mapstructure:"dedup"`
}

// StoreConfig selects the persisted store
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	BatchSize int    `mapstructure:"batch_size"`
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// DatabaseConfig holds postgres configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	Database   int           `mapstructure:"database"`
	VisitedTTL time.Duration `mapstructure:"visited_ttl"`
	StatusKey  string        `mapstructure:"status_key"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from a YAML file with environment variable overrides.
// An empty path searches ./config.yaml; a missing file leaves defaults and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// The hosting platform injects PORT.
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if c.Site.Workers < 1 {
		return fmt.Errorf("site.workers must be at least 1, got %d", c.Site.Workers)
	}
	if c.Store.BatchSize < 1 {
		return fmt.Errorf("store.batch_size must be at least 1, got %d", c.Store.BatchSize)
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.host", "0.0.0.0")

	v.SetDefault("site.base_url", "https://fouanistore.com")
	v.SetDefault("site.menu_url", "https://fouanistore.com/public/ng/en")
	v.SetDefault("site.timeout", 30*time.Second)
	v.SetDefault("site.max_retries", 3)
	v.SetDefault("site.politeness_delay", time.Second)
	v.SetDefault("site.max_requests_per_second", 5)
	v.SetDefault("site.workers", 1)
	v.SetDefault("site.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("site.proxies", []string{})
	v.SetDefault("site.insecure_skip_verify", false)

	v.SetDefault("files.menu", "menu_structure.json")
	v.SetDefault("files.raw", "products.json")
	v.SetDefault("files.dedup", "products_dedup.json")

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.batch_size", 1000)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "storesync")
	v.SetDefault("database.user", "storesync")
	v.SetDefault("database.password", "storesync")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "abc_lectronics")
	v.SetDefault("mongo.collection", "products")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.visited_ttl", 24*time.Hour)
	v.SetDefault("redis.status_key", "storesync:status")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
