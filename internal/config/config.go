package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Feed     FeedConfig     `yaml:"feed"`
	Images   ImageConfig    `yaml:"images"`
	Workers  WorkerConfig   `yaml:"workers"`
	Cycle    CycleConfig    `yaml:"cycle"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type TelegramConfig struct {
	Token     string  `yaml:"token"`
	ChannelID int64   `yaml:"channel_id"`
	AdminIDs  []int64 `yaml:"admin_ids"`
	// PacingDelay is slept after every successful send, independent of any
	// rate-limit backoff.
	PacingDelay time.Duration `yaml:"pacing_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Enabled reports whether the delivery-event stream is configured at all.
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

type FeedConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	// DefaultUserID is polled when no sources are tracked yet.
	DefaultUserID string `yaml:"default_user_id"`
}

type ImageConfig struct {
	MinDimension    int           `yaml:"min_dimension"`
	MaxDimension    int           `yaml:"max_dimension"`
	JPEGQuality     int           `yaml:"jpeg_quality"`
	MaxFileSize     int64         `yaml:"max_file_size"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	SafetyEndpoint  string        `yaml:"safety_endpoint"`
	SafetyThreshold float64       `yaml:"safety_threshold"`
}

type WorkerConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type CycleConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	// Cutoff bounds the first-ever run: entries published before it are never
	// delivered, even before a watermark exists.
	Cutoff time.Time `yaml:"cutoff"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.ChannelID == 0 {
		return fmt.Errorf("telegram.channel_id is required")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "http://localhost:1200/"
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 10 * time.Second
	}
	if c.Feed.MaxAttempts == 0 {
		c.Feed.MaxAttempts = 5
	}
	if c.Feed.RetryInterval == 0 {
		c.Feed.RetryInterval = 15 * time.Second
	}
	if c.Telegram.PacingDelay == 0 {
		c.Telegram.PacingDelay = time.Second
	}
	if c.Telegram.MaxAttempts == 0 {
		c.Telegram.MaxAttempts = 5
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "feed_poster"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "deliveries"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "delivered_posts"
	}
	if c.Images.MinDimension == 0 {
		c.Images.MinDimension = 200
	}
	if c.Images.MaxDimension == 0 {
		c.Images.MaxDimension = 1280
	}
	if c.Images.JPEGQuality == 0 {
		c.Images.JPEGQuality = 85
	}
	if c.Images.MaxFileSize == 0 {
		c.Images.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Images.FetchTimeout == 0 {
		c.Images.FetchTimeout = 30 * time.Second
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 64
	}
	if c.Cycle.Interval == 0 {
		c.Cycle.Interval = 6 * time.Hour
	}
	if c.Cycle.Timeout == 0 {
		c.Cycle.Timeout = 30 * time.Minute
	}
	if c.Cycle.Cutoff.IsZero() {
		c.Cycle.Cutoff = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
