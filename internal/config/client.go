package config

import (
	"fmt"
	"net/url"
	"time"
)

// ClientConfig настройки клиента репликации
type ClientConfig struct {
	Log               LogConfig     `yaml:"log"`
	ServerURL         string        `yaml:"server_url"`
	DBPath            string        `yaml:"db_path"`
	BatchSize         int           `yaml:"batch_size"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout"` // больше heartbeat сервера; 0 отключает
}

// DefaultClient returns the built-in client defaults
func DefaultClient() *ClientConfig {
	return &ClientConfig{
		Log:               LogConfig{Level: "warn", Format: "text"},
		ServerURL:         "http://localhost:3001",
		DBPath:            "docsync-client.db",
		BatchSize:         50,
		RetryInterval:     5 * time.Second,
		PollInterval:      60 * time.Second,
		RequestTimeout:    30 * time.Second,
		StreamIdleTimeout: 75 * time.Second,
	}
}

// LoadClient returns defaults overlaid with the optional YAML file and
// the environment. Command-line flags are applied by the CLI afterwards.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClient()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	e := &env{}
	e.stringVar("SERVER", &cfg.ServerURL)
	e.stringVar("DB", &cfg.DBPath)
	e.intVar("BATCH_SIZE", &cfg.BatchSize)
	e.durationVar("RETRY_INTERVAL", &cfg.RetryInterval)
	e.durationVar("POLL_INTERVAL", &cfg.PollInterval)
	e.durationVar("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	e.durationVar("STREAM_IDLE_TIMEOUT", &cfg.StreamIdleTimeout)
	e.stringVar("LOG_LEVEL", &cfg.Log.Level)
	e.stringVar("LOG_FORMAT", &cfg.Log.Format)
	if e.err != nil {
		return nil, e.err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server url %q", ErrInvalidConfig, c.ServerURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is required", ErrInvalidConfig)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfig)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("%w: retry interval must be positive", ErrInvalidConfig)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative", ErrInvalidConfig)
	}
	if c.StreamIdleTimeout < 0 {
		return fmt.Errorf("%w: stream idle timeout must not be negative", ErrInvalidConfig)
	}
	return c.Log.validate()
}
