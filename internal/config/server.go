package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// ServerConfig настройки sync сервера
type ServerConfig struct {
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	NATS        NATSConfig        `yaml:"nats"`
	Replication ReplicationConfig `yaml:"replication"`

	// Файл конфигурации и -version задаются только флагами
	ConfigFile  string `yaml:"-"`
	ShowVersion bool   `yaml:"-"`
}

// HTTPConfig настройки HTTP сервера
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig настройки авторитетного хранилища
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	SQLitePath    string `yaml:"sqlite_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// NATSConfig настройки межсерверной рассылки сигналов. Пустой URL отключает мост.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// ReplicationConfig параметры pull/push/pullStream
type ReplicationConfig struct {
	DefaultBatchSize  int           `yaml:"default_batch_size"`
	MaxBatchSize      int           `yaml:"max_batch_size"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	// PushRateLimit push запросов с одного адреса за PushRateWindow; 0 отключает лимит
	PushRateLimit  int           `yaml:"push_rate_limit"`
	PushRateWindow time.Duration `yaml:"push_rate_window"`
}

// DefaultServer returns the built-in server defaults
func DefaultServer() *ServerConfig {
	return &ServerConfig{
		Log: LogConfig{Level: "info", Format: "auto"},
		HTTP: HTTPConfig{
			Addr:            ":3001",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:        DriverSQLite,
			SQLitePath:    "docsync.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "docsync",
		},
		Replication: ReplicationConfig{
			DefaultBatchSize:  50,
			MaxBatchSize:      1000,
			HeartbeatInterval: 25 * time.Second,
			PushRateWindow:    time.Minute,
		},
	}
}

func serverFlags(cfg *ServerConfig, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("docsync-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Path to YAML config file")
	fs.BoolVar(&cfg.ShowVersion, "version", cfg.ShowVersion, "Show version information")

	fs.StringVar(&cfg.HTTP.Addr, "addr", cfg.HTTP.Addr, "HTTP listen address")
	fs.DurationVar(&cfg.HTTP.ShutdownTimeout, "shutdown-timeout", cfg.HTTP.ShutdownTimeout, "Graceful shutdown timeout")

	fs.StringVar(&cfg.Storage.Driver, "storage", cfg.Storage.Driver, "Storage driver: sqlite or mongo")
	fs.StringVar(&cfg.Storage.SQLitePath, "sqlite-path", cfg.Storage.SQLitePath, "SQLite database file")
	fs.StringVar(&cfg.Storage.MongoURI, "mongo-uri", cfg.Storage.MongoURI, "MongoDB connection URI")
	fs.StringVar(&cfg.Storage.MongoDatabase, "mongo-db", cfg.Storage.MongoDatabase, "MongoDB database name")

	fs.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS URL for cross-instance change signals (optional)")

	fs.IntVar(&cfg.Replication.DefaultBatchSize, "batch-size", cfg.Replication.DefaultBatchSize, "Default pull batch size")
	fs.IntVar(&cfg.Replication.MaxBatchSize, "max-batch-size", cfg.Replication.MaxBatchSize, "Maximum pull batch size")
	fs.DurationVar(&cfg.Replication.HeartbeatInterval, "heartbeat", cfg.Replication.HeartbeatInterval, "pullStream heartbeat interval")
	fs.IntVar(&cfg.Replication.PushRateLimit, "push-rate", cfg.Replication.PushRateLimit, "Push requests per client and window, 0 disables")
	fs.DurationVar(&cfg.Replication.PushRateWindow, "push-rate-window", cfg.Replication.PushRateWindow, "Push rate limit window")

	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format: auto, text, json")

	return fs
}

// LoadServer builds the server configuration from args (without program name).
// Flags are parsed twice: first to locate -config, then over the file and
// environment values so that explicit flags win.
func LoadServer(args []string, output io.Writer) (*ServerConfig, error) {
	probe := DefaultServer()
	if err := serverFlags(probe, output).Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultServer()
	if probe.ConfigFile != "" {
		if err := loadFile(probe.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := serverFlags(cfg, output).Parse(args); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) applyEnv() error {
	e := &env{}
	e.stringVar("ADDR", &c.HTTP.Addr)
	e.durationVar("SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	e.stringVar("STORAGE", &c.Storage.Driver)
	e.stringVar("SQLITE_PATH", &c.Storage.SQLitePath)
	e.stringVar("MONGO_URI", &c.Storage.MongoURI)
	e.stringVar("MONGO_DB", &c.Storage.MongoDatabase)
	e.stringVar("NATS_URL", &c.NATS.URL)
	e.intVar("BATCH_SIZE", &c.Replication.DefaultBatchSize)
	e.intVar("MAX_BATCH_SIZE", &c.Replication.MaxBatchSize)
	e.durationVar("HEARTBEAT", &c.Replication.HeartbeatInterval)
	e.intVar("PUSH_RATE", &c.Replication.PushRateLimit)
	e.durationVar("PUSH_RATE_WINDOW", &c.Replication.PushRateWindow)
	e.stringVar("LOG_LEVEL", &c.Log.Level)
	e.stringVar("LOG_FORMAT", &c.Log.Format)
	return e.err
}

// Validate checks that the configuration is usable
func (c *ServerConfig) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo uri and database are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	r := c.Replication
	if r.MaxBatchSize < 1 {
		return fmt.Errorf("%w: max batch size must be positive", ErrInvalidConfig)
	}
	if r.DefaultBatchSize < 1 || r.DefaultBatchSize > r.MaxBatchSize {
		return fmt.Errorf("%w: batch size must be in [1, %d]", ErrInvalidConfig, r.MaxBatchSize)
	}
	if r.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat interval must be positive", ErrInvalidConfig)
	}
	if r.PushRateLimit < 0 {
		return fmt.Errorf("%w: push rate must not be negative", ErrInvalidConfig)
	}
	if r.PushRateLimit > 0 && r.PushRateWindow <= 0 {
		return fmt.Errorf("%w: push rate window must be positive", ErrInvalidConfig)
	}

	return c.Log.validate()
}
