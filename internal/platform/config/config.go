package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Ledger backends.
const (
	LedgerSQL   = "sql"
	LedgerRedis = "redis"
)

// Config is the full process configuration, parsed from the environment.
type Config struct {
	Server   Server
	Store    Store
	Redis    RedisConfig
	Kafka    KafkaConfig
	Twilio   TwilioConfig
	Dispatch DispatchConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"BLOODLINK_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Store selects where donors, requests and notification records live.
type Store struct {
	Driver        string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./data/bloodlink.db"`
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"sql"`
}

// RedisConfig configures the optional Redis ledger backend.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional delivery-outcome event stream.
type KafkaConfig struct {
	Brokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	OutcomeTopic string   `env:"KAFKA_OUTCOME_TOPIC" envDefault:"bloodlink.notification-outcomes"`
	Partitions   int32    `env:"KAFKA_OUTCOME_PARTITIONS" envDefault:"3"`
}

// TwilioConfig holds WhatsApp transport credentials. All three of SID,
// token and sender must be present for the transport to be considered
// configured.
type TwilioConfig struct {
	AccountSID   string        `env:"TWILIO_ACCOUNT_SID"`
	AuthToken    string        `env:"TWILIO_AUTH_TOKEN"`
	WhatsAppFrom string        `env:"TWILIO_WHATSAPP_FROM"`
	BaseURL      string        `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com"`
	Timeout      time.Duration `env:"TWILIO_TIMEOUT" envDefault:"10s"`
}

// DispatchConfig tunes the notification fan-out and message rendering.
type DispatchConfig struct {
	Concurrency      int           `env:"DISPATCH_CONCURRENCY" envDefault:"8"`
	BreakerThreshold int           `env:"TRANSPORT_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"TRANSPORT_BREAKER_COOLDOWN" envDefault:"30s"`
	RequestLinkBase  string        `env:"REQUEST_LINK_BASE_URL" envDefault:"http://localhost:5173"`
	Locale           string        `env:"MESSAGE_LOCALE" envDefault:"en"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the environment and validates cross-field constraints.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Store.LedgerBackend {
	case LedgerSQL:
	case LedgerRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required when LEDGER_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND %q", c.Store.LedgerBackend)
	}
	if c.Dispatch.Concurrency < 1 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be at least 1")
	}
	return nil
}

// TransportConfigured reports whether outbound messaging is available.
func (c Config) TransportConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.WhatsAppFrom != ""
}

// KafkaEnabled reports whether outcome events should be published.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
