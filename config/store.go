package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects where the session pair is persisted.
type StoreBackend string

const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendRedis    StoreBackend = "redis"
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendPostgres StoreBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis", "sqlite", "postgres":
		*b = StoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: memory, redis, sqlite, postgres)", v)
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	// DSN overrides the discrete fields below when set.
	DSN      string `env:"DSN"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"mmk"`
	Password string `env:"PASSWORD" envDefault:"mmk"`
	Name     string `env:"NAME"     envDefault:"mmk_console"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}

// ConnString returns the DSN, building one from the discrete fields when none is set.
func (c DBConfig) ConnString() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	// url.URL escapes special characters in credentials
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// TTL expires stored values; zero keeps them until removed.
	TTL time.Duration `env:"TTL" envDefault:"0"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"sqlite"`

	// Scope namespaces keys so several consoles can share one backend.
	Scope string `env:"STORE_SCOPE" envDefault:"mmk-console"`

	// SQLitePath is the database file used when Backend=sqlite.
	SQLitePath string `env:"STORE_SQLITE_PATH" envDefault:"mmk-console.db"`

	Redis    RedisConfig `envPrefix:"REDIS_"`
	Postgres DBConfig    `envPrefix:"DB_"`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	s.Scope = strings.TrimSpace(s.Scope)
	if s.Scope == "" {
		s.Scope = "mmk-console"
	}
	if strings.TrimSpace(s.SQLitePath) == "" {
		s.SQLitePath = "mmk-console.db"
	}
	if s.Redis.TTL < 0 {
		s.Redis.TTL = 0
	}
}
