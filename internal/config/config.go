package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Ledger   LedgerConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is host:port.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey string
}

// LedgerConfig tunes the transfer engine's atomic unit.
type LedgerConfig struct {
	// LockTimeout bounds the wait for a row lock (Postgres lock_timeout).
	LockTimeout time.Duration
	// UnitTimeout bounds the whole database transaction.
	UnitTimeout time.Duration
	// IdempotencyTTL is how long a completed transfer response is replayable.
	IdempotencyTTL time.Duration
	// EventsKey is the Redis list committed ledger entries are pushed to.
	EventsKey string
}

type LogConfig struct {
	Level       string
	Development bool
}

var envBindings = map[string]string{
	"server.port":          "PORT",
	"server.read_timeout":  "SERVER_READ_TIMEOUT",
	"server.write_timeout": "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":  "SERVER_IDLE_TIMEOUT",

	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.name":              "DATABASE_NAME",
	"database.ssl_mode":          "DATABASE_SSL_MODE",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key": "JWT_SECRET_KEY",

	"ledger.lock_timeout":    "LEDGER_LOCK_TIMEOUT",
	"ledger.unit_timeout":    "LEDGER_UNIT_TIMEOUT",
	"ledger.idempotency_ttl": "LEDGER_IDEMPOTENCY_TTL",
	"ledger.events_key":      "LEDGER_EVENTS_KEY",

	"log.level":       "LOG_LEVEL",
	"log.development": "LOG_DEVELOPMENT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "bank")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ledger.lock_timeout", 2*time.Second)
	v.SetDefault("ledger.unit_timeout", 5*time.Second)
	v.SetDefault("ledger.idempotency_ttl", 24*time.Hour)
	v.SetDefault("ledger.events_key", "ledger_events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configFile (usually ".env") if present, then lets environment
// variables override it. A missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, err
		}
		// .env files use the upper-case variable names; real environment
		// variables still win over the file.
		for key, env := range envBindings {
			if _, ok := os.LookupEnv(env); ok {
				continue
			}
			if v.InConfig(env) {
				v.Set(key, v.Get(env))
			}
		}
	}

	return fromViper(v), nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("jwt.secret_key"),
		},
		Ledger: LedgerConfig{
			LockTimeout:    v.GetDuration("ledger.lock_timeout"),
			UnitTimeout:    v.GetDuration("ledger.unit_timeout"),
			IdempotencyTTL: v.GetDuration("ledger.idempotency_ttl"),
			EventsKey:      v.GetString("ledger.events_key"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}
}
