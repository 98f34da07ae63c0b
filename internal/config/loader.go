package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/coaching-scheduler/internal/logging"
)

const envPrefix = "SCHEDULER"

// Lock backends.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort int

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	LogLevel  slog.Level
	LogFormat string

	LockBackend string
	RedisAddr   string
	LockTTL     time.Duration

	GridCacheTTL time.Duration
	Location     *time.Location
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Load reads configuration from the process environment. Every key is read
// with the SCHEDULER_ prefix, after the dotenv file named by
// SCHEDULER_ENV_FILE (or ./.env when present) has been applied. Variables
// already set in the environment win over the file.
//
// All missing and invalid values are reported in a single error.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	p := &parser{v: v}
	cfg := Config{
		HTTPPort:          p.positiveInt("http_port"),
		DBDriver:          strings.ToLower(p.str("db_driver")),
		DBDSN:             p.str("db_dsn"),
		DBMaxOpenConns:    p.nonNegativeInt("db_max_open_conns"),
		DBMaxIdleConns:    p.nonNegativeInt("db_max_idle_conns"),
		DBConnMaxLifetime: p.duration("db_conn_max_lifetime", true),
		LogFormat:         strings.ToLower(p.str("log_format")),
		LockBackend:       strings.ToLower(p.str("lock_backend")),
		RedisAddr:         p.str("redis_addr"),
		LockTTL:           p.duration("lock_ttl", false),
		GridCacheTTL:      p.duration("grid_cache_ttl", true),
	}

	if level, err := logging.ParseLevel(p.str("log_level")); err != nil {
		p.invalidKey("log_level")
	} else {
		cfg.LogLevel = level
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		p.invalidKey("log_format")
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres", "pgx":
		// The default DSN names a SQLite file.
		if strings.TrimSpace(os.Getenv(envKey("db_dsn"))) == "" {
			p.missingKey("db_dsn")
		}
	default:
		p.invalidKey("db_driver")
	}

	switch cfg.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if cfg.RedisAddr == "" {
			p.missingKey("redis_addr")
		}
	default:
		p.invalidKey("lock_backend")
	}

	tz := p.str("timezone")
	if loc, err := time.LoadLocation(tz); err != nil {
		p.invalidKey("timezone")
	} else {
		cfg.Location = loc
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "file:scheduler.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate")
	v.SetDefault("db_max_open_conns", "10")
	v.SetDefault("db_max_idle_conns", "5")
	v.SetDefault("db_conn_max_lifetime", "30m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("lock_backend", LockBackendMemory)
	v.SetDefault("redis_addr", "")
	v.SetDefault("lock_ttl", "10s")
	v.SetDefault("grid_cache_ttl", "30s")
	v.SetDefault("timezone", "UTC")
}

// loadEnvFile applies SCHEDULER_ENV_FILE, or ./.env when that variable is
// unset. An explicitly named file must exist.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv(envKey("env_file")))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config: env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

// parser reads values from viper and remembers every key that failed.
type parser struct {
	v       *viper.Viper
	missing []string
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) positiveInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n <= 0 {
		p.invalidKey(key)
		return 0
	}
	return n
}

func (p *parser) nonNegativeInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n < 0 {
		p.invalidKey(key)
		return 0
	}
	return n
}

// duration parses a Go duration. allowZero permits "0" to disable the feature.
func (p *parser) duration(key string, allowZero bool) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		p.invalidKey(key)
		return 0
	}
	return d
}

func (p *parser) missingKey(key string) {
	p.missing = append(p.missing, envKey(key))
}

func (p *parser) invalidKey(key string) {
	p.invalid = append(p.invalid, envKey(key))
}

func (p *parser) err() error {
	var problems []string
	if len(p.missing) > 0 {
		problems = append(problems, "missing required environment variables: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		problems = append(problems, "invalid environment variable values: "+strings.Join(p.invalid, ", "))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("config: " + strings.Join(problems, "; "))
}
