package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":5000"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS" env-separator:"," env-default:"*"`
	BodyLimit       string        `yaml:"body_limit" env:"HTTP_BODY_LIMIT" env-default:"1M"`
}

// StoreConfig selects the record store. The mysql backend needs DBHOST
// and DBUSER; DBPASSWORD may be empty. Statements name their schema, so
// Name is empty by default and the connection works before the schema
// exists.
type StoreConfig struct {
	Backend  string `yaml:"backend" env:"STORE_BACKEND" env-default:"mysql"`
	Host     string `yaml:"host" env:"DBHOST"`
	Port     string `yaml:"port" env:"DBPORT" env-default:"3306"`
	User     string `yaml:"user" env:"DBUSER"`
	Password string `yaml:"password" env:"DBPASSWORD"`
	Name     string `yaml:"name" env:"DBNAME"`
	Retries  int    `yaml:"retries" env:"DB_CONNECT_RETRIES" env-default:"10"`
	Migrate  bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

// AuthConfig enables bearer-token verification when Secret is set.
type AuthConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
}

type RateLimitConfig struct {
	Rate   float64       `yaml:"rate" env:"RATE_LIMIT" env-default:"10"`
	Burst  int           `yaml:"burst" env:"RATE_BURST" env-default:"30"`
	Window time.Duration `yaml:"window" env:"RATE_WINDOW" env-default:"1s"`
}

// RedisConfig moves the rate limiter to redis when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// NotifyConfig configures the post-request publish. SNSARN is accepted
// as the topic for existing deployments.
type NotifyConfig struct {
	Backend string `yaml:"backend" env:"NOTIFY_BACKEND" env-default:"sns"`
	Topic   string `yaml:"topic" env:"NOTIFY_TOPIC,SNSARN"`
	Brokers string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Region  string `yaml:"region" env:"AWS_REGION"`
}

// Load reads an optional .env file, then the YAML file named by
// CONFIG_PATH if set, then the environment.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "mysql":
		if c.Store.Host == "" || c.Store.User == "" {
			return errors.New("please ensure DBHOST and DBUSER environment variables are set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend: %q (supported: mysql, memory)", c.Store.Backend)
	}

	if c.RateLimit.Burst < 0 || c.RateLimit.Rate < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	return nil
}

// DSN returns the MySQL data source name. clientFoundRows makes UPDATE
// report matched rows, so rewriting identical values still counts as 1.
func (s StoreConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = s.User
	mc.Passwd = s.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(s.Host, s.Port)
	mc.DBName = s.Name
	mc.ClientFoundRows = true
	mc.ParseTime = true
	return mc.FormatDSN()
}

// BrokerURLs returns the Kafka broker list for the notify backend.
func (n NotifyConfig) BrokerURLs() []string {
	return KafkaBrokerURLs(n.Brokers)
}
