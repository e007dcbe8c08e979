// Package config loads the application configuration from a YAML file.
// Every section has defaults suitable for local development, so a minimal
// config file only needs the values that differ.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Storage backends selectable via the storage section.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Env             string `yaml:"env"`
	ShortCodeLength int    `yaml:"short_code_length"`
	CacheCapacity   int    `yaml:"cache_capacity"`
	Storage         `yaml:"storage"`
	HTTPServer      `yaml:"http_server"`
	Postgres        `yaml:"postgres"`
	Redis           `yaml:"redis"`
	RabbitMQ        `yaml:"rabbitmq"`
}

func defaultConfig() Config {
	return Config{
		Env:             EnvDev,
		ShortCodeLength: 7,
		CacheCapacity:   1024,
		Storage:         Storage{Backend: StorageMemory},
		HTTPServer: HTTPServer{
			Port:           8080,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    time.Minute,
			MaxHeaderBytes: 1 << 20,
		},
		Postgres: Postgres{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			MaxIdleConns:    5,
			MaxOpenConns:    25,
		},
		Redis:    Redis{Host: "localhost", Port: 6379},
		RabbitMQ: RabbitMQ{Queue: "url_visits"},
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read config file: %w", op, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse config file: %w", op, err)
	}

	return &cfg, nil
}

// Storage selects the record store backend.
type Storage struct {
	Backend string `yaml:"backend"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

func (s HTTPServer) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

type Postgres struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

// DSN renders the section as a postgres connection URL.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     p.DB,
		RawQuery: "sslmode=" + p.SSLMode,
	}

	return u.String()
}

type Redis struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// RabbitMQ configures the visit event publisher. An empty URL disables
// publishing.
type RabbitMQ struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}
