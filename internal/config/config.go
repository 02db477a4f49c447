package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/vadimbarashkov/shortlinks/internal/entity"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Environment variables that take precedence over the config file when set.
const (
	EnvAPIToken         = "API_TOKEN"
	EnvPostgresPassword = "POSTGRES_PASSWORD"
)

var (
	ErrMissingAPIToken = errors.New("api token is not set")
	ErrUnknownEnv      = errors.New("unknown environment")
	ErrMissingTLSFiles = errors.New("cert_file and key_file are required in prod")
)

type Config struct {
	Env            string        `yaml:"env"`
	APIToken       string        `yaml:"api_token"`
	SlugLength     int           `yaml:"slug_length"`
	ReservedSlugs  []string      `yaml:"reserved_slugs"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	MigrationsPath string        `yaml:"migrations_path"`
	Log            `yaml:"log"`
	Metrics        `yaml:"metrics"`
	CORS           `yaml:"cors"`
	HTTPServer     `yaml:"http_server"`
	Postgres       `yaml:"postgres"`
}

type Log struct {
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Concise bool   `yaml:"concise"`
}

// SlogLevel parses Level. Unknown levels were rejected by Load.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
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

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Load reads the YAML config at path over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.SlugLength = 7
	cfg.ReservedSlugs = slices.Clone(entity.DefaultReservedSlugs)
	cfg.StoreTimeout = 5 * time.Second
	cfg.MigrationsPath = "file://migrations"
	cfg.Log = Log{Level: "info"}
	cfg.CORS = CORS{AllowedOrigins: []string{"https://*"}}
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
}

func applyEnv(cfg *Config) {
	if token := os.Getenv(EnvAPIToken); token != "" {
		cfg.APIToken = token
	}
	if password := os.Getenv(EnvPostgresPassword); password != "" {
		cfg.Postgres.Password = password
	}
}

func (cfg *Config) validate() error {
	if cfg.APIToken == "" {
		return ErrMissingAPIToken
	}

	switch cfg.Env {
	case EnvDev, EnvStage:
	case EnvProd:
		if cfg.HTTPServer.CertFile == "" || cfg.HTTPServer.KeyFile == "" {
			return ErrMissingTLSFiles
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, cfg.Env)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}
