package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "default_super_secret_key"

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	DB DBConfig

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"8h"`

	// Empty keeps sessions in process memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	Seed        bool     `env:"SEED_DEFAULTS" envDefault:"true"`

	// Created with the SUPER_ADMIN role when no account uses this email.
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Load reads envPath when it exists, then the process environment.
func Load(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}

	if c.JWTSecret == "" {
		if c.Release() {
			return Config{}, errors.New("JWT_SECRET is required in release mode")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.TokenTTL <= 0 || c.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL and SESSION_TTL must be positive")
	}

	return c, nil
}

func (c Config) Release() bool {
	return c.GinMode == "release"
}

// DSN builds the postgres connection URL.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     c.DB.Host + ":" + c.DB.Port,
		Path:     "/" + c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}
	return u.String()
}
