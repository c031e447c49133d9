package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// devJWTSecret is the development fallback; production refuses to start without JWT_SECRET
const devJWTSecret = "default_super_secret_key"

// Config holds runtime configuration, built once at process start and passed down explicitly
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret      string        `envconfig:"JWT_SECRET"`
	JWTAlgorithm   string        `envconfig:"JWT_ALGORITHM" default:"HS256"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`

	// RedisAddr enables token revocation on logout when set
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	Log LogConfig `envconfig:"LOG"`

	SeedOnStart bool `envconfig:"SEED_ON_START" default:"false"`
	// SeedAdminPassword creates the initial superuser when seeding; empty skips it
	SeedAdminUsername string `envconfig:"SEED_ADMIN_USERNAME" default:"admin"`
	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@example.com"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD"`
}

// LogConfig controls the logrus output and file rotation
type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"text"`
	File       string `envconfig:"FILE" default:"logs/app.log"`
	MaxSizeMB  int    `envconfig:"MAX_SIZE_MB" default:"10"`
	MaxBackups int    `envconfig:"MAX_BACKUPS" default:"7"`
	MaxAgeDays int    `envconfig:"MAX_AGE_DAYS" default:"30"`
	Compress   bool   `envconfig:"COMPRESS" default:"true"`
}

// Load reads configs/.env (if present) and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load configs/.env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the Config from the current environment only
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET is required in production mode")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DSN assembles the postgres connection string from the DB_* settings, escaping credentials
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSslMode}}.Encode(),
	}
	return u.String()
}
