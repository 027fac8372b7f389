package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

const (
	ModeDev     = "dev"
	ModeRelease = "release"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Certificate     Certs         `yaml:"certificate"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LibraryConfig struct {
	LoanPeriodDays      int    `yaml:"loan_period_days"`
	MaxActiveBorrowings int    `yaml:"max_active_borrowings"`
	Timezone            string `yaml:"timezone"`
	// cron spec; empty disables the in-process sweeper
	OverdueSweep string `yaml:"overdue_sweep"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type Config struct {
	Version   string          `yaml:"version"`
	Mode      string          `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	DB        DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Library   LibraryConfig   `yaml:"library"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
}

// Load reads .env (if any), expands ${VAR} references in the YAML file
// at path and applies defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込み失敗: %w", err)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(buf))), &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDev
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Library.LoanPeriodDays == 0 {
		c.Library.LoanPeriodDays = 14
	}
	if c.Library.MaxActiveBorrowings == 0 {
		c.Library.MaxActiveBorrowings = 3
	}
	if c.Library.Timezone == "" {
		c.Library.Timezone = "UTC"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"http://localhost:3000"}
	}
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	if c.DB.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Mode == ModeRelease && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required in release mode")
	}
	if c.Library.LoanPeriodDays < 1 || c.Library.MaxActiveBorrowings < 1 {
		return errors.New("library.loan_period_days and library.max_active_borrowings must be positive")
	}
	if _, err := time.LoadLocation(c.Library.Timezone); err != nil {
		return fmt.Errorf("library.timezone: %w", err)
	}
	return nil
}

// Location resolves Library.Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Library.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TLSFiles returns the certificate pair for the current mode, or empty strings for plain HTTP.
func (c *Config) TLSFiles() (cert, key string) {
	if c.Server.Certificate.Cert == "" || c.Server.Certificate.Key == "" {
		return "", ""
	}
	dir := "config/tls/" + c.Mode
	return fmt.Sprintf("%s/%s", dir, c.Server.Certificate.Cert), fmt.Sprintf("%s/%s", dir, c.Server.Certificate.Key)
}
