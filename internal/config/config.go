package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ConnectionCfg struct {
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port" env:"SFTP_PORT"`
	Username       string `yaml:"username" json:"username"`
	Password       string `yaml:"password" json:"-" env:"SFTP_PASSWORD"`
	KnownHostsFile string `yaml:"known_hosts" json:"known_hosts" env:"SFTP_KNOWN_HOSTS"` // Empty disables host key verification
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds" env:"SFTP_TIMEOUT_SECONDS"`
}

type LoggingCfg struct {
	Level        string `yaml:"level" json:"level" env:"SFTP_LOG_LEVEL"`                         // debug, info, warn, error
	File         string `yaml:"file" json:"file" env:"SFTP_LOG_FILE"`                            // Optional JSON log file next to console output
	RotationDays int    `yaml:"rotation_days" json:"rotation_days" env:"SFTP_LOG_ROTATION_DAYS"` // Days to keep logs before rotation
}

type MetricsCfg struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path" env:"SFTP_METRICS_TEXTFILE"` // node_exporter textfile collector target
}

type SafetyCfg struct {
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"` // Remote roots the deleter refuses to run on
}

type Config struct {
	Connection   ConnectionCfg `yaml:"connection" json:"connection"`
	Logging      LoggingCfg    `yaml:"logging" json:"logging"`
	Metrics      MetricsCfg    `yaml:"metrics" json:"metrics"`
	Safety       SafetyCfg     `yaml:"safety" json:"safety"`
	DatabasePath string        `yaml:"database_path" json:"database_path" env:"SFTP_DATABASE_PATH"` // SQLite operation history, empty disables
	OpsPerSecond float64       `yaml:"ops_per_second" json:"ops_per_second" env:"SFTP_OPS_PER_SECOND"` // Remote operation cap, 0 = unlimited
}

var (
	errMissingHost     = errors.New("host is required")
	errMissingUsername = errors.New("username is required")
	errInvalidPort     = errors.New("port must be between 1 and 65535")
	errNegativeTimeout = errors.New("timeout_seconds cannot be negative")
	errNegativeRate    = errors.New("ops_per_second cannot be negative")
	errInvalidLevel    = errors.New("logging level must be one of debug, info, warn, error")
)

// Load builds a Config from an optional YAML file, a .env file in the
// working directory and SFTP_* environment variables, in that order.
// Connection identity (host, username) is validated later by Validate,
// after command-line arguments have been applied.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		cfg, err = decode(f)
		if err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = 22
	}
	if c.Connection.TimeoutSeconds == 0 {
		c.Connection.TimeoutSeconds = 30
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30 // Default: keep logs for 30 days
	}

	if len(c.Safety.ProtectedPaths) == 0 {
		c.Safety.ProtectedPaths = []string{"/"}
	}
}

// Validate checks the merged configuration. Call it after positional
// arguments have been copied into Connection.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Connection.Host) == "" {
		return errMissingHost
	}
	if strings.TrimSpace(c.Connection.Username) == "" {
		return errMissingUsername
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, c.Connection.Port)
	}
	if c.Connection.TimeoutSeconds < 0 {
		return errNegativeTimeout
	}
	if c.OpsPerSecond < 0 {
		return errNegativeRate
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", errInvalidLevel, c.Logging.Level)
	}

	for i, p := range c.Safety.ProtectedPaths {
		c.Safety.ProtectedPaths[i] = path.Clean(p)
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Connection.TimeoutSeconds) * time.Second
}

// Address returns host:port for dialing.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Connection.Host, strconv.Itoa(c.Connection.Port))
}
