package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Connection.Port != 22 {
		t.Errorf("Expected default port 22, got %d", cfg.Connection.Port)
	}
	if cfg.Connection.TimeoutSeconds != 30 {
		t.Errorf("Expected default timeout 30, got %d", cfg.Connection.TimeoutSeconds)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default level info, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.RotationDays != 30 {
		t.Errorf("Expected default rotation 30 days, got %d", cfg.Logging.RotationDays)
	}
	if len(cfg.Safety.ProtectedPaths) != 1 || cfg.Safety.ProtectedPaths[0] != "/" {
		t.Errorf("Expected default protected paths [/], got %v", cfg.Safety.ProtectedPaths)
	}
	if cfg.DatabasePath != "" {
		t.Errorf("Expected history disabled by default, got %s", cfg.DatabasePath)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, `
connection:
  port: 2222
  known_hosts: /home/me/.ssh/known_hosts
  timeout_seconds: 5
logging:
  level: DEBUG
  file: /tmp/sftp.log
metrics:
  textfile_path: /var/lib/node_exporter/sftp.prom
safety:
  protected_paths: ["/", "/srv/www/"]
database_path: /tmp/history.db
ops_per_second: 20
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Connection.Port != 2222 {
		t.Errorf("Expected port 2222, got %d", cfg.Connection.Port)
	}
	if cfg.Connection.KnownHostsFile != "/home/me/.ssh/known_hosts" {
		t.Errorf("Unexpected known_hosts: %s", cfg.Connection.KnownHostsFile)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level to be normalized to debug, got %s", cfg.Logging.Level)
	}
	if cfg.Metrics.TextfilePath != "/var/lib/node_exporter/sftp.prom" {
		t.Errorf("Unexpected textfile path: %s", cfg.Metrics.TextfilePath)
	}
	if cfg.OpsPerSecond != 20 {
		t.Errorf("Expected ops_per_second 20, got %v", cfg.OpsPerSecond)
	}
	if cfg.Timeout().Seconds() != 5 {
		t.Errorf("Expected 5s timeout, got %v", cfg.Timeout())
	}

	cfg.Connection.Host = "example.com"
	cfg.Connection.Username = "deploy"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Safety.ProtectedPaths[1] != "/srv/www" {
		t.Errorf("Expected protected path to be cleaned, got %s", cfg.Safety.ProtectedPaths[1])
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := writeConfig(t, "")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load of empty file failed: %v", err)
	}
	if cfg.Connection.Port != 22 {
		t.Errorf("Expected default port, got %d", cfg.Connection.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "open config") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	p := writeConfig(t, "connection: [not, a, map")
	if _, err := Load(p); err == nil {
		t.Fatal("Expected decode error")
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	p := writeConfig(t, `
connection:
  port: 2222
database_path: /from/file.db
`)
	t.Setenv("SFTP_PORT", "2022")
	t.Setenv("SFTP_PASSWORD", "s3cret")
	t.Setenv("SFTP_DATABASE_PATH", "/from/env.db")
	t.Setenv("SFTP_OPS_PER_SECOND", "2.5")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Connection.Port != 2022 {
		t.Errorf("Expected env port 2022, got %d", cfg.Connection.Port)
	}
	if cfg.Connection.Password != "s3cret" {
		t.Errorf("Expected env password to be applied")
	}
	if cfg.DatabasePath != "/from/env.db" {
		t.Errorf("Expected env database path, got %s", cfg.DatabasePath)
	}
	if cfg.OpsPerSecond != 2.5 {
		t.Errorf("Expected ops_per_second 2.5, got %v", cfg.OpsPerSecond)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		cfg.Connection.Host = "sftp.example.com"
		cfg.Connection.Username = "deploy"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing host", func(c *Config) { c.Connection.Host = " " }, errMissingHost},
		{"missing username", func(c *Config) { c.Connection.Username = "" }, errMissingUsername},
		{"port zero", func(c *Config) { c.Connection.Port = 0 }, errInvalidPort},
		{"port too large", func(c *Config) { c.Connection.Port = 70000 }, errInvalidPort},
		{"negative timeout", func(c *Config) { c.Connection.TimeoutSeconds = -1 }, errNegativeTimeout},
		{"negative rate", func(c *Config) { c.OpsPerSecond = -3 }, errNegativeRate},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, errInvalidLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Connection: ConnectionCfg{Host: "::1", Port: 2222}}
	if got := cfg.Address(); got != "[::1]:2222" {
		t.Errorf("Expected [::1]:2222, got %s", got)
	}
	cfg.Connection.Host = "sftp.example.com"
	cfg.Connection.Port = 22
	if got := cfg.Address(); got != "sftp.example.com:22" {
		t.Errorf("Expected sftp.example.com:22, got %s", got)
	}
}
