package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 7095
gateway:
  url: "http://music.local:8091/api"
  timeout: 3s
zones:
  count: 4
  poll_interval: 2s
  debounce: 50ms
mqtt:
  enabled: true
  topic_prefix: "house/music"
database:
  enabled: true
  path: "/tmp/journal.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7095 {
		t.Errorf("Server.Port = %d, want 7095", cfg.Server.Port)
	}
	if cfg.Gateway.URL != "http://music.local:8091/api" {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.Gateway.Timeout != 3*time.Second {
		t.Errorf("Gateway.Timeout = %v, want 3s", cfg.Gateway.Timeout)
	}
	if cfg.Zones.Count != 4 || cfg.Zones.PollInterval != 2*time.Second || cfg.Zones.Debounce != 50*time.Millisecond {
		t.Errorf("Zones = %+v", cfg.Zones)
	}
	if cfg.MQTT.TopicPrefix != "house/music" {
		t.Errorf("MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	// Untouched sections keep their defaults.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
gateway:
  url: "not a url"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "gateway.url") {
		t.Errorf("error %q should name gateway.url", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing gateway url", func(c *Config) { c.Gateway.URL = "" }, true},
		{"relative gateway url", func(c *Config) { c.Gateway.URL = "/api" }, true},
		{"no zones", func(c *Config) { c.Zones.Count = 0 }, true},
		{"zero poll interval", func(c *Config) { c.Zones.PollInterval = 0 }, true},
		{"negative debounce", func(c *Config) { c.Zones.Debounce = -time.Millisecond }, true},
		{"zero debounce", func(c *Config) { c.Zones.Debounce = 0 }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"mqtt without prefix", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.TopicPrefix = "" }, true},
		{"journal without path", func(c *Config) { c.Database.Enabled = true; c.Database.Path = "" }, true},
		{"port low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port high", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_JoinsErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	cfg.Zones.Count = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "server.port") || !strings.Contains(err.Error(), "zones.count") {
		t.Errorf("error %q should report both problems", err)
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Timeouts: ServerTimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 45*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 45s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("MUSICGATEWAY_SERVER_HOST", "127.0.0.1")
	t.Setenv("MUSICGATEWAY_SERVER_PORT", "7777")
	t.Setenv("MUSICGATEWAY_GATEWAY_URL", "http://backend:9000")
	t.Setenv("MUSICGATEWAY_MQTT_HOST", "mqtt.example.com")
	t.Setenv("MUSICGATEWAY_MQTT_USERNAME", "testuser")
	t.Setenv("MUSICGATEWAY_MQTT_PASSWORD", "testpass")
	t.Setenv("MUSICGATEWAY_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("MUSICGATEWAY_DATABASE_PATH", "/custom/path.db")

	applyEnvOverrides(cfg)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gateway.URL != "http://backend:9000" {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("MUSICGATEWAY_SERVER_PORT", "not-a-port")
	applyEnvOverrides(cfg)
	if cfg.Server.Port != 7091 {
		t.Errorf("Server.Port = %d, want default 7091", cfg.Server.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Zones.Count != 20 {
		t.Errorf("Zones.Count = %d, want 20", cfg.Zones.Count)
	}
	if cfg.Zones.PollInterval != 5*time.Second {
		t.Errorf("Zones.PollInterval = %v, want 5s", cfg.Zones.PollInterval)
	}
	if cfg.Zones.Debounce != 25*time.Millisecond {
		t.Errorf("Zones.Debounce = %v, want 25ms", cfg.Zones.Debounce)
	}
	if cfg.Zones.DiscardStaleResponses {
		t.Error("stale response discarding should be opt-in")
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Database.Enabled || cfg.Discovery.Enabled {
		t.Error("optional integrations should default to disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
