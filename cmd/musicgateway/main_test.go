package main

import (
	"context"
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

func TestRun_InvalidConfigPath(t *testing.T) {
	t.Setenv("MUSICGATEWAY_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config", err)
	}
}

func TestRun_InvalidGatewayURL(t *testing.T) {
	t.Setenv("MUSICGATEWAY_CONFIG", writeConfig(t, `
gateway:
  url: "not a url"
logging:
  level: error
`))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "gateway.url") {
		t.Fatalf("run() error = %v, want gateway.url validation failure", err)
	}
}

// TestRun_StartsAndStops runs the gateway against an unreachable backend
// with the journal enabled. Startup sync fails, which must not be fatal.
func TestRun_StartsAndStops(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MUSICGATEWAY_CONFIG", writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 17091
gateway:
  url: "http://127.0.0.1:1"
  timeout: 500ms
zones:
  count: 2
database:
  enabled: true
  path: "`+filepath.Join(dir, "journal.db")+`"
logging:
  level: error
`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "journal.db")); err != nil {
		t.Errorf("journal database not created: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MUSICGATEWAY_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("MUSICGATEWAY_CONFIG", "/etc/musicgateway.yaml")
	if got := getConfigPath(); got != "/etc/musicgateway.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
