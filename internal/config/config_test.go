package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
resource: consultations
state_path: /var/lib/ptp/state.db

store:
  driver: sqlite

http:
  timeout: 30s

poll:
  interval: 10s

log:
  level: debug
  file: /var/log/ptp.log
  json: true

dashboard:
  port: 9000

notify:
  slack:
    token: xoxb-test
    channel: C123
  discord:
    token: disc-test
  digest: "0 18 * * 1-5"
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Resource != ResourceConsultations {
		t.Errorf("Resource = %q, want %q", cfg.Resource, ResourceConsultations)
	}
	if cfg.StatePath != "/var/lib/ptp/state.db" {
		t.Errorf("StatePath = %q, want /var/lib/ptp/state.db", cfg.StatePath)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 30s", cfg.HTTP.Timeout)
	}
	if cfg.Poll.Interval != 10*time.Second {
		t.Errorf("Poll.Interval = %v, want 10s", cfg.Poll.Interval)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want 9000", cfg.Dashboard.Port)
	}
	if !cfg.Notify.Slack.Enabled() {
		t.Error("Slack should be enabled")
	}
	if cfg.Notify.Discord.Enabled() {
		t.Error("Discord without a channel should not be enabled")
	}
	if cfg.Notify.Digest != "0 18 * * 1-5" {
		t.Errorf("Notify.Digest = %q", cfg.Notify.Digest)
	}
}

func TestParse_Empty_AppliesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Resource != ResourceNotes {
		t.Errorf("Resource = %q, want %q (default)", cfg.Resource, ResourceNotes)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want sqlite (default)", cfg.Store.Driver)
	}
	if cfg.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("HTTP.Timeout = %v, want %v (default)", cfg.HTTP.Timeout, DefaultHTTPTimeout)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("Poll.Interval = %v, want 5s (default)", cfg.Poll.Interval)
	}
	if cfg.Dashboard.Port != DefaultDashboardPort {
		t.Errorf("Dashboard.Port = %d, want %d (default)", cfg.Dashboard.Port, DefaultDashboardPort)
	}
	if strings.HasPrefix(cfg.StatePath, "~") {
		t.Errorf("StatePath = %q, want home expanded", cfg.StatePath)
	}
	if !strings.HasSuffix(cfg.StatePath, filepath.Join(".ptp", "state.db")) {
		t.Errorf("StatePath = %q, want suffix .ptp/state.db", cfg.StatePath)
	}
}

func TestParse_InvalidResource(t *testing.T) {
	_, err := Parse([]byte("resource: patients\n"))
	if err == nil {
		t.Fatal("expected error for unknown resource")
	}
	if !strings.Contains(err.Error(), "resource must be") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "resource must be")
	}
}

func TestParse_MySQLRequiresDSN(t *testing.T) {
	_, err := Parse([]byte("store:\n  driver: mysql\n"))
	if err == nil {
		t.Fatal("expected error for mysql without dsn")
	}
	if !strings.Contains(err.Error(), "store.dsn is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "store.dsn is required")
	}
}

func TestParse_UnknownDriver(t *testing.T) {
	_, err := Parse([]byte("store:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestParse_BadLogLevel(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: loud\n"))
	if err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestParse_BadDigest(t *testing.T) {
	_, err := Parse([]byte("notify:\n  digest: \"every day\"\n"))
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if !strings.Contains(err.Error(), "notify.digest") {
		t.Errorf("error = %q, want to contain notify.digest", err.Error())
	}
}

func TestParse_NegativeInterval(t *testing.T) {
	_, err := Parse([]byte("poll:\n  interval: -1s\n"))
	if err == nil {
		t.Fatal("expected error for negative interval")
	}
}

func TestParse_MultipleErrors(t *testing.T) {
	_, err := Parse([]byte("resource: x\nlog:\n  level: y\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "resource") || !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error should list both problems: %q", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("resource: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Resource != ResourceNotes {
		t.Errorf("Resource = %q, want default", cfg.Resource)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptp.yaml")
	if err := os.WriteFile(path, []byte("resource: consultations\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Resource != ResourceConsultations {
		t.Errorf("Resource = %q, want consultations", cfg.Resource)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"~/x/y", filepath.Join(home, "x/y")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
