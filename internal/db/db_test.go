package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papertoplan/ptp/internal/config"
	"github.com/papertoplan/ptp/internal/models"
	"gorm.io/gorm"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "memory",
			path: ":memory:",
			want: ":memory:",
		},
		{
			name: "file path",
			path: "/home/a/.ptp/state.db",
			want: "file:/home/a/.ptp/state.db?_busy_timeout=5000&_foreign_keys=on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SQLiteDSN(tt.path)
			if got != tt.want {
				t.Errorf("SQLiteDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllModels_Count(t *testing.T) {
	models := AllModels()
	if len(models) != 2 {
		t.Errorf("AllModels() returned %d models, want 2", len(models))
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.StoreConfig{Driver: "oracle"}, "")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "unsupported driver")
	}
}

func TestOpenMySQL_Error(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := OpenMySQL("root@tcp(127.0.0.1:1)/ptp?parseTime=true")
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to mysql") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to mysql")
	}
}

func TestOpenSQLite_CreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".ptp")
	path := filepath.Join(dir, "state.db")

	gdb, err := OpenAndMigrate(func() (*gorm.DB, error) {
		return Open(config.StoreConfig{Driver: "sqlite"}, path)
	})
	if err != nil {
		t.Fatalf("OpenAndMigrate: %v", err)
	}
	defer Close(gdb)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("state dir not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("state dir perm = %o, want 700", perm)
	}

	pref := models.Preference{Namespace: "ns", Key: "k", Value: "v"}
	if err := gdb.Create(&pref).Error; err != nil {
		t.Fatalf("insert preference: %v", err)
	}
	var got models.Preference
	if err := gdb.Where(&models.Preference{Namespace: "ns", Key: "k"}).First(&got).Error; err != nil {
		t.Fatalf("read preference: %v", err)
	}
	if got.Value != "v" {
		t.Errorf("Value = %q, want v", got.Value)
	}
}

func TestAutoMigrate_Memory(t *testing.T) {
	gdb, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer Close(gdb)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}
