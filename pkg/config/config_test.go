package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: "test"
auth:
  enable_verification: false
sources:
  - name: "crm"
    host: "crm-db.internal"
    port: 5432
    user: "browse"
    database: "crm"
    password_env: "CRM_PGPASSWORD"
`)
	os.Unsetenv("PGHOST")
	os.Unsetenv("PORT")

	cfg, err := LoadFromFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.PageSize != 50 {
		t.Errorf("expected default PageSize=50, got %d", cfg.PageSize)
	}
	if cfg.Pool.MaxConns != 5 {
		t.Errorf("expected default pool max_conns=5, got %d", cfg.Pool.MaxConns)
	}
	if cfg.Export.MaxRowsStandard != 10000 {
		t.Errorf("expected default standard ceiling=10000, got %d", cfg.Export.MaxRowsStandard)
	}
	if cfg.Export.MaxRowsElevated != 50000 {
		t.Errorf("expected default elevated ceiling=50000, got %d", cfg.Export.MaxRowsElevated)
	}
	if cfg.Export.WarnThreshold != 2000 {
		t.Errorf("expected default warn threshold=2000, got %d", cfg.Export.WarnThreshold)
	}
	if cfg.Cache.Capacity != 100 {
		t.Errorf("expected default cache capacity=100, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.CurrentTTL != time.Hour {
		t.Errorf("expected default current TTL=1h, got %s", cfg.Cache.CurrentTTL)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected version from parameter, got %s", cfg.Version)
	}
}

func TestLoadFromFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
auth:
  enable_verification: false
export:
  max_rows_standard: 5000
`)
	t.Setenv("PORT", "9090")
	t.Setenv("EXPORT_MAX_ROWS_STANDARD", "7500")

	cfg, err := LoadFromFile(path, "dev")
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected Port=9090 (from env), got %s", cfg.Port)
	}
	if cfg.Export.MaxRowsStandard != 7500 {
		t.Errorf("expected standard ceiling=7500 (from env), got %d", cfg.Export.MaxRowsStandard)
	}
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{
			name: "verification enabled without signing key",
			yaml: `
auth:
  enable_verification: true
`,
		},
		{
			name: "standard ceiling above elevated ceiling",
			yaml: `
auth:
  enable_verification: false
export:
  max_rows_standard: 60000
  max_rows_elevated: 50000
`,
		},
		{
			name: "duplicate source names",
			yaml: `
auth:
  enable_verification: false
sources:
  - name: "crm"
    host: "a"
  - name: "crm"
    host: "b"
`,
		},
		{
			name: "source without name",
			yaml: `
auth:
  enable_verification: false
sources:
  - host: "a"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("AUTH_SIGNING_KEY")
			path := writeConfig(t, tt.yaml)
			if _, err := LoadFromFile(path, "v"); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSourceConnectionString(t *testing.T) {
	t.Setenv("CRM_PGPASSWORD", "hunter2")
	s := SourceConfig{
		Name:        "crm",
		Host:        "crm-db.internal",
		Port:        5432,
		User:        "browse",
		Database:    "crm",
		PasswordEnv: "CRM_PGPASSWORD",
	}
	got := s.ConnectionString()
	want := "host=crm-db.internal port=5432 user=browse password=hunter2 dbname=crm sslmode=disable"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestMaxRowsForRole(t *testing.T) {
	c := ExportConfig{MaxRowsStandard: 10000, MaxRowsElevated: 50000}
	if got := c.MaxRowsForRole(false); got != 10000 {
		t.Errorf("standard ceiling = %d, want 10000", got)
	}
	if got := c.MaxRowsForRole(true); got != 50000 {
		t.Errorf("elevated ceiling = %d, want 50000", got)
	}
}
