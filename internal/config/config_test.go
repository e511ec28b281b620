package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.Environment != "dev" || cfg.Drive.RootFolderID != "root" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Extract.Marker != "reference" || cfg.Extract.LineBudget != 23 {
		t.Errorf("extract defaults = %+v", cfg.Extract)
	}
	if cfg.Artifact.TTL != time.Hour {
		t.Errorf("artifact TTL = %v", cfg.Artifact.TTL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
port: "9000"
google:
  client_id: file-id
  client_secret: file-secret
drive:
  team_drive_id: team-1
  timeout: 5s
artifact:
  ttl: 30m
extract:
  line_budget: 40
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("ARTIFACT_TTL", "2h")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.Drive.TeamDriveID != "team-1" || cfg.Drive.Timeout != 5*time.Second {
		t.Errorf("file values = %+v", cfg)
	}
	if cfg.Google.ClientID != "env-id" || cfg.Google.ClientSecret != "file-secret" {
		t.Errorf("google = %+v", cfg.Google)
	}
	if cfg.Artifact.TTL != 2*time.Hour || cfg.Extract.LineBudget != 40 {
		t.Errorf("artifact TTL = %v, line budget = %d", cfg.Artifact.TTL, cfg.Extract.LineBudget)
	}
	if origins := cfg.Origins(); len(origins) != 2 || origins[1] != "http://b.test" {
		t.Errorf("Origins() = %v", origins)
	}
	if cfg.Google.RedirectURL != "http://localhost:9000/auth/callback" {
		t.Errorf("redirect URL = %q", cfg.Google.RedirectURL)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing explicit file) expected an error")
	}

	t.Setenv("CONFIG_FILE", "")
	chdir(t, t.TempDir())
	t.Setenv("ARTIFACT_TTL", "soon")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "ARTIFACT_TTL") {
		t.Errorf("Load() error = %v, want an ARTIFACT_TTL error", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: "8080", Environment: "dev"}
	cfg.applyDefaults()

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_CLIENT_ID is required") {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.Environment = "prod"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() in production without secrets expected an error")
	}

	cfg.Session.Secret = strings.Repeat("s", 32)
	cfg.Session.TicketSecret = strings.Repeat("t", 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})
}
