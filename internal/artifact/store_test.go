package artifact

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store, err := NewStore(Config{Dir: t.TempDir(), TTL: ttl, SweepInterval: time.Hour}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndOpen(t *testing.T) {
	store := newTestStore(t, time.Hour)

	if err := store.Save("report.docx", []byte("v1")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save("report.docx", []byte("v2")); !errors.Is(err, ErrExists) {
		t.Fatalf("second Save() error = %v, want %v", err, ErrExists)
	}

	data, err := store.Open("report.docx")
	if err != nil || string(data) != "v1" {
		t.Errorf("Open() = %q, %v", data, err)
	}

	if _, err := store.Open("missing.docx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want %v", err, ErrNotFound)
	}
}

func TestCreateKeepsConcurrentExportsApart(t *testing.T) {
	store := newTestStore(t, time.Hour)

	first, err := store.Create(".docx", []byte("user A export"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := store.Create(".docx", []byte("user B export"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first == second || !strings.HasSuffix(first, ".docx") {
		t.Fatalf("Create() names = %q, %q", first, second)
	}

	for name, want := range map[string]string{first: "user A export", second: "user B export"} {
		if data, err := store.Open(name); err != nil || string(data) != want {
			t.Errorf("Open(%q) = %q, %v, want %q", name, data, err, want)
		}
	}
}

func TestSaveReplacesExpiredArtifact(t *testing.T) {
	store := newTestStore(t, time.Minute)

	if err := store.Save("report.docx", []byte("old")); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(store.dir, "report.docx"), past, past); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("report.docx", []byte("new")); err != nil {
		t.Fatalf("Save() over expired artifact error = %v", err)
	}
	if data, err := store.Open("report.docx"); err != nil || string(data) != "new" {
		t.Errorf("Open() = %q, %v", data, err)
	}
}

func TestRejectsUnsafeNames(t *testing.T) {
	store := newTestStore(t, time.Hour)

	for _, name := range []string{"", "..", "../etc/passwd", "a/b.docx", `a\b.docx`, ".hidden", "x..y"} {
		if err := store.Save(name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q) error = %v, want %v", name, err, ErrInvalidName)
		}
		if _, err := store.Open(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q) error = %v, want %v", name, err, ErrInvalidName)
		}
	}
}

func TestExpiredArtifacts(t *testing.T) {
	store := newTestStore(t, time.Minute)

	if err := store.Save("old.docx", []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("new.docx", []byte("new")); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(store.dir, "old.docx"), past, past); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Open("old.docx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(expired) error = %v, want %v", err, ErrNotFound)
	}

	if removed := store.cleanupExpired(time.Now()); removed != 1 {
		t.Errorf("cleanupExpired() removed %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(store.dir, "old.docx")); !os.IsNotExist(err) {
		t.Errorf("expired artifact still on disk: %v", err)
	}
	if _, err := store.Open("new.docx"); err != nil {
		t.Errorf("Open(new) error = %v", err)
	}
}

func TestClose(t *testing.T) {
	store := newTestStore(t, time.Hour)

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := store.Save("a.docx", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() after Close error = %v, want %v", err, ErrClosed)
	}
}
