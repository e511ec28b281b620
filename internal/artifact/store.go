package artifact

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for artifact retention
const (
	DefaultTTL           = 1 * time.Hour
	DefaultSweepInterval = 1 * time.Minute
)

var (
	// ErrNotFound is returned for unknown or expired artifacts
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidName is returned for names that could escape the store directory
	ErrInvalidName = errors.New("invalid artifact name")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("artifact store is closed")
	// ErrExists is returned when saving over a live artifact
	ErrExists = errors.New("artifact already exists")
)

// Config contains configuration for the artifact store
type Config struct {
	Dir           string
	TTL           time.Duration
	SweepInterval time.Duration
}

// Store keeps generated documents on disk until they expire
type Store struct {
	dir       string
	ttl       time.Duration
	interval  time.Duration
	logger    *log.Logger
	lock      sync.RWMutex
	closeChan chan struct{}
	doneChan  chan struct{}
	closed    bool
}

// NewStore creates the store directory and starts the expiry sweeper
func NewStore(config Config, logger *log.Logger) (*Store, error) {
	if config.Dir == "" {
		config.Dir = filepath.Join(os.TempDir(), "drive-search-artifacts")
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}

	if err := os.MkdirAll(config.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	store := &Store{
		dir:       config.Dir,
		ttl:       config.TTL,
		interval:  config.SweepInterval,
		logger:    logger,
		closeChan: make(chan struct{}),
		doneChan:  make(chan struct{}),
	}

	go store.cleanupRoutine()

	return store, nil
}

// Create stores data under a new unique name ending in ext and returns it
func (s *Store) Create(ext string, data []byte) (string, error) {
	name := uuid.NewString() + ext
	if err := s.Save(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Save writes an artifact. An expired artifact of the same name is
// replaced; a live one is not.
func (s *Store) Save(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return ErrClosed
	}

	if info, err := os.Stat(path); err == nil && !s.expired(info, time.Now()) {
		return ErrExists
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

// Open returns the contents of a live artifact
func (s *Store) Open(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if s.expired(info, time.Now()) {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Close stops the sweeper. Stored artifacts stay on disk.
func (s *Store) Close() error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeChan)
	s.lock.Unlock()

	<-s.doneChan
	return nil
}

// SanitizeName reduces a requested name to a bare file name
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return name, nil
}

func (s *Store) path(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *Store) expired(info os.FileInfo, now time.Time) bool {
	return now.Sub(info.ModTime()) > s.ttl
}

// cleanupRoutine periodically removes expired artifacts
func (s *Store) cleanupRoutine() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired(time.Now())
		case <-s.closeChan:
			return
		}
	}
}

// cleanupExpired removes every artifact older than the TTL
func (s *Store) cleanupExpired(now time.Time) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Printf("Artifact sweep failed: %v", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !s.expired(info, now) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Printf("Failed to remove expired artifact %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Printf("Removed %d expired artifacts", removed)
	}
	return removed
}
