package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store persists JSON documents under a data directory. Every save writes
// the full document to a temporary file and renames it over the target, so
// a reader never observes a half-written file.
type Store struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	snapshots map[string]func() error
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:       dir,
		logger:    logger,
		snapshots: make(map[string]func() error),
	}, nil
}

// Load reads the named document into v. A missing file leaves v untouched.
func (s *Store) Load(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *Store) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// RegisterSnapshot adds a flush callback run by the periodic snapshot loop.
// Registering the same name again replaces the previous callback.
func (s *Store) RegisterSnapshot(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[name] = fn
}

func (s *Store) SnapshotAll() {
	s.mu.Lock()
	callbacks := make(map[string]func() error, len(s.snapshots))
	for name, fn := range s.snapshots {
		callbacks[name] = fn
	}
	s.mu.Unlock()

	for name, fn := range callbacks {
		if err := fn(); err != nil {
			s.logger.Warn("snapshot failed", zap.String("document", name), zap.Error(err))
		}
	}
}

// Run flushes every registered document on the given interval until the
// context ends, then takes a final snapshot.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.SnapshotAll()
			return
		case <-ticker.C:
			s.SnapshotAll()
		}
	}
}
