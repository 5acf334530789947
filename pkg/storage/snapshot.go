package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"mercator-hq/ganymede/pkg/caddyfile"
)

// SnapshotStore persists the desired configuration as a JSON file.
// Every save first moves the existing snapshot to the backup path, then
// writes the new one through a temp file and an atomic rename.
type SnapshotStore struct {
	path       string
	backupPath string
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewSnapshotStore returns a store writing to path. backupPath may be empty
// to disable backups.
func NewSnapshotStore(path, backupPath string) *SnapshotStore {
	return &SnapshotStore{
		path:       path,
		backupPath: backupPath,
		logger:     slog.Default().With("component", "storage.snapshot"),
	}
}

// Path returns the snapshot path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Save writes cfg to the snapshot path. The previous snapshot, when one
// exists, becomes the backup.
func (s *SnapshotStore) Save(cfg *caddyfile.Config) error {
	if cfg == nil {
		cfg = &caddyfile.Config{}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if s.backupPath != "" {
		if err := s.rotateBackup(); err != nil {
			return err
		}
	}

	return writeFileAtomic(s.path, data)
}

// rotateBackup moves the current snapshot to the backup path. No snapshot
// yet means nothing to rotate.
func (s *SnapshotStore) rotateBackup() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.backupPath), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.Rename(s.path, s.backupPath); err != nil {
		return fmt.Errorf("failed to rotate snapshot to backup: %w", err)
	}
	s.logger.Debug("rotated snapshot to backup", "backup_path", s.backupPath)
	return nil
}

// Load reads the current snapshot. A missing file returns (nil, nil); a
// present but unreadable or undecodable file returns an error.
func (s *SnapshotStore) Load() (*caddyfile.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSnapshot(s.path)
}

// LoadBackup reads the backup snapshot. A missing file returns (nil, nil).
func (s *SnapshotStore) LoadBackup() (*caddyfile.Config, error) {
	if s.backupPath == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSnapshot(s.backupPath)
}

func readSnapshot(path string) (*caddyfile.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var cfg caddyfile.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &cfg, nil
}

// writeFileAtomic writes data next to path and renames it into place so
// readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot into place: %w", err)
	}
	return nil
}
