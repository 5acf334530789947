package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/ganymede/pkg/caddyfile"
)

// Version sources record what caused a configuration version to be written.
const (
	VersionSourceSync     = "sync"
	VersionSourceAutosave = "autosave"
	VersionSourceRollback = "rollback"
	VersionSourceManual   = "manual"
)

// Version is one recorded configuration version.
type Version struct {
	// ID is the version's unique identifier.
	ID string

	// CreatedAt is when the version was recorded.
	CreatedAt time.Time

	// Source records what wrote the version: sync, autosave, rollback, or
	// manual.
	Source string

	// Config is the structured configuration at that point.
	Config *caddyfile.Config

	// Caddyfile is the rendered text at that point.
	Caddyfile string
}

// HistoryConfig configures the history store.
type HistoryConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultHistoryConfig returns the default history configuration.
func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Path:        "data/history.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

const historySchema = `
CREATE TABLE IF NOT EXISTS config_versions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	source TEXT NOT NULL,
	config TEXT NOT NULL,
	caddyfile TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_config_versions_created_at ON config_versions(created_at);
`

// HistoryStore keeps an append-only configuration version history in SQLite.
type HistoryStore struct {
	db     *sql.DB
	config *HistoryConfig
	logger *slog.Logger

	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewHistoryStore opens (creating if needed) the history database.
func NewHistoryStore(config *HistoryConfig) (*HistoryStore, error) {
	if config == nil {
		config = DefaultHistoryConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("history db path cannot be empty")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &HistoryStore{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "storage.history"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("history store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode)
	return s, nil
}

func (s *HistoryStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(historySchema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Record appends a version of cfg and returns it with its assigned ID.
func (s *HistoryStore) Record(ctx context.Context, cfg *caddyfile.Config, source string) (*Version, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if source == "" {
		source = VersionSourceManual
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	v := &Version{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Source:    source,
		Config:    cfg.Clone(),
		Caddyfile: string(caddyfile.Serialize(cfg)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config_versions (id, created_at, source, config, caddyfile)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.CreatedAt.UnixNano(), v.Source, string(configJSON), v.Caddyfile)
	if err != nil {
		return nil, fmt.Errorf("failed to record version: %w", err)
	}
	return v, nil
}

// Get returns the version with the given ID, or (nil, nil) when absent.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, config, caddyfile
		FROM config_versions WHERE id = ?`, id)
	v, err := scanVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// Latest returns the most recent version, or (nil, nil) when the history is
// empty.
func (s *HistoryStore) Latest(ctx context.Context) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, config, caddyfile
		FROM config_versions ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	v, err := scanVersion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// List returns up to limit versions, newest first. A non-positive limit
// returns all versions.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, source, config, caddyfile
		FROM config_versions ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}

// Prune deletes all but the newest keep versions and returns how many were
// removed.
func (s *HistoryStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM config_versions WHERE id NOT IN (
			SELECT id FROM config_versions ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune versions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned versions: %w", err)
	}
	if deleted > 0 {
		s.logger.Debug("pruned configuration versions", "deleted", deleted, "kept", keep)
	}
	return int(deleted), nil
}

// Close closes the database. Close is idempotent.
func (s *HistoryStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.config.WALMode {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

// scanVersion decodes one row via the given scan function.
func scanVersion(scan func(dest ...any) error) (*Version, error) {
	var (
		id         string
		createdAt  int64
		source     string
		configJSON string
		text       string
	)
	if err := scan(&id, &createdAt, &source, &configJSON, &text); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	var cfg caddyfile.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode stored config: %w", err)
	}

	return &Version{
		ID:        id,
		CreatedAt: time.Unix(0, createdAt),
		Source:    source,
		Config:    &cfg,
		Caddyfile: text,
	}, nil
}
