package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// diskStore is the persistent tier backed by SQLite.
type diskStore struct {
	db *sql.DB
}

func newDiskStore(path string) (*diskStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &diskStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *diskStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *diskStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *diskStore) Get(ctx context.Context, hash string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT original_text, translated_text, source_lang, target_lang, api_used, created_at, hit_count, last_accessed
		 FROM translations
		 WHERE text_hash = ?`,
		hash,
	)
	var entry Entry
	var apiUsed sql.NullString
	if err := row.Scan(
		&entry.Original,
		&entry.Translated,
		&entry.SourceLang,
		&entry.TargetLang,
		&apiUsed,
		&entry.CreatedAt,
		&entry.HitCount,
		&entry.LastAccessed,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	entry.APIUsed = apiUsed.String
	return &entry, true, nil
}

// Put overwrites any existing row for the hash.
func (s *diskStore) Put(ctx context.Context, hash string, entry *Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO translations (
			text_hash, original_text, translated_text, source_lang, target_lang, api_used, created_at, hit_count, last_accessed
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		hash,
		entry.Original,
		entry.Translated,
		entry.SourceLang,
		entry.TargetLang,
		entry.APIUsed,
		entry.CreatedAt.UTC(),
		entry.LastAccessed.UTC(),
	)
	return err
}

// PutIfAbsent inserts only when the hash is not present yet.
func (s *diskStore) PutIfAbsent(ctx context.Context, hash string, entry *Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO translations (
			text_hash, original_text, translated_text, source_lang, target_lang, api_used, created_at, hit_count, last_accessed
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		hash,
		entry.Original,
		entry.Translated,
		entry.SourceLang,
		entry.TargetLang,
		entry.APIUsed,
		entry.CreatedAt.UTC(),
		entry.LastAccessed.UTC(),
	)
	return err
}

// Touch bumps the hit counter and access timestamp of a row.
func (s *diskStore) Touch(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE translations
		 SET hit_count = hit_count + 1, last_accessed = CURRENT_TIMESTAMP
		 WHERE text_hash = ?`,
		hash,
	)
	return err
}

// DeleteOlderThan removes rows created before the cutoff.
func (s *diskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translations WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteIdentical removes rows whose translation equals the original,
// ignoring case and surrounding whitespace.
func (s *diskStore) DeleteIdentical(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM translations WHERE LOWER(TRIM(original_text)) = LOWER(TRIM(translated_text))`,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *diskStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translations`)
	return err
}

func (s *diskStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n)
	return n, err
}
