// Package summarycache persists AI-generated session summaries so they are
// produced at most once per transcript version. Structural parsing never
// consults this cache; only the summarization collaborator does. Entries are
// keyed by (project, session) and carry a content fingerprint of the
// transcript, so an appended-to session invalidates its cached summary.
package summarycache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // database/sql driver
)

// Cache is a single-table sqlite store of generated summaries.
type Cache struct {
	db *sql.DB
}

// Open creates (or opens) the cache at path and ensures its schema.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open summary cache: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS summaries (
			project_key  TEXT NOT NULL,
			session_id   TEXT NOT NULL,
			fingerprint  TEXT NOT NULL,
			summary      TEXT NOT NULL,
			created_at   TEXT NOT NULL,
			PRIMARY KEY (project_key, session_id)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("summary cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fingerprint hashes a transcript file's contents. A missing file hashes to
// the empty string, which never matches a stored entry.
func Fingerprint(path string) string {
	data, err := os.ReadFile(path) // #nosec G304 -- path is locator-validated
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached summary for a session when its fingerprint still
// matches the current transcript, ok=false otherwise.
func (c *Cache) Get(ctx context.Context, projectKey, sessionID, fingerprint string) (string, bool) {
	if fingerprint == "" {
		return "", false
	}

	const query = `
		SELECT summary FROM summaries
		WHERE project_key = ? AND session_id = ? AND fingerprint = ?
	`
	var text string
	err := c.db.QueryRowContext(ctx, query, projectKey, sessionID, fingerprint).Scan(&text)
	if err != nil {
		return "", false
	}
	return text, true
}

// Put stores or replaces a session's summary under its fingerprint.
func (c *Cache) Put(ctx context.Context, projectKey, sessionID, fingerprint, text string) error {
	const query = `
		INSERT INTO summaries (project_key, session_id, fingerprint, summary, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_key, session_id) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			summary     = excluded.summary,
			created_at  = excluded.created_at
	`
	_, err := c.db.ExecContext(ctx, query,
		projectKey, sessionID, fingerprint, text,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// GetOrGenerate returns the cached summary for the transcript at path,
// calling generate and caching its result on a miss. The generate call is
// the collaborator seam: the AI request itself lives outside this package.
func (c *Cache) GetOrGenerate(ctx context.Context, projectKey, sessionID, path string, generate func(context.Context) (string, error)) (string, error) {
	fp := Fingerprint(path)
	if text, ok := c.Get(ctx, projectKey, sessionID, fp); ok {
		return text, nil
	}

	text, err := generate(ctx)
	if err != nil {
		return "", err
	}
	if fp != "" {
		if err := c.Put(ctx, projectKey, sessionID, fp, text); err != nil {
			return text, err
		}
	}
	return text, nil
}
