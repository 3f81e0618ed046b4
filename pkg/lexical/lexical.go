// Package lexical provides the SQLite-backed lexical index over passages.
//
// The index is a cache of derivable facts, not a system of record: when the
// database file is missing or corrupt it is discarded and recreated empty,
// and the vault can always be re-indexed to rebuild it. Full-text search uses
// FTS5 when compiled in (build tag sqlite_fts5) and a LIKE-based fallback
// otherwise.
package lexical

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/quillvault/quill/pkg/chunk"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS passages (
	id           TEXT PRIMARY KEY,
	source_id    TEXT NOT NULL,
	start_line   INTEGER NOT NULL,
	end_line     INTEGER NOT NULL,
	text         TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_passages_source ON passages(source_id);
`

// Result is a lexical search hit. Score is a raw, engine-local relevance
// value: higher is better, with no fixed scale. Callers normalize.
type Result struct {
	Passage chunk.Passage
	Title   string
	Score   float64
}

// Index wraps a sql.DB with passage-index operations.
type Index struct {
	conn   *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the index database and applies the schema. A file
// that cannot be opened or migrated is removed and recreated empty rather
// than failing: the index is rebuildable from source files.
func Open(path string, logger *zap.Logger) (*Index, error) {
	conn, err := open(path)
	if err != nil {
		if path == ":memory:" {
			return nil, err
		}
		logger.Warn("lexical index unusable, recreating empty",
			zap.String("path", path),
			zap.Error(err),
		)
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("removing corrupt index: %w", rmErr)
		}
		conn, err = open(path)
		if err != nil {
			return nil, err
		}
	}

	return &Index{conn: conn, logger: logger}, nil
}

func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("lexical: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lexical: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lexical: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lexical: apply fts schema: %w", err)
	}
	return conn, nil
}

// Close closes the underlying database connection.
func (ix *Index) Close() error {
	return ix.conn.Close()
}

// ReplaceSource removes every stored passage for sourceID and inserts the new
// set in one transaction. Delete+insert, not merge: stale passages from a
// shrunk file cannot survive a replace.
func (ix *Index) ReplaceSource(sourceID, title string, passages []chunk.Passage) error {
	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("lexical: begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM passages WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("lexical: delete passages: %w", err)
	}
	if err := ftsDeleteSource(tx, sourceID); err != nil {
		return err
	}

	for _, p := range passages {
		_, err := tx.Exec(
			`INSERT INTO passages (id, source_id, start_line, end_line, text, content_hash, title)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.SourceID, p.StartLine, p.EndLine, p.Text, p.ContentHash, title,
		)
		if err != nil {
			return fmt.Errorf("lexical: insert passage %s: %w", p.ID, err)
		}
		if err := ftsInsert(tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lexical: commit replace: %w", err)
	}

	ix.logger.Debug("lexical source replaced",
		zap.String("source_id", sourceID),
		zap.Int("passages", len(passages)),
	)
	return nil
}

// RemoveSource deletes all passages for sourceID.
func (ix *Index) RemoveSource(sourceID string) error {
	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("lexical: begin remove: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM passages WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("lexical: delete passages: %w", err)
	}
	if err := ftsDeleteSource(tx, sourceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lexical: commit remove: %w", err)
	}
	return nil
}

// CountPassages returns the total number of indexed passages.
func (ix *Index) CountPassages() (int, error) {
	var n int
	if err := ix.conn.QueryRow(`SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("lexical: count: %w", err)
	}
	return n, nil
}

// Sources returns the set of indexed source IDs.
func (ix *Index) Sources() (map[string]struct{}, error) {
	rows, err := ix.conn.Query(`SELECT DISTINCT source_id FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("lexical: sources: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// PassageIDs returns the stored passage IDs for one source, in line order.
func (ix *Index) PassageIDs(sourceID string) ([]string, error) {
	rows, err := ix.conn.Query(
		`SELECT id FROM passages WHERE source_id = ? ORDER BY start_line`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("lexical: passage ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// queryTerms tokenizes a free-form query into lowercase alphanumeric terms.
func queryTerms(query string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		term := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, f)
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}
