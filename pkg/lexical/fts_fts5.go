//go:build sqlite_fts5

package lexical

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/quillvault/quill/pkg/chunk"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
			id UNINDEXED,
			source_id UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, p chunk.Passage) error {
	_, err := tx.Exec(`INSERT INTO passages_fts (id, source_id, text) VALUES (?, ?, ?)`,
		p.ID, p.SourceID, p.Text)
	if err != nil {
		return fmt.Errorf("lexical: insert fts: %w", err)
	}
	return nil
}

func ftsDeleteSource(tx *sql.Tx, sourceID string) error {
	if _, err := tx.Exec(`DELETE FROM passages_fts WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("lexical: delete fts: %w", err)
	}
	return nil
}

// Search runs an FTS5 prefix query over passage text. Each query term matches
// as a prefix, which gives the fuzzy contract ("chunk" finds "chunking").
// Scores are negated bm25 ranks: positive, higher is better, unnormalized.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"*`
	}
	match := strings.Join(quoted, " OR ")

	rows, err := ix.conn.Query(`
		SELECT p.id, p.source_id, p.start_line, p.end_line, p.text, p.content_hash, p.title,
		       -bm25(passages_fts)
		FROM passages_fts f
		JOIN passages p ON p.id = f.id
		WHERE passages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical: search: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(
			&r.Passage.ID, &r.Passage.SourceID,
			&r.Passage.StartLine, &r.Passage.EndLine,
			&r.Passage.Text, &r.Passage.ContentHash,
			&r.Title, &r.Score,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
