//go:build !sqlite_fts5

package lexical

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/quillvault/quill/pkg/chunk"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; Search falls back to LIKE over passages.text.
	return nil
}

func ftsInsert(_ *sql.Tx, _ chunk.Passage) error { return nil }

func ftsDeleteSource(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based scan (fallback when FTS5 is not compiled in).
// Candidate rows match any query term as a substring; the score is the total
// occurrence count across terms, so passages mentioning more terms more often
// rank higher. Positive, higher is better, unnormalized.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	conds := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		conds[i] = "lower(text) LIKE ?"
		args[i] = "%" + t + "%"
	}

	rows, err := ix.conn.Query(
		`SELECT id, source_id, start_line, end_line, text, content_hash, title
		 FROM passages WHERE `+strings.Join(conds, " OR "), args...)
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
			&r.Title,
		); err != nil {
			return nil, err
		}
		lower := strings.ToLower(r.Passage.Text)
		for _, t := range terms {
			r.Score += float64(strings.Count(lower, t))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
