package chat

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"

	"fundingsense-backend/internal/evidence"
	"fundingsense-backend/internal/llm"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Append inserts turns in one transaction so a question is never stored
// without its answer.
func (r *PGRepo) Append(ctx context.Context, userID string, turns ...Turn) error {
	const query = `
INSERT INTO chat_turns (id, user_id, role, content, sources, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "chat: begin")
	}
	defer tx.Rollback()

	for _, t := range turns {
		sources := t.Sources
		if sources == nil {
			sources = []evidence.Unit{}
		}
		payload, err := json.Marshal(sources)
		if err != nil {
			return eris.Wrap(err, "chat: encode sources")
		}
		if _, err := tx.ExecContext(ctx, query, t.ID, userID, string(t.Role), t.Content, payload, t.Timestamp); err != nil {
			return eris.Wrap(err, "chat: insert turn")
		}
	}
	return eris.Wrap(tx.Commit(), "chat: commit")
}

// History returns the user's turns oldest first.
func (r *PGRepo) History(ctx context.Context, userID string) ([]Turn, error) {
	const query = `
SELECT id, role, content, sources, created_at
FROM chat_turns
WHERE user_id = $1
ORDER BY seq ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, eris.Wrap(err, "chat: history")
	}
	defer rows.Close()

	out := []Turn{}
	for rows.Next() {
		var (
			t       Turn
			role    string
			sources []byte
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &sources, &t.Timestamp); err != nil {
			return nil, eris.Wrap(err, "chat: scan")
		}
		t.Role = llm.Role(role)
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &t.Sources); err != nil {
				return nil, eris.Wrap(err, "chat: decode sources")
			}
		}
		if len(t.Sources) == 0 {
			t.Sources = nil
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "chat: rows")
}

var _ Repo = (*PGRepo)(nil)
