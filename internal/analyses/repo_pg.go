package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres. The full record is kept in a JSONB
// payload next to the columns used for filtering.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (id, user_id, description, language, overall_score, confidence_level, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	payload, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "analyses: encode payload")
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.Description,
		analysis.Language,
		analysis.OverallScore,
		string(analysis.ConfidenceLevel),
		payload,
		analysis.CreatedAt,
	)
	return eris.Wrap(err, "analyses: insert")
}

// List returns analyses newest first.
func (r *PGRepo) List(ctx context.Context, userID string) ([]Analysis, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID == "" {
		rows, err = r.DB.QueryContext(ctx, `SELECT payload FROM analyses ORDER BY created_at DESC, id DESC`)
	} else {
		rows, err = r.DB.QueryContext(ctx, `SELECT payload FROM analyses WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "analyses: list")
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "analyses: scan")
		}
		a, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "analyses: rows")
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID, userID string) (Analysis, error) {
	const query = `
SELECT payload
FROM analyses
WHERE id = $1 AND ($2 = '' OR user_id = $2)
LIMIT 1`
	var payload []byte
	err := r.DB.QueryRowContext(ctx, query, analysisID, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, eris.Wrap(err, "analyses: get")
	}
	return decodePayload(payload)
}

func decodePayload(payload []byte) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal(payload, &a); err != nil {
		return Analysis{}, eris.Wrap(err, "analyses: decode payload")
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
