package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
)

const schema = `
CREATE TABLE IF NOT EXISTS voxguard_provider_failures (
  id BIGSERIAL PRIMARY KEY,
  request_id TEXT NOT NULL,
  provider TEXT NOT NULL,
  model TEXT NOT NULL,
  language TEXT NOT NULL,
  phase TEXT NOT NULL,
  message TEXT NOT NULL,
  details_json JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failures_request ON voxguard_provider_failures (request_id, created_at DESC);`

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// EnsureSchema creates the failures table when it does not exist yet.
func (r *FailureRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save inserts a failure and fills in its generated ID
func (r *FailureRepository) Save(ctx context.Context, f *domain.ProviderFailure) error {
	const q = `
INSERT INTO voxguard_provider_failures
  (request_id, provider, model, language, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(f.RequestID),
		stringOrDash(f.Provider),
		stringOrDash(f.Model),
		stringOrDash(f.Language),
		stringOrDash(string(f.Phase)),
		stringOrDash(f.Message),
		jsonOrEmpty(f.DetailsJSON),
		created.UTC(),
	).Scan(&f.ID)
}

func (r *FailureRepository) ListByRequest(ctx context.Context, requestID string, limit int) ([]*domain.ProviderFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, request_id, provider, model, language, phase, message, details_json, created_at
FROM voxguard_provider_failures
WHERE request_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProviderFailure
	for rows.Next() {
		var f domain.ProviderFailure
		var phase string
		if err := rows.Scan(&f.ID, &f.RequestID, &f.Provider, &f.Model, &f.Language, &phase, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Phase = domain.Phase(phase)
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *FailureRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func jsonOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(s), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}
