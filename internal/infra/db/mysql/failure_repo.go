package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/rkuma140394/vox-Gaurd-detect/internal/domain/failures"
)

const schema = `
CREATE TABLE IF NOT EXISTS voxguard_provider_failures (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  request_id VARCHAR(64) NOT NULL,
  provider VARCHAR(32) NOT NULL,
  model VARCHAR(128) NOT NULL,
  language VARCHAR(32) NOT NULL,
  phase VARCHAR(16) NOT NULL,
  message TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_failures_request (request_id, created_at)
)`

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

// EnsureSchema creates the failures table when it does not exist yet.
func (r *FailureRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.ProviderFailure) error {
	const q = `
INSERT INTO voxguard_provider_failures
  (request_id, provider, model, language, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?,?)
`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(f.RequestID),
		stringOrDash(f.Provider),
		stringOrDash(f.Model),
		stringOrDash(f.Language),
		stringOrDash(string(f.Phase)),
		stringOrDash(f.Message),
		jsonOrEmpty(f.DetailsJSON),
		created.UTC(),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *FailureRepository) ListByRequest(ctx context.Context, requestID string, limit int) ([]*domain.ProviderFailure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, request_id, provider, model, language, phase, message, details_json, created_at
FROM voxguard_provider_failures
WHERE request_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProviderFailure
	for rows.Next() {
		var f domain.ProviderFailure
		var phase string
		var created time.Time
		if err := rows.Scan(&f.ID, &f.RequestID, &f.Provider, &f.Model, &f.Language, &phase, &f.Message, &f.DetailsJSON, &created); err != nil {
			return nil, err
		}
		f.Phase = domain.Phase(phase)
		f.CreatedAt = created
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *FailureRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}
