package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kazanim-analiz/internal/analysis"
)

var ErrNotFound = sql.ErrNoRows

// ArchiveRepo keeps terminal analysis states in Postgres so consumed requests
// outlive the checkpoint TTL and repeat questions can be inspected later.
type ArchiveRepo struct{ DB *sql.DB }

func NewArchiveRepo(db *sql.DB) *ArchiveRepo { return &ArchiveRepo{DB: db} }

// Upsert stores a terminal state. PK: request_id.
func (r *ArchiveRepo) Upsert(ctx context.Context, st analysis.State) error {
	js, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("archive marshal: %w", err)
	}
	const q = `
insert into analiz_sonuclari(request_id, durum_json, hata, created_at)
values ($1, $2, $3, now())
on conflict (request_id)
do update set durum_json = excluded.durum_json, hata = excluded.hata, created_at = now()`
	_, err = r.DB.ExecContext(ctx, q, st.RequestID, js, st.Error)
	return err
}

// Find returns an archived terminal state. If maxAge > 0 and the row is
// older, ErrNotFound is returned so the caller re-runs the analysis.
func (r *ArchiveRepo) Find(ctx context.Context, requestID string, maxAge time.Duration) (analysis.State, error) {
	const q = `select durum_json, created_at from analiz_sonuclari where request_id = $1`
	var (
		js []byte
		ts time.Time
	)
	if err := r.DB.QueryRowContext(ctx, q, requestID).Scan(&js, &ts); err != nil {
		return analysis.State{}, err
	}
	if maxAge > 0 && time.Since(ts) > maxAge {
		return analysis.State{}, sql.ErrNoRows
	}
	var st analysis.State
	if err := json.Unmarshal(js, &st); err != nil {
		// Broken archive row counts as absent.
		return analysis.State{}, sql.ErrNoRows
	}
	return st, nil
}
