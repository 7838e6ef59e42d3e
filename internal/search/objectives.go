// Package search implements the curriculum retrieval collaborators on
// Postgres: hybrid full-text + trigram search over objectives (kazanımlar)
// and textbook sections, plus the terminal-result archive.
package search

import (
	"context"
	"database/sql"
	"fmt"

	"kazanim-analiz/internal/analysis"
)

type ObjectiveRepo struct{ DB *sql.DB }

func NewObjectiveRepo(db *sql.DB) *ObjectiveRepo { return &ObjectiveRepo{DB: db} }

// Search runs the hybrid query. Grade 0 and an empty subject disable the
// respective filter; the relaxation policy depends on each being
// independently optional. Score blends ts_rank with trigram similarity so
// short equation-style queries that tokenize poorly still match.
func (r *ObjectiveRepo) Search(ctx context.Context, query string, grade int, subject string, topK int) ([]analysis.Objective, error) {
	if topK <= 0 {
		topK = 10
	}
	const q = `
select kod, aciklama,
       ts_rank(arama, plainto_tsquery('turkish', $1)) * 0.6
         + similarity(aciklama, $1) * 0.4 as skor
from kazanimlar
where ($2 = 0 or sinif = $2)
  and ($3 = '' or lower(ders) = lower($3))
  and (arama @@ plainto_tsquery('turkish', $1) or similarity(aciklama, $1) > 0.1)
order by skor desc
limit $4`

	rows, err := r.DB.QueryContext(ctx, q, query, grade, subject, topK)
	if err != nil {
		return nil, fmt.Errorf("objective search: %w", err)
	}
	defer rows.Close()

	var out []analysis.Objective
	for rows.Next() {
		var o analysis.Objective
		if err := rows.Scan(&o.Code, &o.Description, &o.Score); err != nil {
			return nil, fmt.Errorf("objective scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("objective rows: %w", err)
	}
	return out, nil
}
