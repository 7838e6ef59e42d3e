package search

import (
	"context"
	"database/sql"
	"fmt"

	"kazanim-analiz/internal/analysis"
)

type SectionRepo struct{ DB *sql.DB }

func NewSectionRepo(db *sql.DB) *SectionRepo { return &SectionRepo{DB: db} }

// SearchByObjectives returns textbook sections mapped to the given objective
// codes, ranked by how well their content matches the question text.
func (r *SectionRepo) SearchByObjectives(ctx context.Context, codes []string, query string) ([]analysis.Section, error) {
	if len(codes) == 0 {
		return []analysis.Section{}, nil
	}
	const q = `
select b.bolum_yolu, b.icerik, coalesce(b.sayfa_araligi, ''),
       ts_rank(b.arama, plainto_tsquery('turkish', $2)) as skor
from ders_kitabi_bolumleri b
join bolum_kazanimlari bk on bk.bolum_id = b.id
where bk.kazanim_kodu = any($1)
group by b.id, b.bolum_yolu, b.icerik, b.sayfa_araligi, skor
order by skor desc
limit 10`

	rows, err := r.DB.QueryContext(ctx, q, codes, query)
	if err != nil {
		return nil, fmt.Errorf("section search: %w", err)
	}
	defer rows.Close()

	var out []analysis.Section
	for rows.Next() {
		var s analysis.Section
		if err := rows.Scan(&s.Path, &s.Content, &s.PageRange, &s.Score); err != nil {
			return nil, fmt.Errorf("section scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("section rows: %w", err)
	}
	return out, nil
}
