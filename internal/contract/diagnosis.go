// Package contract defines the structured output the response generator's
// model call must satisfy, plus the deterministic parse/repair path applied
// to raw model text.
package contract

import "fmt"

// MaxTestedObjectives bounds the tested-objectives list in a diagnosis.
const MaxTestedObjectives = 3

// TestedObjective is one curriculum objective the question exercises.
type TestedObjective struct {
	Code        string  `json:"kazanim_kodu"`
	Description string  `json:"aciklama"`
	Relevance   float64 `json:"ilgi_skoru"`
	Direct      bool    `json:"dogrudan"`
}

// PrerequisiteGap is a prerequisite topic the student may be missing.
type PrerequisiteGap struct {
	Topic          string   `json:"konu"`
	ObjectiveCodes []string `json:"kazanim_kodlari"`
	Section        string   `json:"onerilen_bolum"`
}

// Diagnosis is the validated pedagogical diagnosis for one question.
type Diagnosis struct {
	TestedObjectives []TestedObjective `json:"test_edilen_kazanimlar"`
	Gaps             []PrerequisiteGap `json:"on_kosul_eksikleri"`
	Explanation      string            `json:"aciklama"`
	Recommendations  []string          `json:"calisma_onerileri"`
	Confidence       float64           `json:"guven_skoru"`
}

// Validate checks the diagnosis against the output contract.
func (d Diagnosis) Validate() error {
	if len(d.TestedObjectives) > MaxTestedObjectives {
		return fmt.Errorf("tested objectives must be at most %d, got %d", MaxTestedObjectives, len(d.TestedObjectives))
	}
	for i, o := range d.TestedObjectives {
		if o.Code == "" {
			return fmt.Errorf("tested objective %d has empty code", i)
		}
		if o.Relevance < 0 || o.Relevance > 1 {
			return fmt.Errorf("tested objective %d relevance must be 0-1, got %f", i, o.Relevance)
		}
	}
	for i, g := range d.Gaps {
		if g.Topic == "" {
			return fmt.Errorf("prerequisite gap %d has empty topic", i)
		}
	}
	if d.Explanation == "" {
		return fmt.Errorf("explanation required but empty")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence must be 0-1, got %f", d.Confidence)
	}
	return nil
}
