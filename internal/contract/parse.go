package contract

import (
	"encoding/json"
	"strings"

	"kazanim-analiz/internal/util"
)

// FallbackConfidence is assigned when the model output cannot be validated
// and the raw text is carried as a best-effort explanation.
const FallbackConfidence = 0.5

// Parse turns raw model output into a Diagnosis. The raw text is stripped of
// code fences before unmarshalling; some models wrap JSON in markdown even
// when told not to.
//
// Parse never fails. If the cleaned text is not valid JSON, or the JSON does
// not satisfy the contract, it returns a degraded diagnosis carrying the raw
// text as the explanation with confidence FallbackConfidence and empty
// objective/gap lists. The second return value reports whether the result is
// such a fallback. A partially useful answer beats a hard failure here; the
// degraded flag lets callers tell the two apart.
func Parse(raw string) (Diagnosis, bool) {
	txt := util.StripCodeFences(strings.TrimSpace(raw))

	var d Diagnosis
	if err := json.Unmarshal([]byte(txt), &d); err != nil {
		return fallback(raw), true
	}
	if err := d.Validate(); err != nil {
		return fallback(raw), true
	}
	return d, false
}

func fallback(raw string) Diagnosis {
	expl := strings.TrimSpace(raw)
	if expl == "" {
		expl = "Soru analiz edildi ancak yapılandırılmış sonuç üretilemedi."
	}
	return Diagnosis{
		TestedObjectives: []TestedObjective{},
		Gaps:             []PrerequisiteGap{},
		Explanation:      expl,
		Recommendations:  []string{"Soruyu daha net bir fotoğrafla ya da metin olarak tekrar gönderin."},
		Confidence:       FallbackConfidence,
	}
}
