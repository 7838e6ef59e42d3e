package pipeline

import (
	"context"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/contract"
)

// errorHandler is the terminal fallback for every failed path. It converts
// the recorded error into a safe, generic explanation for the student; the
// error fields stay set so callers can distinguish failure from success.
func errorHandler() NodeFunc {
	return func(_ context.Context, s analysis.State) (analysis.Update, error) {
		expl := "Sorunuzu şu anda analiz edemedik."
		if s.ErrorKind == analysis.ErrEmpty {
			expl = "Sorunuzla eşleşen bir kazanım bulamadık. Soru metni eksik ya da müfredat dışı olabilir."
		}

		d := contract.Diagnosis{
			TestedObjectives: []contract.TestedObjective{},
			Gaps:             []contract.PrerequisiteGap{},
			Explanation:      expl,
			Recommendations: []string{
				"Soruyu daha net bir fotoğrafla ya da metin olarak tekrar gönderin.",
				"Sınıf ve ders bilgisini belirtmek eşleşmeyi kolaylaştırır.",
			},
			Confidence: 0,
		}
		return analysis.Update{
			Diagnosis:   &d,
			Done:        analysis.Bool(true),
			CurrentStep: analysis.String(StepErrorHandler),
		}, nil
	}
}
