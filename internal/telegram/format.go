package telegram

import (
	"fmt"
	"strings"

	"kazanim-analiz/internal/analysis"
)

// formatDiagnosis renders a terminal state as a chat message.
func formatDiagnosis(st analysis.State) string {
	if st.Diagnosis == nil {
		return "Analiz tamamlanamadı, lütfen tekrar deneyin."
	}
	d := st.Diagnosis

	var b strings.Builder
	if len(d.TestedObjectives) > 0 {
		b.WriteString("📌 Sorunun test ettiği kazanımlar:\n")
		for _, o := range d.TestedObjectives {
			tag := "dolaylı"
			if o.Direct {
				tag = "doğrudan"
			}
			fmt.Fprintf(&b, "• %s — %s (%s)\n", o.Code, o.Description, tag)
		}
		b.WriteString("\n")
	}
	if len(d.Gaps) > 0 {
		b.WriteString("🧩 Eksik olabilecek ön koşullar:\n")
		for _, g := range d.Gaps {
			fmt.Fprintf(&b, "• %s", g.Topic)
			if g.Section != "" {
				fmt.Fprintf(&b, " → %s", g.Section)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if d.Explanation != "" {
		b.WriteString(d.Explanation)
		b.WriteString("\n")
	}
	if len(d.Recommendations) > 0 {
		b.WriteString("\n📚 Çalışma önerileri:\n")
		for _, rec := range d.Recommendations {
			b.WriteString("• " + rec + "\n")
		}
	}
	if st.Degraded {
		b.WriteString("\n(Not: yapılandırılmış analiz üretilemedi, özet ham model yanıtından alındı.)")
	}
	return strings.TrimSpace(b.String())
}
