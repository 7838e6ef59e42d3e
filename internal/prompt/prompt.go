// Package prompt holds the embedded response schema and prompt builders for
// the generative model calls.
package prompt

import (
	"fmt"
	"strings"

	"kazanim-analiz/internal/analysis"
)

// DiagnosisSchema is the JSON schema the response generator's model call must
// conform to. It is sent verbatim as part of the system instruction.
const DiagnosisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "test_edilen_kazanimlar": {
      "type": "array",
      "maxItems": 3,
      "items": {
        "type": "object",
        "properties": {
          "kazanim_kodu": {"type": "string"},
          "aciklama": {"type": "string"},
          "ilgi_skoru": {"type": "number", "minimum": 0, "maximum": 1},
          "dogrudan": {"type": "boolean"}
        },
        "required": ["kazanim_kodu", "aciklama", "ilgi_skoru", "dogrudan"]
      }
    },
    "on_kosul_eksikleri": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "konu": {"type": "string"},
          "kazanim_kodlari": {"type": "array", "items": {"type": "string"}},
          "onerilen_bolum": {"type": "string"}
        },
        "required": ["konu", "kazanim_kodlari", "onerilen_bolum"]
      }
    },
    "aciklama": {"type": "string"},
    "calisma_onerileri": {"type": "array", "items": {"type": "string"}},
    "guven_skoru": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["test_edilen_kazanimlar", "on_kosul_eksikleri", "aciklama", "calisma_onerileri", "guven_skoru"]
}`

// DiagnosisSystem is the system instruction for the diagnosis call.
const DiagnosisSystem = `Sen bir eğitim asistanısın. Görevin: verilen soru metnini, aday kazanımları ve ders kitabı bölümlerini inceleyip pedagojik bir teşhis üretmek.
- Sorunun test ettiği kazanımları (en fazla 3) belirle; her biri için kod, açıklama, 0-1 arası ilgi skoru ve dogrudan/dolaylı bayrağı ver.
- Öğrencinin eksik olabileceği ön koşul kazanımları ve çalışılacak kitap bölümlerini listele.
- Kısa, öğrenciye dönük bir açıklama ve somut çalışma önerileri yaz.
Yanıt SADECE aşağıdaki JSON şemasına uygun olmalı. Şema dışında hiçbir metin üretme.`

// VisionSystem instructs the vision model to extract the question verbatim.
const VisionSystem = `Sen bir soru tanıma modülüsün. Fotoğraftaki soruyu olduğu gibi (verbatim) çıkar.
Yanıt SADECE şu JSON: {"soru_metni": string, "konular": [string], "tahmini_sinif": int (1-12, bilinmiyorsa 0), "soru_tipi": string, "guven_skoru": number 0-1}.
Çözme, yorumlama, düzeltme yapma. JSON dışında metin üretme.`

// Diagnosis renders the user prompt for the response generator from the
// reranked candidates.
func Diagnosis(question string, objectives []analysis.Objective, sections []analysis.Section) string {
	var b strings.Builder
	b.WriteString("SORU:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nADAY KAZANIMLAR:\n")
	if len(objectives) == 0 {
		b.WriteString("(bulunamadı)\n")
	}
	for _, o := range objectives {
		fmt.Fprintf(&b, "- %s: %s (skor %.2f)\n", o.Code, o.Description, o.Score)
	}
	b.WriteString("\nADAY KİTAP BÖLÜMLERİ:\n")
	if len(sections) == 0 {
		b.WriteString("(bulunamadı)\n")
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "- %s (sayfa %s): %s\n", s.Path, s.PageRange, truncate(s.Content, 280))
	}
	b.WriteString("\nYanıt: yalnızca şemaya uygun JSON.")
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
