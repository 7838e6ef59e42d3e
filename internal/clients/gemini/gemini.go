// Package gemini implements the vision, generator, and reranker collaborator
// contracts on Google's Gemini models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/clients"
	"kazanim-analiz/internal/prompt"
	"kazanim-analiz/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

// Analyze extracts the question text and coarse metadata from a photo.
// Returns JSON constrained output mapped onto clients.VisionResult.
func (e *Engine) Analyze(ctx context.Context, image []byte, mime string) (clients.VisionResult, error) {
	if e.APIKey == "" {
		return clients.VisionResult{}, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return clients.VisionResult{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return clients.VisionResult{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.VisionSystem)},
	}

	parts := []genai.Part{
		genai.Text("Fotoğraftaki soruyu çıkar. Yanıt yalnızca JSON."),
		&genai.Blob{MIMEType: util.PickMIME(mime, "", image), Data: image},
	}

	// Retries cover transient 5xx failures only; a malformed body is final.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if sleepCtx(ctx, time.Duration(attempt)*300*time.Millisecond) != nil {
				return clients.VisionResult{}, ctx.Err()
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return clients.VisionResult{}, fmt.Errorf("gemini analyze: empty response")
		}
		txt = util.StripCodeFences(strings.TrimSpace(txt))

		var out clients.VisionResult
		if err := json.Unmarshal([]byte(txt), &out); err != nil {
			return clients.VisionResult{}, fmt.Errorf("gemini analyze: bad JSON: %w", err)
		}
		return out, nil
	}
	return clients.VisionResult{}, lastErr
}

// Generate runs the diagnosis prompt with the embedded response schema as a
// system instruction and returns the raw model text. Parsing and validation
// happen upstream under the structured-output contract.
func (e *Engine) Generate(ctx context.Context, userPrompt string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(prompt.DiagnosisSystem),
			genai.Text("JSON şeması:\n" + prompt.DiagnosisSchema),
		},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
		if err != nil {
			lastErr = err
			if sleepCtx(ctx, time.Duration(attempt)*300*time.Millisecond) != nil {
				return "", ctx.Err()
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", fmt.Errorf("gemini generate: empty response")
		}
		return txt, nil
	}
	return "", lastErr
}

// rerankResult is the model's answer to a rerank call: objective codes and
// section paths in preferred order.
type rerankResult struct {
	ObjectiveCodes []string `json:"kazanim_kodlari"`
	SectionPaths   []string `json:"bolum_yollari"`
}

// Rerank asks the model to reorder the candidates against the question. Any
// failure leaves the caller free to keep the retrieval order.
func (e *Engine) Rerank(ctx context.Context, query string, objectives []analysis.Objective, sections []analysis.Section) ([]analysis.Objective, []analysis.Section, error) {
	if e.APIKey == "" {
		return nil, nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return nil, nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return nil, nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(`Soruyla en ilgili adayları öne alarak sırala.
Yanıt SADECE şu JSON: {"kazanim_kodlari": [string], "bolum_yollari": [string]}.
Listelerde yalnızca verilen kod ve yollar yer alabilir.`)},
	}

	in := map[string]any{
		"soru":       query,
		"kazanimlar": objectives,
		"bolumler":   sections,
	}
	inJSON, _ := json.Marshal(in)

	resp, err := m.GenerateContent(ctx, genai.Text("INPUT_JSON:\n"+string(inJSON)))
	if err != nil {
		return nil, nil, err
	}
	txt := util.StripCodeFences(strings.TrimSpace(firstText(resp)))
	if txt == "" {
		return nil, nil, fmt.Errorf("gemini rerank: empty response")
	}

	var rr rerankResult
	if err := json.Unmarshal([]byte(txt), &rr); err != nil {
		return nil, nil, fmt.Errorf("gemini rerank: bad JSON: %w", err)
	}
	return reorderObjectives(objectives, rr.ObjectiveCodes), reorderSections(sections, rr.SectionPaths), nil
}

// reorderObjectives applies the model's preferred order; candidates the model
// omitted keep their relative order at the tail.
func reorderObjectives(in []analysis.Objective, codes []string) []analysis.Objective {
	byCode := make(map[string]analysis.Objective, len(in))
	for _, o := range in {
		byCode[o.Code] = o
	}
	out := make([]analysis.Objective, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, c := range codes {
		if o, ok := byCode[c]; ok && !seen[c] {
			out = append(out, o)
			seen[c] = true
		}
	}
	for _, o := range in {
		if !seen[o.Code] {
			out = append(out, o)
		}
	}
	return out
}

func reorderSections(in []analysis.Section, paths []string) []analysis.Section {
	byPath := make(map[string]analysis.Section, len(in))
	for _, s := range in {
		byPath[s.Path] = s
	}
	out := make([]analysis.Section, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range paths {
		if s, ok := byPath[p]; ok && !seen[p] {
			out = append(out, s)
			seen[p] = true
		}
	}
	for _, s := range in {
		if !seen[s.Path] {
			out = append(out, s)
		}
	}
	return out
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func ptrFloat32(v float32) *float32 { return &v }
