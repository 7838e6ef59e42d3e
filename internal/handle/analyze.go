package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/contract"
	"kazanim-analiz/internal/util"
)

// AnalyzeRequest is the POST /v1/analiz payload. Exactly one of Metin or
// Goruntu must be set; Goruntu is base64, optionally a data: URL.
type AnalyzeRequest struct {
	Metin   string `json:"metin,omitempty"`
	Goruntu string `json:"goruntu,omitempty"`
	Sinif   int    `json:"sinif,omitempty"`
	Ders    string `json:"ders,omitempty"`
}

func (r *AnalyzeRequest) Validate() error {
	if (r.Metin == "") == (r.Goruntu == "") {
		return fmt.Errorf("exactly one of metin or goruntu is required")
	}
	if r.Sinif < 0 || r.Sinif > 12 {
		return fmt.Errorf("sinif must be 1-12 when set")
	}
	return nil
}

// AnalyzeResponse is the terminal state trimmed for transport: no raw image
// bytes, no internal input fields.
type AnalyzeResponse struct {
	RequestID     string               `json:"request_id"`
	Done          bool                 `json:"done"`
	Error         string               `json:"error,omitempty"`
	ErrorKind     analysis.ErrorKind   `json:"error_kind,omitempty"`
	Degraded      bool                 `json:"degraded,omitempty"`
	CurrentStep   string               `json:"current_step"`
	RetryCount    int                  `json:"retry_count,omitempty"`
	ExtractedText string               `json:"extracted_text,omitempty"`
	TopObjectives []analysis.Objective `json:"top_objectives,omitempty"`
	TopSections   []analysis.Section   `json:"top_sections,omitempty"`
	Diagnosis     *contract.Diagnosis  `json:"diagnosis,omitempty"`
}

func toResponse(st analysis.State) AnalyzeResponse {
	return AnalyzeResponse{
		RequestID:     st.RequestID,
		Done:          st.Done,
		Error:         st.Error,
		ErrorKind:     st.ErrorKind,
		Degraded:      st.Degraded,
		CurrentStep:   st.CurrentStep,
		RetryCount:    st.RetryCount,
		ExtractedText: st.ExtractedText,
		TopObjectives: st.TopObjectives,
		TopSections:   st.TopSections,
		Diagnosis:     st.Diagnosis,
	}
}

// Analyze runs the full pipeline synchronously and returns the terminal
// state. Client disconnects cancel the in-flight node via the request context.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := analysis.State{
		RequestID:   uuid.NewString(),
		UserGrade:   req.Sinif,
		UserSubject: req.Ders,
		CreatedAt:   time.Now().UTC(),
	}
	if req.Metin != "" {
		st.InputKind = analysis.InputText
		st.RawText = req.Metin
	} else {
		img, hint, err := util.DecodeBase64MaybeDataURL(req.Goruntu)
		if err != nil {
			writeError(w, http.StatusBadRequest, "goruntu is not valid base64")
			return
		}
		st.InputKind = analysis.InputImage
		st.ImageData = img
		st.ImageMIME = util.PickMIME("", hint, img)
	}

	out, err := h.orc.Run(r.Context(), st)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return // client gone, nothing to write
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.archiveTerminal(out)
	writeJSON(w, http.StatusOK, toResponse(out))
}

// archiveMaxAge bounds how old an archived terminal state may be before a
// lookup treats it as absent.
const archiveMaxAge = 7 * 24 * time.Hour

// Result returns the last checkpoint of a request, terminal or not. Terminal
// states whose checkpoint TTL already expired are served from the archive.
func (h *Handle) Result(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := h.store.Load(r.Context(), id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		if h.archive != nil {
			if archived, aerr := h.archive.Find(r.Context(), id, archiveMaxAge); aerr == nil {
				writeJSON(w, http.StatusOK, toResponse(archived))
				return
			}
		}
		writeError(w, http.StatusNotFound, "unknown request id")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toResponse(st))
}

// Resume re-enters an interrupted request from its last checkpoint.
func (h *Handle) Resume(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	out, err := h.orc.Resume(r.Context(), id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown request id")
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.archiveTerminal(out)
	writeJSON(w, http.StatusOK, toResponse(out))
}

func (h *Handle) archiveTerminal(st analysis.State) {
	if h.archive == nil || !st.Done {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.archive.Upsert(ctx, st); err != nil {
		log.Printf("archive %s: %v", st.RequestID, err)
	}
}
