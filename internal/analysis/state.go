// Package analysis defines the request state threaded through the question
// analysis pipeline and the sparse-update merge that nodes communicate with.
package analysis

import (
	"time"

	"kazanim-analiz/internal/contract"
)

type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
)

// ErrorKind classifies a terminal pipeline error.
type ErrorKind string

const (
	ErrTimeout ErrorKind = "timeout"
	ErrEmpty   ErrorKind = "empty_result"
	ErrFault   ErrorKind = "fault"
)

// Objective is a candidate curriculum learning objective (kazanım) with its
// retrieval score.
type Objective struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Section is a candidate textbook section.
type Section struct {
	Path      string  `json:"path"`
	Content   string  `json:"content"`
	PageRange string  `json:"page_range"`
	Score     float64 `json:"score"`
}

// State is the accumulating record of one analysis request. It is immutable
// by convention: nodes never touch it directly, they return an Update and the
// orchestrator produces the next State via Merge.
//
// Every derived field is owned by exactly one node. Control fields
// (CurrentStep, RetryCount, Error, Done) are the only fields legitimately
// rewritten across steps.
type State struct {
	RequestID string `json:"request_id"`

	// Input fields, set once at request creation. UserGrade and UserSubject
	// are declared by the student and are authoritative: no node may replace
	// them with model estimates. UserGrade 0 means not declared.
	InputKind   InputKind `json:"input_kind"`
	RawText     string    `json:"raw_text,omitempty"`
	ImageData   []byte    `json:"image_data,omitempty"`
	ImageMIME   string    `json:"image_mime,omitempty"`
	UserGrade   int       `json:"user_grade,omitempty"`
	UserSubject string    `json:"user_subject,omitempty"`

	// Written by the input analyzer.
	ExtractedText  string   `json:"extracted_text,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	EstimatedGrade int      `json:"estimated_grade,omitempty"`
	QuestionType   string   `json:"question_type,omitempty"`

	// Written by the objective retriever.
	Objectives []Objective `json:"objectives,omitempty"`

	// Written by the section retriever.
	Sections []Section `json:"sections,omitempty"`

	// Written by the reranker.
	TopObjectives []Objective `json:"top_objectives,omitempty"`
	TopSections   []Section   `json:"top_sections,omitempty"`

	// Written by the response generator (or the error handler's fallback).
	Diagnosis *contract.Diagnosis `json:"diagnosis,omitempty"`
	Degraded  bool                `json:"degraded,omitempty"`

	// Control fields.
	CurrentStep string    `json:"current_step,omitempty"`
	RetryCount  int       `json:"retry_count,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Done        bool      `json:"done,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Grade returns the grade filter the retriever must use: the student's
// declared grade when present, otherwise the model estimate, otherwise 0
// (no filter).
func (s State) Grade() int {
	if s.UserGrade > 0 {
		return s.UserGrade
	}
	return s.EstimatedGrade
}

// Failed reports whether the state carries a terminal error.
func (s State) Failed() bool { return s.Error != "" }

// Update is a sparse set of state fields produced by one node. Nil fields
// leave the current state untouched.
type Update struct {
	ExtractedText  *string   `json:"extracted_text,omitempty"`
	Topics         *[]string `json:"topics,omitempty"`
	EstimatedGrade *int      `json:"estimated_grade,omitempty"`
	QuestionType   *string   `json:"question_type,omitempty"`

	Objectives *[]Objective `json:"objectives,omitempty"`
	Sections   *[]Section   `json:"sections,omitempty"`

	TopObjectives *[]Objective `json:"top_objectives,omitempty"`
	TopSections   *[]Section   `json:"top_sections,omitempty"`

	Diagnosis *contract.Diagnosis `json:"diagnosis,omitempty"`
	Degraded  *bool               `json:"degraded,omitempty"`

	CurrentStep *string    `json:"current_step,omitempty"`
	RetryCount  *int       `json:"retry_count,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ErrorKind   *ErrorKind `json:"error_kind,omitempty"`
	Done        *bool      `json:"done,omitempty"`
}

// Pointer helpers for building sparse updates.

func String(s string) *string         { return &s }
func Int(i int) *int                  { return &i }
func Bool(b bool) *bool               { return &b }
func Kind(k ErrorKind) *ErrorKind     { return &k }
func Strings(s []string) *[]string    { return &s }
func Objs(o []Objective) *[]Objective { return &o }
func Secs(s []Section) *[]Section     { return &s }

// Merge applies a sparse update to a state and returns the result. It is
// total: any update, including one carrying a terminal error, merges cleanly.
// Set fields replace, unset fields are preserved, and slice fields are copied
// so the returned state shares no mutable backing with the update.
func Merge(cur State, u Update) State {
	next := cur

	if u.ExtractedText != nil {
		next.ExtractedText = *u.ExtractedText
	}
	if u.Topics != nil {
		next.Topics = append([]string(nil), *u.Topics...)
	}
	if u.EstimatedGrade != nil {
		next.EstimatedGrade = *u.EstimatedGrade
	}
	if u.QuestionType != nil {
		next.QuestionType = *u.QuestionType
	}
	if u.Objectives != nil {
		next.Objectives = append([]Objective(nil), *u.Objectives...)
	}
	if u.Sections != nil {
		next.Sections = append([]Section(nil), *u.Sections...)
	}
	if u.TopObjectives != nil {
		next.TopObjectives = append([]Objective(nil), *u.TopObjectives...)
	}
	if u.TopSections != nil {
		next.TopSections = append([]Section(nil), *u.TopSections...)
	}
	if u.Diagnosis != nil {
		d := *u.Diagnosis
		next.Diagnosis = &d
	}
	if u.Degraded != nil {
		next.Degraded = *u.Degraded
	}
	if u.CurrentStep != nil {
		next.CurrentStep = *u.CurrentStep
	}
	if u.RetryCount != nil {
		next.RetryCount = *u.RetryCount
	}
	if u.Error != nil {
		next.Error = *u.Error
	}
	if u.ErrorKind != nil {
		next.ErrorKind = *u.ErrorKind
	}
	if u.Done != nil {
		next.Done = *u.Done
	}

	return next
}
