package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// TranscriptStatus is the ingestion state of a transcript record.
type TranscriptStatus string

const (
	TranscriptPending   TranscriptStatus = "pending"
	TranscriptProcessed TranscriptStatus = "processed"
	TranscriptError     TranscriptStatus = "error"
)

// Terminal reports whether no further transition is allowed.
func (s TranscriptStatus) Terminal() bool {
	return s == TranscriptProcessed || s == TranscriptError
}

// LineStatus is the reconciliation outcome of a parsed transcript line.
type LineStatus string

const (
	LineMatched   LineStatus = "matched"
	LineUnmatched LineStatus = "unmatched"
	LineAmbiguous LineStatus = "ambiguous"
)

// ParsedLine is one course row recognised in a transcript document.
type ParsedLine struct {
	Raw            string              `json:"raw"`
	CourseCode     string              `json:"courseCode"`
	Grade          string              `json:"grade"`
	Credits        decimal.NullDecimal `json:"credits"`        // as printed on the document
	CatalogCredits decimal.NullDecimal `json:"catalogCredits"` // from the catalog when matched
	CourseTitle    string              `json:"courseTitle,omitempty"`
	Status         LineStatus          `json:"status"`
	Occurrences    int                 `json:"occurrences"`
}

// TranscriptRecord is a user-owned uploaded transcript and its ingestion result.
type TranscriptRecord struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	UserID       string              `json:"userId" db:"user_id"`
	UploadRef    string              `json:"uploadRef" db:"upload_ref"`
	Status       TranscriptStatus    `json:"status" db:"status"`
	Diagnostic   string              `json:"diagnostic,omitempty" db:"diagnostic"`
	Lines        []ParsedLine        `json:"lines" db:"lines"`
	GPA          decimal.NullDecimal `json:"gpa" db:"gpa"`
	TotalCredits decimal.Decimal     `json:"totalCredits" db:"total_credits"`
	CreatedAt    time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time           `json:"updatedAt" db:"updated_at"`
}

// NewTranscriptRecord creates a pending record for an upload.
func NewTranscriptRecord(userID, uploadRef string) *TranscriptRecord {
	now := time.Now().UTC()
	return &TranscriptRecord{
		ID:        uuid.New(),
		UserID:    userID,
		UploadRef: uploadRef,
		Status:    TranscriptPending,
		Lines:     []ParsedLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves a pending record to a terminal status. Terminal records
// never transition again; a failed ingestion needs a fresh upload.
func (r *TranscriptRecord) Transition(to TranscriptStatus) error {
	if r.Status != TranscriptPending || !to.Terminal() {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the record to error, dropping any parsed lines.
func (r *TranscriptRecord) Fail(diagnostic string) error {
	if err := r.Transition(TranscriptError); err != nil {
		return err
	}
	r.Diagnostic = diagnostic
	r.Lines = []ParsedLine{}
	r.GPA = decimal.NullDecimal{}
	r.TotalCredits = decimal.Zero
	return nil
}

// PassedCourses returns the catalog-recognised courses the record shows as passed.
func (r *TranscriptRecord) PassedCourses(passed func(grade string) bool) map[string]bool {
	out := make(map[string]bool)
	for _, l := range r.Lines {
		if l.Status == LineUnmatched {
			continue
		}
		if passed(l.Grade) {
			out[l.CourseCode] = true
		}
	}
	return out
}
