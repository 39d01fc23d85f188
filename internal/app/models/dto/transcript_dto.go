package dto

import (
	"time"

	"github.com/yigit/enrollplan/internal/app/models"
)

// TranscriptSummary is a transcript record without its lines
type TranscriptSummary struct {
	ID           string                  `json:"id"`
	Status       models.TranscriptStatus `json:"status" example:"processed"`
	Diagnostic   string                  `json:"diagnostic,omitempty"`
	GPA          *string                 `json:"gpa" example:"3.42"`
	TotalCredits string                  `json:"totalCredits" example:"45"`
	LineCount    int                     `json:"lineCount" example:"15"`
	CreatedAt    string                  `json:"createdAt" example:"2025-04-23T12:01:05Z"`
}

// NewTranscriptSummary builds a TranscriptSummary
func NewTranscriptSummary(rec *models.TranscriptRecord) TranscriptSummary {
	s := TranscriptSummary{
		ID:           rec.ID.String(),
		Status:       rec.Status,
		Diagnostic:   rec.Diagnostic,
		TotalCredits: rec.TotalCredits.String(),
		LineCount:    len(rec.Lines),
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.GPA.Valid {
		gpa := rec.GPA.Decimal.StringFixed(2)
		s.GPA = &gpa
	}
	return s
}
