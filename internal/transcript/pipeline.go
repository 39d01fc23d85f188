package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// DefaultExtractTimeout bounds the extraction stage when none is configured.
const DefaultExtractTimeout = 30 * time.Second

// RecordStore persists transcript records.
type RecordStore interface {
	LoadRecord(ctx context.Context, id uuid.UUID) (*models.TranscriptRecord, error)
	SaveRecord(ctx context.Context, rec *models.TranscriptRecord) error
	ListRecordsByUser(ctx context.Context, userID string) ([]*models.TranscriptRecord, error)
}

// DocumentOpener opens stored uploads by reference.
type DocumentOpener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Options configures a Pipeline.
type Options struct {
	ExtractTimeout time.Duration
}

// Pipeline runs transcript ingestion.
type Pipeline struct {
	docs       DocumentOpener
	records    RecordStore
	extractors *Extractors
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(docs DocumentOpener, records RecordStore, extractors *Extractors, opts Options, logger zerolog.Logger) *Pipeline {
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = DefaultExtractTimeout
	}
	if extractors == nil {
		extractors = NewExtractors(0)
	}
	return &Pipeline{
		docs:       docs,
		records:    records,
		extractors: extractors,
		timeout:    opts.ExtractTimeout,
		logger:     logger.With().Str("component", "transcript").Logger(),
	}
}

// Ingest creates a pending record for the upload and processes it.
func (p *Pipeline) Ingest(ctx context.Context, catalog CourseLookup, uploadRef, userID string) (*models.TranscriptRecord, error) {
	rec := models.NewTranscriptRecord(userID, uploadRef)
	if err := p.records.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save pending transcript record: %w", err)
	}
	return rec, p.Process(ctx, catalog, rec)
}

// Process runs the stages on a pending record and saves the terminal
// result. An extraction failure moves the record to error with a diagnostic
// and no lines, saves it, and is returned wrapped around
// apperrors.ErrExtractionFailed. Unmatched lines do not fail processing.
func (p *Pipeline) Process(ctx context.Context, catalog CourseLookup, rec *models.TranscriptRecord) error {
	log := p.logger.With().Str("recordId", rec.ID.String()).Str("userId", rec.UserID).Logger()
	if rec.Status != models.TranscriptPending {
		return fmt.Errorf("%w: record %s is %s", apperrors.ErrInvalidTransition, rec.ID, rec.Status)
	}

	text, mime, err := p.extract(ctx, rec.UploadRef)
	if err != nil {
		var ce *apperrors.CustomError
		diagnostic := err.Error()
		if errors.As(err, &ce) {
			if cause, ok := ce.Details["cause"].(string); ok && cause != "" {
				diagnostic = fmt.Sprintf("%s: %s", ce.Message, cause)
			}
			if ce.Details == nil {
				ce.Details = make(map[string]interface{})
			}
			ce.Details["recordId"] = rec.ID.String()
		}
		log.Warn().Err(err).Str("uploadRef", rec.UploadRef).Str("mime", mime).Msg("Transcript extraction failed")
		if ferr := rec.Fail(diagnostic); ferr != nil {
			return ferr
		}
		if serr := p.records.SaveRecord(ctx, rec); serr != nil {
			return fmt.Errorf("failed to save failed transcript record: %w", serr)
		}
		log.Info().Str("status", string(rec.Status)).Msg("Transcript record finished")
		return err
	}
	log.Debug().Str("mime", mime).Int("chars", len(text)).Msg("Transcript text extracted")

	entries := ParseText(text)
	log.Debug().Int("entries", len(entries)).Msg("Transcript lines parsed")

	lines := Reconcile(entries, catalog)
	totals := Aggregate(lines)

	rec.Lines = lines
	rec.GPA = totals.GPA
	rec.TotalCredits = totals.TotalCredits
	if err := rec.Transition(models.TranscriptProcessed); err != nil {
		return err
	}
	if err := p.records.SaveRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to save processed transcript record: %w", err)
	}

	log.Info().
		Str("status", string(rec.Status)).
		Int("lines", len(rec.Lines)).
		Str("gpa", rec.GPA.Decimal.String()).
		Bool("hasGpa", rec.GPA.Valid).
		Str("credits", rec.TotalCredits.String()).
		Msg("Transcript record finished")
	return nil
}

type extraction struct {
	text string
	mime string
	err  error
}

// extract opens the document and runs the extractors under the configured
// deadline. The handle is closed on every path, including timeout.
func (p *Pipeline) extract(ctx context.Context, ref string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rc, err := p.docs.Open(ctx, ref)
	if err != nil {
		return "", "", apperrors.NewExtractionError(err, "document could not be opened")
	}
	defer rc.Close()

	done := make(chan extraction, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extraction{err: fmt.Errorf("extractor panicked: %v", r)}
			}
		}()
		text, mime, err := p.extractors.Extract(ctx, rc)
		done <- extraction{text: text, mime: mime, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", "", apperrors.NewExtractionError(ctx.Err(), "document extraction timed out")
	case res := <-done:
		if res.err != nil {
			return "", res.mime, apperrors.NewExtractionError(res.err, "document could not be read")
		}
		return res.text, res.mime, nil
	}
}
