package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/enrollplan/internal/app/auth"
	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/pkg/filestorage"
	"github.com/yigit/enrollplan/internal/transcript"
)

// TranscriptService handles transcript uploads and ingestion
type TranscriptService struct {
	pipeline *transcript.Pipeline
	docs     filestorage.DocumentStore
	records  transcript.RecordStore
	provider *catalog.Provider
	authz    *auth.AuthorizationService
	workers  int
	logger   zerolog.Logger
}

// NewTranscriptService creates a new transcript service instance
func NewTranscriptService(
	pipeline *transcript.Pipeline,
	docs filestorage.DocumentStore,
	records transcript.RecordStore,
	provider *catalog.Provider,
	authz *auth.AuthorizationService,
	workers int,
	logger zerolog.Logger,
) *TranscriptService {
	if workers < 1 {
		workers = 1
	}
	return &TranscriptService{
		pipeline: pipeline,
		docs:     docs,
		records:  records,
		provider: provider,
		authz:    authz,
		workers:  workers,
		logger:   logger,
	}
}

// Upload stores an uploaded document and ingests it
func (s *TranscriptService) Upload(ctx context.Context, userID string, file *multipart.FileHeader) (*models.TranscriptRecord, error) {
	ref, err := filestorage.SaveMultipart(ctx, s.docs, file)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("userID", userID).Str("ref", ref).Int64("size", file.Size).Msg("Transcript document stored")
	return s.IngestTranscript(ctx, ref, userID)
}

// IngestTranscript runs the ingestion pipeline on a stored document. On
// extraction failure the error-status record is returned with the error.
func (s *TranscriptService) IngestTranscript(ctx context.Context, uploadRef, userID string) (*models.TranscriptRecord, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	return s.pipeline.Ingest(ctx, snap, uploadRef, userID)
}

// BatchResult is the outcome of one document of IngestBatch
type BatchResult struct {
	UploadRef string                   `json:"uploadRef"`
	Record    *models.TranscriptRecord `json:"record,omitempty"`
	Err       error                    `json:"-"`
}

// IngestBatch ingests documents concurrently, at most workers at a time.
// Every document is attempted; results keep the order of refs. All records
// read the same catalog snapshot.
func (s *TranscriptService) IngestBatch(ctx context.Context, uploadRefs []string, userID string) ([]BatchResult, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(uploadRefs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, ref := range uploadRefs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{UploadRef: ref, Err: err}
				return nil
			}
			rec, err := s.pipeline.Ingest(ctx, snap, ref, userID)
			results[i] = BatchResult{UploadRef: ref, Record: rec, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info().Int("documents", len(uploadRefs)).Int("failed", failed).Msg("Transcript batch finished")
	return results, nil
}

// GetRecord returns a record owned by userID
func (s *TranscriptService) GetRecord(ctx context.Context, id uuid.UUID, userID string) (*models.TranscriptRecord, error) {
	return s.authz.ValidateTranscriptOwnership(ctx, id, userID)
}

// ListRecords returns the records of userID, newest first
func (s *TranscriptService) ListRecords(ctx context.Context, userID string) ([]*models.TranscriptRecord, error) {
	records, err := s.records.ListRecordsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript records: %w", err)
	}
	if records == nil {
		records = []*models.TranscriptRecord{}
	}
	return records, nil
}
