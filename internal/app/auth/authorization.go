package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/logger"
)

// RecordLoader loads transcript records by ID
type RecordLoader interface {
	LoadRecord(ctx context.Context, id uuid.UUID) (*models.TranscriptRecord, error)
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	records RecordLoader
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(records RecordLoader) *AuthorizationService {
	return &AuthorizationService{
		records: records,
	}
}

// CanReadTranscript checks if the user owns the transcript record
func (s *AuthorizationService) CanReadTranscript(ctx context.Context, recordID uuid.UUID, userID string) (*models.TranscriptRecord, bool, error) {
	rec, err := s.records.LoadRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRecordNotFound) {
			return nil, false, err
		}
		logger.Error().Err(err).Str("recordID", recordID.String()).Msg("Error loading transcript record for authorization")
		return nil, false, fmt.Errorf("failed to check transcript ownership: %w", err)
	}
	return rec, rec.UserID == userID, nil
}

// ValidateTranscriptOwnership returns the record when the user owns it.
// Records of other users are reported as missing so their IDs are not
// disclosed.
func (s *AuthorizationService) ValidateTranscriptOwnership(ctx context.Context, recordID uuid.UUID, userID string) (*models.TranscriptRecord, error) {
	rec, owns, err := s.CanReadTranscript(ctx, recordID, userID)
	if err != nil {
		return nil, err
	}
	if !owns {
		logger.Warn().Str("recordID", recordID.String()).Str("userID", userID).Msg("Transcript access by non-owner")
		return nil, apperrors.ErrRecordNotFound
	}
	return rec, nil
}
