package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/auth"
	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/conflict"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/prereq"
	"github.com/yigit/enrollplan/internal/transcript"
)

// PlanningService resolves prerequisites, checks schedules and eligibility
type PlanningService struct {
	provider *catalog.Provider
	authz    *auth.AuthorizationService
	maxDepth int
	logger   zerolog.Logger
}

// NewPlanningService creates a new planning service instance. maxDepth is
// the default resolution depth.
func NewPlanningService(provider *catalog.Provider, authz *auth.AuthorizationService, maxDepth int, logger zerolog.Logger) *PlanningService {
	if maxDepth <= 0 {
		maxDepth = prereq.DefaultMaxDepth
	}
	return &PlanningService{
		provider: provider,
		authz:    authz,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// ResolvePrerequisites expands the prerequisite tree of a course. A
// non-positive maxDepth uses the service default; larger values are capped
// by it.
func (s *PlanningService) ResolvePrerequisites(ctx context.Context, code string, maxDepth int) (*dto.PrerequisiteResponse, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 || maxDepth > s.maxDepth {
		maxDepth = s.maxDepth
	}

	root, err := prereq.Resolve(snap, code, maxDepth)
	if err != nil {
		return nil, err
	}
	flags := root.Flags()
	if flags.Cycle {
		s.logger.Warn().Str("course", root.Code).Msg("Prerequisite cycle in catalog")
	}

	required := root.RequiredCodes()
	if required == nil {
		required = []string{}
	}
	return &dto.PrerequisiteResponse{
		Root:     root,
		Required: required,
		Flags:    flags,
		MaxDepth: maxDepth,
	}, nil
}

// DetectConflicts checks the sections named by crns. Unknown CRNs fail the
// request with apperrors.ErrSectionNotFound listing them.
func (s *PlanningService) DetectConflicts(ctx context.Context, crns []string) (*dto.ConflictResponse, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}

	sections := make([]*models.Section, 0, len(crns))
	var unknown []string
	for _, crn := range crns {
		sec, ok := snap.Section(crn)
		if !ok {
			unknown = append(unknown, crn)
			continue
		}
		sections = append(sections, sec)
	}
	if len(unknown) > 0 {
		return nil, apperrors.NewCustomError(apperrors.ErrSectionNotFound, "section not found").
			WithDetails(map[string]interface{}{"crns": unknown})
	}

	report := conflict.Detect(sections)
	return &dto.ConflictResponse{ConflictReport: report, Sections: sections}, nil
}

// CheckEligibility evaluates a course's prerequisites against the courses a
// processed transcript shows as passed.
func (s *PlanningService) CheckEligibility(ctx context.Context, recordID uuid.UUID, userID, code string) (*dto.EligibilityResponse, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	course, ok := snap.GetCourse(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCourseNotFound, code)
	}

	rec, err := s.authz.ValidateTranscriptOwnership(ctx, recordID, userID)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.TranscriptProcessed {
		return nil, fmt.Errorf("%w: record is %s", apperrors.ErrRecordNotReady, rec.Status)
	}

	result, err := prereq.Evaluate(course.Prerequisites, rec.PassedCourses(transcript.Passed))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate prerequisites of %s: %w", course.Code, err)
	}

	return &dto.EligibilityResponse{
		CourseCode:   course.Code,
		RecordID:     rec.ID.String(),
		Outcome:      result.Outcome,
		Missing:      result.Missing,
		Prerequisite: prereq.Format(course.Prerequisites),
	}, nil
}
