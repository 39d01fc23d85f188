package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/app/models/dto"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/helpers"
	"github.com/yigit/enrollplan/internal/prereq"
)

// CatalogService handles catalog browsing
type CatalogService struct {
	provider *catalog.Provider
	logger   zerolog.Logger
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(provider *catalog.Provider, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		provider: provider,
		logger:   logger,
	}
}

// SearchCourses returns one page of courses matching query and days
func (s *CatalogService) SearchCourses(ctx context.Context, query string, days []models.Weekday, page, size int) (*dto.PaginatedResponse, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}

	courses := snap.FindCourses(query, days...)
	start, end := helpers.CalculateSliceIndices(page, size, len(courses))
	items := courses[start:end]
	if items == nil {
		items = []*models.Course{}
	}

	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(int64(len(courses)), page, size),
	}, nil
}

// GetCourse returns a course with its sections
func (s *CatalogService) GetCourse(ctx context.Context, code string) (*dto.CourseResponse, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}

	course, ok := snap.GetCourse(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCourseNotFound, code)
	}
	resp := dto.NewCourseResponse(course, prereq.Format(course.Prerequisites), snap.SectionsForCourse(code))
	return &resp, nil
}

// ListSections returns the sections of a course
func (s *CatalogService) ListSections(ctx context.Context, code string) ([]*models.Section, error) {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	if _, ok := snap.GetCourse(code); !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCourseNotFound, code)
	}
	sections := snap.SectionsForCourse(code)
	if sections == nil {
		sections = []*models.Section{}
	}
	return sections, nil
}

// Refresh drops the shared snapshot cache and reloads the catalog
func (s *CatalogService) Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	if err := s.provider.Invalidate(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh catalog: %w", err)
	}
	snap, err := s.provider.Snapshot()
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("courses", snap.Len()).Msg("Catalog refreshed on request")

	return &dto.CatalogRefreshResponse{
		Courses:  snap.Len(),
		Sections: len(snap.Sections()),
		LoadedAt: snap.LoadedAt().Format(time.RFC3339),
	}, nil
}
