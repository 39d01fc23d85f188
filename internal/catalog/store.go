package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// Store is the durable catalog collaborator. It is read-only from the
// engine's point of view.
type Store interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
	ListSections(ctx context.Context, code string) ([]*models.Section, error)
	Search(ctx context.Context, query string, days []models.Weekday) ([]*models.Course, error)
	ListCourses(ctx context.Context) ([]*models.Course, error)
	ListAllSections(ctx context.Context) ([]*models.Section, error)
}

// Load reads the whole catalog from store into a new snapshot. Courses and
// sections are fetched concurrently.
func Load(ctx context.Context, store Store) (*Snapshot, error) {
	var (
		courses  []*models.Course
		sections []*models.Section
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = store.ListCourses(gctx)
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sections, err = store.ListAllSections(gctx)
		if err != nil {
			return fmt.Errorf("failed to list sections: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewSnapshot(courses, sections)
}

// MemoryStore serves a fixed snapshot through the Store interface. It backs
// file-based CLI runs and tests.
type MemoryStore struct {
	snap *Snapshot
}

// NewMemoryStore builds a MemoryStore from raw lists.
func NewMemoryStore(courses []*models.Course, sections []*models.Section) (*MemoryStore, error) {
	snap, err := NewSnapshot(courses, sections)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{snap: snap}, nil
}

// GetCourse implements Store.
func (m *MemoryStore) GetCourse(_ context.Context, code string) (*models.Course, error) {
	c, ok := m.snap.GetCourse(code)
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return c, nil
}

// ListSections implements Store.
func (m *MemoryStore) ListSections(_ context.Context, code string) ([]*models.Section, error) {
	return m.snap.SectionsForCourse(code), nil
}

// Search implements Store.
func (m *MemoryStore) Search(_ context.Context, query string, days []models.Weekday) ([]*models.Course, error) {
	return m.snap.FindCourses(query, days...), nil
}

// ListCourses implements Store.
func (m *MemoryStore) ListCourses(_ context.Context) ([]*models.Course, error) {
	return m.snap.Courses(), nil
}

// ListAllSections implements Store.
func (m *MemoryStore) ListAllSections(_ context.Context) ([]*models.Section, error) {
	return m.snap.Sections(), nil
}
