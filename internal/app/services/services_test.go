package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrollplan/internal/app/auth"
	"github.com/yigit/enrollplan/internal/app/migrations"
	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/app/repositories"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/db"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/filestorage"
	"github.com/yigit/enrollplan/internal/prereq"
	"github.com/yigit/enrollplan/internal/seed"
	"github.com/yigit/enrollplan/internal/transcript"
)

type testEnv struct {
	catalog     *CatalogService
	planning    *PlanningService
	transcripts *TranscriptService
	docs        *filestorage.LocalStorage
	records     *repositories.SQLTranscriptRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	snap, err := catalog.NewSnapshot(seed.DemoCatalog())
	require.NoError(t, err)
	provider := catalog.NewStaticProvider(snap)

	dir := t.TempDir()
	sqlDB, err := db.OpenSQLite(filepath.Join(dir, "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrations.MigrateSQLite(ctx, sqlDB, zerolog.Nop()))
	records := repositories.NewSQLTranscriptRepository(sqlDB)

	docs, err := filestorage.NewLocalStorage(dir, "docs")
	require.NoError(t, err)

	authz := auth.NewAuthorizationService(records)
	pipeline := transcript.NewPipeline(docs, records, transcript.NewExtractors(0), transcript.Options{}, zerolog.Nop())

	return &testEnv{
		catalog:     NewCatalogService(provider, zerolog.Nop()),
		planning:    NewPlanningService(provider, authz, 0, zerolog.Nop()),
		transcripts: NewTranscriptService(pipeline, docs, records, provider, authz, 2, zerolog.Nop()),
		docs:        docs,
		records:     records,
	}
}

func (e *testEnv) store(t *testing.T, name, content string) string {
	t.Helper()
	ref, err := e.docs.Save(context.Background(), name, strings.NewReader(content))
	require.NoError(t, err)
	return ref
}

func TestSearchCoursesPaginates(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.catalog.SearchCourses(context.Background(), "calculus", nil, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	items, ok := page.Items.([]*models.Course)
	require.True(t, ok)
	assert.Len(t, items, 1)

	page, err = env.catalog.SearchCourses(context.Background(), "no such course", nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Pagination.TotalItems)
	assert.NotNil(t, page.Items)
}

func TestGetCourse(t *testing.T) {
	env := newTestEnv(t)

	course, err := env.catalog.GetCourse(context.Background(), "cs 301")
	require.NoError(t, err)
	assert.Equal(t, "CS301", course.Code)
	assert.Equal(t, "CS201 and (MATH201 or MATH210)", course.PrerequisiteText)
	assert.Len(t, course.Sections, 1)

	_, err = env.catalog.GetCourse(context.Background(), "CS999")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestResolvePrerequisites(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.planning.ResolvePrerequisites(context.Background(), "CS450", 0)
	require.NoError(t, err)
	assert.Equal(t, prereq.DefaultMaxDepth, res.MaxDepth)
	assert.ElementsMatch(t, []string{"CS301", "CS201", "CS101", "CS102", "MATH201", "MATH210", "MATH101", "MATH102", "CS340", "CS220"}, res.Required)
	assert.False(t, res.Flags.Cycle)
	assert.False(t, res.Flags.NotFound)

	res, err = env.planning.ResolvePrerequisites(context.Background(), "CS450", 1)
	require.NoError(t, err)
	assert.True(t, res.Flags.DepthLimited)
	assert.ElementsMatch(t, []string{"CS301", "CS340"}, res.Required)

	res, err = env.planning.ResolvePrerequisites(context.Background(), "CS101", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Required)
	assert.NotNil(t, res.Required)
}

func TestDetectConflicts(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.planning.DetectConflicts(context.Background(), []string{"10101", "30101", "22001"})
	require.NoError(t, err)
	assert.False(t, res.HasConflicts)
	assert.Len(t, res.Sections, 3)

	res, err = env.planning.DetectConflicts(context.Background(), []string{"20101", "61001"})
	require.NoError(t, err)
	require.True(t, res.HasConflicts)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "61001", res.Conflicts[0].First)
	assert.Equal(t, "20101", res.Conflicts[0].Second)

	res, err = env.planning.DetectConflicts(context.Background(), []string{})
	require.NoError(t, err)
	assert.False(t, res.HasConflicts)
	assert.NotNil(t, res.Conflicts)
	assert.NotNil(t, res.Sections)

	_, err = env.planning.DetectConflicts(context.Background(), []string{"10101", "99999", "88888"})
	require.ErrorIs(t, err, apperrors.ErrSectionNotFound)
	var ce *apperrors.CustomError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"99999", "88888"}, ce.Details["crns"])
}

func TestIngestAndCheckEligibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ref := env.store(t, "transcript.txt", "CS101 A 3\nCS201 B 3\nMATH201 B+ 3\n")
	rec, err := env.transcripts.IngestTranscript(ctx, ref, "student-1")
	require.NoError(t, err)
	require.Equal(t, models.TranscriptProcessed, rec.Status)
	assert.Len(t, rec.Lines, 3)

	res, err := env.planning.CheckEligibility(ctx, rec.ID, "student-1", "CS301")
	require.NoError(t, err)
	assert.Equal(t, prereq.Satisfied, res.Outcome)
	assert.Empty(t, res.Missing)

	res, err = env.planning.CheckEligibility(ctx, rec.ID, "student-1", "CS340")
	require.NoError(t, err)
	assert.Equal(t, prereq.Unsatisfied, res.Outcome)
	assert.Equal(t, []string{"CS220"}, res.Missing)

	_, err = env.planning.CheckEligibility(ctx, rec.ID, "student-2", "CS301")
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	_, err = env.planning.CheckEligibility(ctx, rec.ID, "student-1", "CS999")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestCheckEligibilityRequiresProcessedRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := models.NewTranscriptRecord("student-1", "docs/missing.txt")
	require.NoError(t, env.records.SaveRecord(ctx, pending))

	_, err := env.planning.CheckEligibility(ctx, pending.ID, "student-1", "CS301")
	assert.ErrorIs(t, err, apperrors.ErrRecordNotReady)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestIngestBatchKeepsGoingPastFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	refs := []string{
		env.store(t, "a.txt", "CS101 A 3\n"),
		"docs/does-not-exist.txt",
		env.store(t, "b.csv", "course,grade,credits\nMATH101,B,4\nCS102,A,3\n"),
	}
	results, err := env.transcripts.IngestBatch(ctx, refs, "student-1")
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, refs[i], r.UploadRef)
		require.NotNil(t, r.Record)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, models.TranscriptProcessed, results[0].Record.Status)
	assert.ErrorIs(t, results[1].Err, apperrors.ErrExtractionFailed)
	assert.Equal(t, models.TranscriptError, results[1].Record.Status)
	assert.NoError(t, results[2].Err)

	listed, err := env.transcripts.ListRecords(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	listed, err = env.transcripts.ListRecords(ctx, "student-2")
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)

	_, err = env.transcripts.GetRecord(ctx, uuid.New(), "student-1")
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}
