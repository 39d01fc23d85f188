package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
	"github.com/yigit/enrollplan/internal/pkg/dberrors"
)

// CatalogRepository handles database operations for courses and sections
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{
		db: db,
	}
}

var courseColumns = []string{
	"c.code", "c.title", "c.credits::text", "c.department",
	"c.description", "c.prerequisites", "c.requirement_note",
}

var sectionColumns = []string{
	"s.crn", "s.course_code", "s.label", "s.days", "s.start_minute", "s.end_minute",
	"s.location", "s.instructor", "s.capacity", "s.enrollment", "s.roster",
}

func (r *CatalogRepository) selectCoursesQuery() squirrel.SelectBuilder {
	return squirrel.Select(courseColumns...).
		From("courses c").
		OrderBy("c.code").
		PlaceholderFormat(squirrel.Dollar)
}

func (r *CatalogRepository) selectSectionsQuery() squirrel.SelectBuilder {
	return squirrel.Select(sectionColumns...).
		From("sections s").
		OrderBy("s.course_code", "s.label", "s.crn").
		PlaceholderFormat(squirrel.Dollar)
}

// GetCourse retrieves a course by code
func (r *CatalogRepository) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	sql, args, err := r.courseQuery(code).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build course query: %w", err)
	}

	course, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return course, nil
}

func (r *CatalogRepository) courseQuery(code string) squirrel.SelectBuilder {
	return r.selectCoursesQuery().Where(squirrel.Eq{"c.code": models.NormalizeCourseCode(code)})
}

func (r *CatalogRepository) courseSectionsQuery(code string) squirrel.SelectBuilder {
	return r.selectSectionsQuery().Where(squirrel.Eq{"s.course_code": models.NormalizeCourseCode(code)})
}

// ListSections retrieves the sections of a course
func (r *CatalogRepository) ListSections(ctx context.Context, code string) ([]*models.Section, error) {
	return r.querySections(ctx, r.courseSectionsQuery(code))
}

// ListAllSections retrieves every section
func (r *CatalogRepository) ListAllSections(ctx context.Context) ([]*models.Section, error) {
	return r.querySections(ctx, r.selectSectionsQuery())
}

// ListCourses retrieves every course
func (r *CatalogRepository) ListCourses(ctx context.Context) ([]*models.Course, error) {
	return r.queryCourses(ctx, r.selectCoursesQuery())
}

// Search finds courses whose code or title contains query, optionally
// restricted to courses with a section meeting on one of days
func (r *CatalogRepository) Search(ctx context.Context, query string, days []models.Weekday) ([]*models.Course, error) {
	return r.queryCourses(ctx, r.searchQuery(query, days))
}

func (r *CatalogRepository) searchQuery(query string, days []models.Weekday) squirrel.SelectBuilder {
	builder := r.selectCoursesQuery()
	if q := strings.TrimSpace(query); q != "" {
		builder = builder.Where(squirrel.Or{
			squirrel.ILike{"c.title": "%" + escapeLike(q) + "%"},
			squirrel.ILike{"c.code": "%" + escapeLike(models.NormalizeCourseCode(q)) + "%"},
		})
	}
	if len(days) > 0 {
		builder = builder.Where("EXISTS (SELECT 1 FROM sections s WHERE s.course_code = c.code AND s.days && ?::smallint[])", weekdaysToInts(days))
	}
	return builder
}

// CountCourses returns the number of courses in the catalog
func (r *CatalogRepository) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

// ImportCatalog upserts courses and sections in one transaction. Sections
// not present in the import keep their rows.
func (r *CatalogRepository) ImportCatalog(ctx context.Context, courses []*models.Course, sections []*models.Section) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range courses {
		var prereqs any
		if c.Prerequisites != nil {
			data, err := json.Marshal(c.Prerequisites)
			if err != nil {
				return fmt.Errorf("failed to encode prerequisites of %s: %w", c.Code, err)
			}
			prereqs = string(data)
		}
		batch.Queue(`
			INSERT INTO courses (code, title, credits, department, description, prerequisites, requirement_note)
			VALUES ($1, $2, $3::numeric, $4, $5, $6::jsonb, $7)
			ON CONFLICT (code) DO UPDATE SET
				title = EXCLUDED.title,
				credits = EXCLUDED.credits,
				department = EXCLUDED.department,
				description = EXCLUDED.description,
				prerequisites = EXCLUDED.prerequisites,
				requirement_note = EXCLUDED.requirement_note,
				updated_at = NOW()`,
			c.Code, c.Title, c.Credits.String(), c.Department, c.Description, prereqs, c.RequirementNote)
	}
	for _, s := range sections {
		roster := s.Roster
		if roster == nil {
			roster = []string{}
		}
		batch.Queue(`
			INSERT INTO sections (crn, course_code, label, days, start_minute, end_minute, location, instructor, capacity, enrollment, roster)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (crn) DO UPDATE SET
				course_code = EXCLUDED.course_code,
				label = EXCLUDED.label,
				days = EXCLUDED.days,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				location = EXCLUDED.location,
				instructor = EXCLUDED.instructor,
				capacity = EXCLUDED.capacity,
				enrollment = EXCLUDED.enrollment,
				roster = EXCLUDED.roster,
				updated_at = NOW()`,
			s.CRN, s.CourseCode, s.Label, weekdaysToInts(s.Days), int16(s.Start), int16(s.End),
			s.Location, s.Instructor, s.Capacity, s.Enrollment, roster)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			if dberrors.IsForeignKeyViolation(err) || dberrors.IsCheckConstraintError(err, "") {
				return apperrors.NewCustomError(apperrors.ErrValidationFailed, "catalog violates a database constraint").
					WithDetails(map[string]interface{}{"statement": i + 1, "constraint": dberrors.ConstraintName(err)})
			}
			return fmt.Errorf("catalog import statement %d failed: %w", i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *CatalogRepository) queryCourses(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.Course, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build course query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *CatalogRepository) querySections(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.Section, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build section query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		var (
			s          models.Section
			days       []int16
			start, end int16
		)
		if err := rows.Scan(
			&s.CRN,
			&s.CourseCode,
			&s.Label,
			&days,
			&start,
			&end,
			&s.Location,
			&s.Instructor,
			&s.Capacity,
			&s.Enrollment,
			&s.Roster,
		); err != nil {
			return nil, err
		}
		s.Days = intsToWeekdays(days)
		s.Start = models.ClockTime(start)
		s.End = models.ClockTime(end)
		sections = append(sections, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var (
		c       models.Course
		credits string
		prereqs []byte
	)
	if err := row.Scan(
		&c.Code,
		&c.Title,
		&credits,
		&c.Department,
		&c.Description,
		&prereqs,
		&c.RequirementNote,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(credits)
	if err != nil {
		return nil, fmt.Errorf("course %s has invalid credits %q: %w", c.Code, credits, err)
	}
	c.Credits = d
	if len(prereqs) > 0 {
		var expr models.PrereqExpr
		if err := json.Unmarshal(prereqs, &expr); err != nil {
			return nil, fmt.Errorf("course %s has invalid prerequisites: %w", c.Code, err)
		}
		c.Prerequisites = &expr
	}
	return &c, nil
}

func weekdaysToInts(days []models.Weekday) []int16 {
	out := make([]int16, len(days))
	for i, d := range days {
		out[i] = int16(d)
	}
	return out
}

func intsToWeekdays(days []int16) []models.Weekday {
	out := make([]models.Weekday, len(days))
	for i, d := range days {
		out[i] = models.Weekday(d)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
