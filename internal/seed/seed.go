package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appModels "github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/prereq"
)

// CatalogImporter is the write side of the catalog repository.
type CatalogImporter interface {
	CountCourses(ctx context.Context) (int64, error)
	ImportCatalog(ctx context.Context, courses []*appModels.Course, sections []*appModels.Section) error
}

// CreateDefaultCatalog inserts the demo catalog when the catalog is empty.
func CreateDefaultCatalog(ctx context.Context, repo CatalogImporter, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default catalog...")

	count, err := repo.CountCourses(ctx)
	if err != nil {
		return fmt.Errorf("failed to count courses: %w", err)
	}
	if count > 0 {
		lgr.Info().Int64("courses", count).Msg("Catalog already populated, skipping demo seed")
		return nil
	}

	courses, sections := DemoCatalog()
	if err := repo.ImportCatalog(ctx, courses, sections); err != nil {
		lgr.Error().Err(err).Msg("Error creating demo catalog")
		return err
	}

	lgr.Info().Int("courses", len(courses)).Int("sections", len(sections)).Msg("Default catalog created.")
	return nil
}

// DemoCatalog returns a small CS/MATH catalog.
func DemoCatalog() ([]*appModels.Course, []*appModels.Section) {
	course := func(code, title string, credits int64, prereqs string) *appModels.Course {
		return &appModels.Course{
			Code:          code,
			Title:         title,
			Credits:       decimal.NewFromInt(credits),
			Department:    appModels.DepartmentOf(code),
			Prerequisites: prereq.Parse(prereqs),
		}
	}
	courses := []*appModels.Course{
		course("CS101", "Introduction to Programming", 3, ""),
		course("CS102", "Programming Fundamentals", 3, ""),
		course("CS201", "Data Structures", 3, "either CS101 or CS102"),
		course("CS220", "Computer Organization", 3, "CS101"),
		course("CS301", "Algorithms", 3, "CS201 and (MATH201 or MATH210)"),
		course("CS340", "Operating Systems", 4, "CS220 and CS201"),
		course("CS450", "Compilers", 3, "CS301 and CS340"),
		course("MATH101", "Calculus I", 4, ""),
		course("MATH102", "Calculus II", 4, "MATH101"),
		course("MATH201", "Discrete Mathematics", 3, "MATH101"),
		course("MATH210", "Linear Algebra", 3, "MATH102"),
	}
	courses[6].RequirementNote = "Senior standing recommended."

	mwf := []appModels.Weekday{appModels.Monday, appModels.Wednesday, appModels.Friday}
	tr := []appModels.Weekday{appModels.Tuesday, appModels.Thursday}
	section := func(crn, code, label string, days []appModels.Weekday, sh, sm, eh, em, capacity int) *appModels.Section {
		return &appModels.Section{
			CRN:        crn,
			CourseCode: code,
			Label:      label,
			Days:       days,
			Start:      appModels.NewClockTime(sh, sm),
			End:        appModels.NewClockTime(eh, em),
			Capacity:   capacity,
		}
	}
	sections := []*appModels.Section{
		section("10101", "CS101", "01", mwf, 9, 0, 9, 50, 40),
		section("10102", "CS101", "02", tr, 13, 0, 14, 15, 40),
		section("10201", "CS102", "01", mwf, 10, 0, 10, 50, 35),
		section("20101", "CS201", "01", mwf, 10, 0, 10, 50, 35),
		section("20102", "CS201", "02", tr, 9, 30, 10, 45, 35),
		section("22001", "CS220", "01", tr, 11, 0, 12, 15, 30),
		section("30101", "CS301", "01", mwf, 11, 0, 11, 50, 30),
		section("34001", "CS340", "01", tr, 10, 30, 11, 45, 30),
		section("45001", "CS450", "01", mwf, 14, 0, 14, 50, 25),
		section("61001", "MATH101", "01", mwf, 9, 30, 10, 20, 60),
		section("61002", "MATH101", "02", tr, 8, 0, 9, 15, 60),
		section("61021", "MATH102", "01", mwf, 13, 0, 13, 50, 50),
		section("62011", "MATH201", "01", tr, 14, 30, 15, 45, 45),
		section("62101", "MATH210", "01", mwf, 12, 0, 12, 50, 45),
	}
	return courses, sections
}
