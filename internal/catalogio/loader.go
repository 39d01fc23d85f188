// Package catalogio reads bulk catalog files. A catalog file is a flat table
// with one row per section; course columns repeat on every section row of the
// course, and a row without a CRN declares a course with no sections.
package catalogio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/catalog"
	"github.com/yigit/enrollplan/internal/pkg/validation"
	"github.com/yigit/enrollplan/internal/prereq"
)

// Row is one line of a catalog file.
type Row struct {
	Course          string `csv:"course" parquet:"course" validate:"required"`
	Title           string `csv:"title" parquet:"title" validate:"required"`
	Credits         string `csv:"credits" parquet:"credits" validate:"required,numeric"`
	Description     string `csv:"description,omitempty" parquet:"description,optional"`
	Prerequisites   string `csv:"prerequisites,omitempty" parquet:"prerequisites,optional"`
	RequirementNote string `csv:"requirement_note,omitempty" parquet:"requirement_note,optional"`
	CRN             string `csv:"crn,omitempty" parquet:"crn,optional"`
	Label           string `csv:"label,omitempty" parquet:"label,optional"`
	Days            string `csv:"days,omitempty" parquet:"days,optional"`
	Start           string `csv:"start,omitempty" parquet:"start,optional" validate:"required_with=CRN"`
	End             string `csv:"end,omitempty" parquet:"end,optional" validate:"required_with=CRN"`
	Location        string `csv:"location,omitempty" parquet:"location,optional"`
	Instructor      string `csv:"instructor,omitempty" parquet:"instructor,optional"`
	Capacity        int32  `csv:"capacity,omitempty" parquet:"capacity,optional" validate:"gte=0"`
	Enrollment      int32  `csv:"enrollment,omitempty" parquet:"enrollment,optional" validate:"gte=0"`
	Roster          string `csv:"roster,omitempty" parquet:"roster,optional"` // user ids separated by ";"
}

var validate = validator.New()

// LoadFile reads a catalog file, choosing the format from the extension:
// .csv, .parquet or .json (a serialized snapshot).
func LoadFile(path string) ([]*models.Course, []*models.Section, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open catalog file: %w", err)
		}
		defer f.Close()
		rows, err := ReadCSV(f)
		if err != nil {
			return nil, nil, err
		}
		return Build(rows)
	case ".parquet":
		rows, err := ReadParquetFile(path)
		if err != nil {
			return nil, nil, err
		}
		return Build(rows)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		snap, err := catalog.DecodeSnapshot(data)
		if err != nil {
			return nil, nil, err
		}
		return snap.Courses(), snap.Sections(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported catalog file type %q", filepath.Ext(path))
	}
}

// ReadCSV decodes catalog rows from CSV with a header line.
func ReadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse catalog csv: %w", err)
	}
	return rows, nil
}

// ReadParquetFile decodes catalog rows from a Parquet file.
func ReadParquetFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	records := make([]Row, 0, pf.NumRows())
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

// WriteParquet encodes rows as Parquet.
func WriteParquet(w io.Writer, rows []Row) error {
	return parquet.Write(w, rows)
}

// Build validates rows and assembles the catalog. Errors name the 1-based
// data row (header excluded). The result passes catalog.NewSnapshot.
func Build(rows []Row) ([]*models.Course, []*models.Section, error) {
	var (
		courses  []*models.Course
		sections []*models.Section
		byCode   = make(map[string]*models.Course)
		crns     = make(map[string]int)
		errs     []error
	)
	for i, row := range rows {
		line := i + 1
		course, err := courseFromRow(row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		if existing, ok := byCode[course.Code]; ok {
			if existing.Title != course.Title || !existing.Credits.Equal(course.Credits) {
				errs = append(errs, fmt.Errorf("row %d: course %s redefined with different title or credits", line, course.Code))
				continue
			}
		} else {
			byCode[course.Code] = course
			courses = append(courses, course)
		}

		if strings.TrimSpace(row.CRN) == "" {
			continue
		}
		section, err := sectionFromRow(course.Code, row)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		if prev, dup := crns[section.CRN]; dup {
			errs = append(errs, fmt.Errorf("row %d: CRN %s already defined on row %d", line, section.CRN, prev))
			continue
		}
		crns[section.CRN] = line
		sections = append(sections, section)
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return courses, sections, nil
}

func courseFromRow(row Row) (*models.Course, error) {
	if err := validate.Struct(row); err != nil {
		return nil, err
	}
	code := models.NormalizeCourseCode(row.Course)
	if !validation.IsCourseCode(code) {
		return nil, fmt.Errorf("invalid course code %q", row.Course)
	}
	title := strings.TrimSpace(row.Title)
	if !validation.NewStringValidation(title).WithMaxLength(validation.TitleMaxLength).Validate() {
		return nil, fmt.Errorf("course %s: title must be 1..%d characters", code, validation.TitleMaxLength)
	}
	credits, err := decimal.NewFromString(strings.TrimSpace(row.Credits))
	if err != nil || credits.IsNegative() {
		return nil, fmt.Errorf("course %s: invalid credits %q", code, row.Credits)
	}

	course := &models.Course{
		Code:            code,
		Title:           title,
		Credits:         credits,
		Department:      models.DepartmentOf(code),
		RequirementNote: strings.TrimSpace(row.RequirementNote),
		Prerequisites:   prereq.Parse(row.Prerequisites),
	}
	if d := strings.TrimSpace(row.Description); d != "" {
		course.Description = &d
	}
	return course, nil
}

func sectionFromRow(code string, row Row) (*models.Section, error) {
	crn := strings.TrimSpace(row.CRN)
	if !validation.NewStringValidation(crn).WithPattern(validation.CompiledPatterns.CRN).Validate() {
		return nil, fmt.Errorf("invalid CRN %q", row.CRN)
	}
	for name, v := range map[string]int{"capacity": int(row.Capacity), "enrollment": int(row.Enrollment)} {
		if !validation.NewNumericValidation(v).WithMin(0).Validate() {
			return nil, fmt.Errorf("section %s: %s must not be negative", crn, name)
		}
	}
	days, err := models.ParseDays(row.Days)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", crn, err)
	}
	start, err := models.ParseClockTime(row.Start)
	if err != nil {
		return nil, fmt.Errorf("section %s: start: %w", crn, err)
	}
	end, err := models.ParseClockTime(row.End)
	if err != nil {
		return nil, fmt.Errorf("section %s: end: %w", crn, err)
	}

	var roster []string
	for _, id := range strings.Split(row.Roster, ";") {
		if id = strings.TrimSpace(id); id != "" {
			roster = append(roster, id)
		}
	}

	section := &models.Section{
		CRN:        crn,
		CourseCode: code,
		Label:      strings.TrimSpace(row.Label),
		Days:       days,
		Start:      start,
		End:        end,
		Location:   strings.TrimSpace(row.Location),
		Instructor: strings.TrimSpace(row.Instructor),
		Capacity:   int(row.Capacity),
		Enrollment: int(row.Enrollment),
		Roster:     roster,
	}
	if err := section.Validate(); err != nil {
		return nil, err
	}
	return section, nil
}
