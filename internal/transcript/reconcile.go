package transcript

import (
	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
)

// CourseLookup is the part of the catalog reconciliation reads.
type CourseLookup interface {
	GetCourse(code string) (*models.Course, bool)
}

// Reconcile matches parsed entries against the catalog. Entries sharing a
// course code collapse into one line at the position of the first
// occurrence; the last occurrence supplies grade and credits (a retake
// replaces the earlier attempt). A catalog hit is matched, or ambiguous when
// its occurrences disagree on the grade. Codes absent from the catalog are
// unmatched.
func Reconcile(entries []Entry, catalog CourseLookup) []models.ParsedLine {
	lines := make([]models.ParsedLine, 0, len(entries))
	index := make(map[string]int, len(entries))
	grades := make(map[string]map[string]bool, len(entries))

	for _, e := range entries {
		i, seen := index[e.CourseCode]
		if !seen {
			i = len(lines)
			index[e.CourseCode] = i
			grades[e.CourseCode] = make(map[string]bool)
			lines = append(lines, models.ParsedLine{CourseCode: e.CourseCode})
		}
		l := &lines[i]
		l.Raw = e.Raw
		l.Grade = e.Grade
		l.Credits = e.Credits
		l.Occurrences++
		grades[e.CourseCode][e.Grade] = true
	}

	for i := range lines {
		l := &lines[i]
		course, ok := catalog.GetCourse(l.CourseCode)
		if !ok {
			l.Status = models.LineUnmatched
			continue
		}
		l.CourseTitle = course.Title
		l.CatalogCredits = decimal.NewNullDecimal(course.Credits)
		l.Status = models.LineMatched
		if len(grades[l.CourseCode]) > 1 {
			l.Status = models.LineAmbiguous
		}
	}
	return lines
}
