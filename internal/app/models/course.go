package models

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Course is a published catalog course. Courses are immutable once loaded
// into a catalog snapshot.
type Course struct {
	Code            string          `json:"code" db:"code"`
	Title           string          `json:"title" db:"title"`
	Credits         decimal.Decimal `json:"credits" db:"credits"`
	Department      string          `json:"department" db:"department"`
	Description     *string         `json:"description,omitempty" db:"description"` // Nullable
	Prerequisites   *PrereqExpr     `json:"prerequisites,omitempty" db:"prerequisites"`
	RequirementNote string          `json:"requirementNote,omitempty" db:"requirement_note"`
}

// NormalizeCourseCode upper-cases a course code and removes inner whitespace,
// so "cs 301" and "CS301" name the same course.
func NormalizeCourseCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// DepartmentOf returns the alphabetic prefix of a normalized course code.
func DepartmentOf(code string) string {
	code = NormalizeCourseCode(code)
	for i, r := range code {
		if !unicode.IsLetter(r) {
			return code[:i]
		}
	}
	return code
}
