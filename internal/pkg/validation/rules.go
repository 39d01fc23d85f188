package validation

import (
	"regexp"
)

// Validation rule patterns
var (
	// CourseCodePattern is a department prefix followed by a course number,
	// optionally separated by one space ("CS301", "MATH 1010").
	CourseCodePattern = `[A-Z]{2,4}\s?\d{3,4}`

	// CRNPattern is a registrar section identifier
	CRNPattern = `^[A-Za-z0-9-]{1,16}$`

	// TitleMaxLength bounds course titles on import
	TitleMaxLength = 200
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	CourseCode      *regexp.Regexp // unanchored, for scanning free text
	CourseCodeExact *regexp.Regexp
	CRN             *regexp.Regexp
}{
	CourseCode:      regexp.MustCompile(`\b` + CourseCodePattern + `\b`),
	CourseCodeExact: regexp.MustCompile(`^` + CourseCodePattern + `$`),
	CRN:             regexp.MustCompile(CRNPattern),
}

// IsCourseCode reports whether s is exactly one course code
func IsCourseCode(s string) bool {
	return CompiledPatterns.CourseCodeExact.MatchString(s)
}

// String validation
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}

	// Skip other validations for empty optional values
	if !v.Required && v.Value == "" {
		return true
	}

	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}

	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// Numeric validation
type NumericValidation struct {
	Value int
	Min   int
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(value int) *NumericValidation {
	return &NumericValidation{Value: value}
}

// WithMin sets minimum value
func (v *NumericValidation) WithMin(min int) *NumericValidation {
	v.Min = min
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	return v.Value >= v.Min
}
