package models

import (
	"errors"
	"fmt"
	"slices"
)

// Section is a scheduled offering of exactly one course.
type Section struct {
	CRN        string    `json:"crn" db:"crn"`
	CourseCode string    `json:"courseCode" db:"course_code"`
	Label      string    `json:"label" db:"label"`
	Days       []Weekday `json:"days" db:"days"`
	Start      ClockTime `json:"start" db:"start_minute"`
	End        ClockTime `json:"end" db:"end_minute"`
	Location   string    `json:"location,omitempty" db:"location"`
	Instructor string    `json:"instructor,omitempty" db:"instructor"`
	Capacity   int       `json:"capacity" db:"capacity"`
	Enrollment int       `json:"enrollment" db:"enrollment"`
	Roster     []string  `json:"roster,omitempty" db:"roster"`
}

// Section validation errors
var (
	ErrSectionMissingCRN    = errors.New("section CRN is required")
	ErrSectionMissingCourse = errors.New("section course code is required")
	ErrSectionOverEnrolled  = errors.New("section enrollment exceeds capacity")
	ErrSectionRosterSize    = errors.New("section roster size does not match enrollment")
)

// Validate checks the section invariants: capacity >= 0,
// 0 <= enrollment <= capacity and roster size == enrollment.
func (s *Section) Validate() error {
	if s.CRN == "" {
		return ErrSectionMissingCRN
	}
	if s.CourseCode == "" {
		return ErrSectionMissingCourse
	}
	if s.Capacity < 0 || s.Enrollment < 0 {
		return fmt.Errorf("section %s: capacity and enrollment must be non-negative", s.CRN)
	}
	if s.Enrollment > s.Capacity {
		return fmt.Errorf("section %s: %w (%d > %d)", s.CRN, ErrSectionOverEnrolled, s.Enrollment, s.Capacity)
	}
	if len(s.Roster) != s.Enrollment {
		return fmt.Errorf("section %s: %w (%d != %d)", s.CRN, ErrSectionRosterSize, len(s.Roster), s.Enrollment)
	}
	for _, d := range s.Days {
		if !d.Valid() {
			return fmt.Errorf("section %s: invalid meeting day %d", s.CRN, int(d))
		}
	}
	return nil
}

// Window returns the section's daily meeting interval.
func (s *Section) Window() TimeWindow {
	return TimeWindow{Start: s.Start, End: s.End}
}

// MeetsOn reports whether the section meets on day.
func (s *Section) MeetsOn(day Weekday) bool {
	return slices.Contains(s.Days, day)
}
