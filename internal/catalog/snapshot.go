// Package catalog holds the read-only course catalog model shared by the
// prerequisite resolver, the conflict detector and transcript reconciliation.
package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/yigit/enrollplan/internal/app/models"
)

// Snapshot is an immutable view of the catalog. All methods are safe for
// concurrent use; nothing reachable from a Snapshot may be mutated.
type Snapshot struct {
	courses  map[string]*models.Course
	codes    []string // sorted
	sections map[string][]*models.Section
	byCRN    map[string]*models.Section
	folded   map[string]string // code -> case-folded "code title"
	loadedAt time.Time
}

// NewSnapshot builds a snapshot from course and section lists. Inputs are
// copied. Duplicate course codes or CRNs, sections of unknown courses and
// sections violating their invariants are rejected.
func NewSnapshot(courses []*models.Course, sections []*models.Section) (*Snapshot, error) {
	s := &Snapshot{
		courses:  make(map[string]*models.Course, len(courses)),
		codes:    make([]string, 0, len(courses)),
		sections: make(map[string][]*models.Section),
		byCRN:    make(map[string]*models.Section, len(sections)),
		folded:   make(map[string]string, len(courses)),
		loadedAt: time.Now().UTC(),
	}
	fold := cases.Fold()

	for _, in := range courses {
		if in == nil {
			continue
		}
		c := *in
		c.Code = models.NormalizeCourseCode(c.Code)
		if c.Code == "" {
			return nil, fmt.Errorf("course without code (title %q)", c.Title)
		}
		if _, dup := s.courses[c.Code]; dup {
			return nil, fmt.Errorf("duplicate course code %s", c.Code)
		}
		if c.Department == "" {
			c.Department = models.DepartmentOf(c.Code)
		}
		if err := c.Prerequisites.Validate(); err != nil {
			return nil, fmt.Errorf("course %s prerequisites: %w", c.Code, err)
		}
		s.courses[c.Code] = &c
		s.codes = append(s.codes, c.Code)
		s.folded[c.Code] = fold.String(c.Code + " " + c.Title)
	}
	sort.Strings(s.codes)

	for _, in := range sections {
		if in == nil {
			continue
		}
		sec := *in
		sec.CourseCode = models.NormalizeCourseCode(sec.CourseCode)
		sec.Days = slices.Clone(sec.Days)
		sec.Roster = slices.Clone(sec.Roster)
		if err := sec.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.courses[sec.CourseCode]; !ok {
			return nil, fmt.Errorf("section %s references unknown course %s", sec.CRN, sec.CourseCode)
		}
		if _, dup := s.byCRN[sec.CRN]; dup {
			return nil, fmt.Errorf("duplicate section CRN %s", sec.CRN)
		}
		s.byCRN[sec.CRN] = &sec
		s.sections[sec.CourseCode] = append(s.sections[sec.CourseCode], &sec)
	}
	for _, list := range s.sections {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Label != list[j].Label {
				return list[i].Label < list[j].Label
			}
			return list[i].CRN < list[j].CRN
		})
	}
	return s, nil
}

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Len returns the number of courses.
func (s *Snapshot) Len() int {
	return len(s.codes)
}

// GetCourse looks up a course by code.
func (s *Snapshot) GetCourse(code string) (*models.Course, bool) {
	c, ok := s.courses[models.NormalizeCourseCode(code)]
	return c, ok
}

// SectionsForCourse returns the course's sections ordered by label then CRN.
func (s *Snapshot) SectionsForCourse(code string) []*models.Section {
	return slices.Clone(s.sections[models.NormalizeCourseCode(code)])
}

// Section looks up a section by CRN.
func (s *Snapshot) Section(crn string) (*models.Section, bool) {
	sec, ok := s.byCRN[strings.TrimSpace(crn)]
	return sec, ok
}

// Courses returns every course ordered by code.
func (s *Snapshot) Courses() []*models.Course {
	out := make([]*models.Course, 0, len(s.codes))
	for _, code := range s.codes {
		out = append(out, s.courses[code])
	}
	return out
}

// Sections returns every section ordered by course code, label and CRN.
func (s *Snapshot) Sections() []*models.Section {
	out := make([]*models.Section, 0, len(s.byCRN))
	for _, code := range s.codes {
		out = append(out, s.sections[code]...)
	}
	return out
}

// FindCourses returns courses whose code or title contains query, ignoring
// case. An empty query matches everything. When days are given, only
// courses with at least one section meeting on one of those days match.
func (s *Snapshot) FindCourses(query string, days ...models.Weekday) []*models.Course {
	q := cases.Fold().String(strings.TrimSpace(query))
	var out []*models.Course
	for _, code := range s.codes {
		if q != "" && !strings.Contains(s.folded[code], q) && !strings.Contains(code, models.NormalizeCourseCode(query)) {
			continue
		}
		if len(days) > 0 && !s.meetsOnAny(code, days) {
			continue
		}
		out = append(out, s.courses[code])
	}
	return out
}

func (s *Snapshot) meetsOnAny(code string, days []models.Weekday) bool {
	for _, sec := range s.sections[code] {
		for _, d := range days {
			if sec.MeetsOn(d) {
				return true
			}
		}
	}
	return false
}

type snapshotData struct {
	Courses  []*models.Course  `json:"courses"`
	Sections []*models.Section `json:"sections"`
	LoadedAt time.Time         `json:"loadedAt"`
}

// MarshalJSON serializes the snapshot contents.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotData{
		Courses:  s.Courses(),
		Sections: s.Sections(),
		LoadedAt: s.loadedAt,
	})
}

// DecodeSnapshot rebuilds a snapshot from MarshalJSON output.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var d snapshotData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode catalog snapshot: %w", err)
	}
	s, err := NewSnapshot(d.Courses, d.Sections)
	if err != nil {
		return nil, err
	}
	if !d.LoadedAt.IsZero() {
		s.loadedAt = d.LoadedAt
	}
	return s, nil
}
