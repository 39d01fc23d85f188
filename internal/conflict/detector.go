// Package conflict finds time clashes among the sections of a candidate schedule.
package conflict

import (
	"sort"

	"github.com/yigit/enrollplan/internal/app/models"
)

type pairKey struct {
	first, second string
}

type pair struct {
	models.ConflictPair
	firstStart models.ClockTime
}

// Detect reports every pair of sections that share a meeting day and whose
// [start, end) windows overlap. Sections that only touch do not conflict, and
// sections whose end is not after their start never conflict. Sections
// repeated under the same CRN are checked once.
//
// Pairs are ordered by their first shared day, then by the earlier start
// time, then by CRN. Detect never fails; an empty selection gives an empty
// report.
func Detect(sections []*models.Section) models.ConflictReport {
	report := models.ConflictReport{
		Conflicts:       []models.ConflictPair{},
		ConflictingCRNs: []string{},
	}

	unique := dedupe(sections)
	report.DuplicateCourses = duplicateCourses(unique)

	byDay := make(map[models.Weekday][]*models.Section)
	for _, s := range unique {
		if s.Window().Empty() {
			continue
		}
		seen := make(map[models.Weekday]bool, len(s.Days))
		for _, d := range s.Days {
			if seen[d] {
				continue
			}
			seen[d] = true
			byDay[d] = append(byDay[d], s)
		}
	}

	pairs := make(map[pairKey]*pair)
	var order []*pair
	for _, day := range models.AllWeekdays {
		list := byDay[day]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Start != list[j].Start {
				return list[i].Start < list[j].Start
			}
			return list[i].CRN < list[j].CRN
		})
		for i, a := range list {
			// list is ordered by start, so every later section that starts
			// before a ends overlaps a.
			for _, b := range list[i+1:] {
				if b.Start >= a.End {
					break
				}
				key := pairKey{first: a.CRN, second: b.CRN}
				p, ok := pairs[key]
				if !ok {
					p = &pair{
						ConflictPair: models.ConflictPair{
							First:   a.CRN,
							Second:  b.CRN,
							Overlap: a.Window().Intersect(b.Window()),
						},
						firstStart: a.Start,
					}
					pairs[key] = p
					order = append(order, p)
				}
				p.Days = append(p.Days, day)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Days[0] != b.Days[0] {
			return a.Days[0] < b.Days[0]
		}
		if a.firstStart != b.firstStart {
			return a.firstStart < b.firstStart
		}
		if a.First != b.First {
			return a.First < b.First
		}
		return a.Second < b.Second
	})

	crns := make(map[string]bool)
	for _, p := range order {
		report.Conflicts = append(report.Conflicts, p.ConflictPair)
		crns[p.First] = true
		crns[p.Second] = true
	}
	for crn := range crns {
		report.ConflictingCRNs = append(report.ConflictingCRNs, crn)
	}
	sort.Strings(report.ConflictingCRNs)
	report.HasConflicts = len(report.Conflicts) > 0
	return report
}

// dedupe drops nil entries and repeated CRNs, keeping the first occurrence.
func dedupe(sections []*models.Section) []*models.Section {
	seen := make(map[string]bool, len(sections))
	out := make([]*models.Section, 0, len(sections))
	for _, s := range sections {
		if s == nil || seen[s.CRN] {
			continue
		}
		seen[s.CRN] = true
		out = append(out, s)
	}
	return out
}

// duplicateCourses returns the course codes selected through more than one
// section.
func duplicateCourses(sections []*models.Section) []string {
	count := make(map[string]int)
	for _, s := range sections {
		count[models.NormalizeCourseCode(s.CourseCode)]++
	}
	var dups []string
	for code, n := range count {
		if n > 1 {
			dups = append(dups, code)
		}
	}
	sort.Strings(dups)
	return dups
}
