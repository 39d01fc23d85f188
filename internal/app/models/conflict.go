package models

// ConflictPair describes two sections that meet at the same time.
// First is the section with the earlier start (ties broken by CRN).
type ConflictPair struct {
	First   string     `json:"first"`
	Second  string     `json:"second"`
	Days    []Weekday  `json:"days"`
	Overlap TimeWindow `json:"overlap"`
}

// ConflictReport is the result of checking a candidate schedule.
type ConflictReport struct {
	Conflicts        []ConflictPair `json:"conflicts"`
	ConflictingCRNs  []string       `json:"conflictingCrns"`
	DuplicateCourses []string       `json:"duplicateCourses,omitempty"`
	HasConflicts     bool           `json:"hasConflicts"`
}
