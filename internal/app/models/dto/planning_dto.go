package dto

import (
	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/prereq"
)

// ConflictCheckRequest lists the sections of a candidate schedule. An empty
// list is a valid schedule with no conflicts.
type ConflictCheckRequest struct {
	CRNs []string `json:"crns" binding:"max=40,dive,required,max=16"`
}

// PrerequisiteResponse is a resolved prerequisite tree
type PrerequisiteResponse struct {
	Root     *prereq.Node `json:"root"`
	Required []string     `json:"required"`
	Flags    prereq.Flags `json:"flags"`
	MaxDepth int          `json:"maxDepth" example:"50"`
}

// ConflictResponse is the conflict report of a candidate schedule
type ConflictResponse struct {
	models.ConflictReport
	Sections []*models.Section `json:"sections"`
}

// EligibilityResponse reports whether a transcript satisfies a course's prerequisites
type EligibilityResponse struct {
	CourseCode   string         `json:"courseCode" example:"CS301"`
	RecordID     string         `json:"recordId"`
	Outcome      prereq.Outcome `json:"outcome" example:"unsatisfied"`
	Missing      []string       `json:"missing,omitempty"`
	Prerequisite string         `json:"prerequisite,omitempty" example:"CS201 and (MATH201 or MATH210)"`
}
