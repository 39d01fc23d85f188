package dto

import (
	"github.com/yigit/enrollplan/internal/app/models"
)

// CourseSearchRequest holds the query parameters of a catalog search
type CourseSearchRequest struct {
	Query string   `form:"q" binding:"max=100"`
	Days  []string `form:"day" binding:"max=7,dive,required"`
	Page  int      `form:"page" binding:"omitempty,min=1"`
	Size  int      `form:"size" binding:"omitempty,min=1,max=100"`
}

// CourseResponse represents a course with its sections
type CourseResponse struct {
	*models.Course
	PrerequisiteText string            `json:"prerequisiteText,omitempty" example:"CS201 and (MATH201 or MATH210)"`
	Sections         []*models.Section `json:"sections,omitempty"`
}

// NewCourseResponse builds a CourseResponse
func NewCourseResponse(course *models.Course, prereqText string, sections []*models.Section) CourseResponse {
	return CourseResponse{
		Course:           course,
		PrerequisiteText: prereqText,
		Sections:         sections,
	}
}

// CatalogRefreshResponse reports the snapshot published by a refresh
type CatalogRefreshResponse struct {
	Courses  int    `json:"courses" example:"120"`
	Sections int    `json:"sections" example:"310"`
	LoadedAt string `json:"loadedAt" example:"2025-04-23T12:01:05Z"`
}
