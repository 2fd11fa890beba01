package models

import "time"

// TimetableEntry is one persisted timetable assignment: a classroom course
// occupying a (day, period) cell. Rows are keyed by
// (classroom_course_id, day_of_week, period_id).
type TimetableEntry struct {
	ID                string    `db:"id" json:"id"`
	ClassroomCourseID string    `db:"classroom_course_id" json:"classroom_course_id"`
	ClassroomID       string    `db:"classroom_id" json:"classroom_id"`
	SubjectID         string    `db:"subject_id" json:"subject_id"`
	InstructorID      *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	DayOfWeek         string    `db:"day_of_week" json:"day_of_week"`
	PeriodID          string    `db:"period_id" json:"period_id"`
	RoomID            *string   `db:"room_id" json:"room_id,omitempty"`
	IsLocked          bool      `db:"is_locked" json:"is_locked"`
	SemesterID        string    `db:"semester_id" json:"semester_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableFilter describes query params for listing timetable entries.
type TimetableFilter struct {
	SemesterID   string
	ClassroomID  string
	InstructorID string
	DayOfWeek    string
}

// Pagination carries standard list-response metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}
