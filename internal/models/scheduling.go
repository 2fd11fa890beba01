package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SchedulingJobStatus captures background generation lifecycle states.
type SchedulingJobStatus string

const (
	SchedulingJobStatusQueued    SchedulingJobStatus = "QUEUED"
	SchedulingJobStatusRunning   SchedulingJobStatus = "RUNNING"
	SchedulingJobStatusCompleted SchedulingJobStatus = "COMPLETED"
	SchedulingJobStatusFailed    SchedulingJobStatus = "FAILED"
)

// SchedulingJob is a persisted timetable-generation job.
type SchedulingJob struct {
	ID           string              `db:"id" json:"id"`
	SemesterID   string              `db:"semester_id" json:"semester_id"`
	Params       SchedulingJobParams `db:"params" json:"params"`
	Status       SchedulingJobStatus `db:"status" json:"status"`
	Result       types.JSONText      `db:"result" json:"result,omitempty"`
	CreatedBy    string              `db:"created_by" json:"created_by"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time          `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string             `db:"error_message" json:"error_message,omitempty"`
}

// SchedulingJobParams stores request-scoped generation options persisted as JSONB.
type SchedulingJobParams struct {
	Algorithm       string   `json:"algorithm"`
	ClassroomIDs    []string `json:"classroomIds,omitempty"`
	ForceOverwrite  bool     `json:"forceOverwrite"`
	MaxIterations   *int     `json:"maxIterations,omitempty"`
	TimeoutSeconds  *int     `json:"timeoutSeconds,omitempty"`
	MinQualityScore *float64 `json:"minQualityScore,omitempty"`
	AllowPartial    *bool    `json:"allowPartial,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p SchedulingJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal scheduling job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *SchedulingJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = SchedulingJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SchedulingJobParams", value)
	}
	if len(data) == 0 {
		*p = SchedulingJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal scheduling job params: %w", err)
	}
	return nil
}

// SchedulingJobResult summarizes a finished run, persisted in the result column.
type SchedulingJobResult struct {
	Success        bool     `json:"success"`
	AssignedCount  int      `json:"assigned_count"`
	FailedCount    int      `json:"failed_count"`
	QualityScore   float64  `json:"quality_score"`
	Iterations     int      `json:"iterations"`
	DurationMs     int64    `json:"duration_ms"`
	FailedCourses  []string `json:"failed_courses,omitempty"`
	FailureReasons []string `json:"failure_reasons,omitempty"`
}

// ClassroomCourse is the read model for a course offering to be scheduled.
type ClassroomCourse struct {
	ID                string  `db:"id" json:"id"`
	ClassroomID       string  `db:"classroom_id" json:"classroom_id"`
	SubjectID         string  `db:"subject_id" json:"subject_id"`
	SubjectCode       string  `db:"subject_code" json:"subject_code"`
	InstructorID      *string `db:"instructor_id" json:"instructor_id,omitempty"`
	PeriodsPerWeek    int     `db:"periods_per_week" json:"periods_per_week"`
	MinConsecutive    int     `db:"min_consecutive" json:"min_consecutive"`
	MaxConsecutive    int     `db:"max_consecutive" json:"max_consecutive"`
	AllowSinglePeriod bool    `db:"allow_single_period" json:"allow_single_period"`
	RequiredRoomType  *string `db:"required_room_type" json:"required_room_type,omitempty"`
	FixedRoomID       *string `db:"fixed_room_id" json:"fixed_room_id,omitempty"`
	SemesterID        string  `db:"semester_id" json:"semester_id"`
}

// Period is one timetable column, ordered within the day.
type Period struct {
	ID           string `db:"id" json:"id"`
	Label        string `db:"label" json:"label"`
	DisplayOrder int    `db:"display_order" json:"display_order"`
	StartTime    string `db:"start_time" json:"start_time"`
	EndTime      string `db:"end_time" json:"end_time"`
}

// Room is a bookable physical room.
type Room struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	RoomType *string `db:"room_type" json:"room_type,omitempty"`
	Capacity int     `db:"capacity" json:"capacity"`
}

// LockedSlot pins a (day, period) cell so the generator cannot move it.
type LockedSlot struct {
	ID          string  `db:"id" json:"id"`
	SemesterID  string  `db:"semester_id" json:"semester_id"`
	DayOfWeek   string  `db:"day_of_week" json:"day_of_week"`
	PeriodID    string  `db:"period_id" json:"period_id"`
	SubjectID   *string `db:"subject_id" json:"subject_id,omitempty"`
	ClassroomID *string `db:"classroom_id" json:"classroom_id,omitempty"`
}

// InstructorPreference stores availability and load rules for an instructor.
type InstructorPreference struct {
	ID               string         `db:"id" json:"id"`
	InstructorID     string         `db:"instructor_id" json:"instructor_id"`
	MaxPeriodsPerDay int            `db:"max_periods_per_day" json:"max_periods_per_day"`
	Unavailable      types.JSONText `db:"unavailable" json:"unavailable"`
	Preferred        types.JSONText `db:"preferred" json:"preferred"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// UnavailableSlot is one blocked (day, period) cell inside the
// InstructorPreference.Unavailable JSON payload.
type UnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	PeriodID  string `json:"period_id"`
}
