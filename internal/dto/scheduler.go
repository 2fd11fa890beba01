package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// GenerateTimetableRequest instructs the generator to build a weekly
// timetable for the semester.
type GenerateTimetableRequest struct {
	SemesterID      string   `json:"semesterId" validate:"required"`
	Algorithm       string   `json:"algorithm" validate:"omitempty,oneof=GREEDY BACKTRACKING HYBRID"`
	ClassroomIDs    []string `json:"classroomIds" validate:"omitempty,dive,required"`
	ForceOverwrite  bool     `json:"forceOverwrite"`
	MaxIterations   *int     `json:"maxIterations" validate:"omitempty,min=1"`
	TimeoutSeconds  *int     `json:"timeoutSeconds" validate:"omitempty,min=1,max=3600"`
	MinQualityScore *float64 `json:"minQualityScore" validate:"omitempty,min=0,max=100"`
	AllowPartial    *bool    `json:"allowPartial"`
}

// SchedulingJobResponse is returned after enqueueing a generation run.
type SchedulingJobResponse struct {
	ID     string                     `json:"id"`
	Status models.SchedulingJobStatus `json:"status"`
}

// SchedulingJobStatusResponse exposes job progress and, once finished, the run summary.
type SchedulingJobStatusResponse struct {
	ID         string                      `json:"id"`
	SemesterID string                      `json:"semesterId"`
	Status     models.SchedulingJobStatus  `json:"status"`
	Result     *models.SchedulingJobResult `json:"result,omitempty"`
	Error      *string                     `json:"error,omitempty"`
}

// TimetableQuery filters timetable listings.
type TimetableQuery struct {
	SemesterID   string `form:"semesterId" json:"semesterId" validate:"required"`
	ClassroomID  string `form:"classroomId" json:"classroomId"`
	InstructorID string `form:"instructorId" json:"instructorId"`
	DayOfWeek    string `form:"dayOfWeek" json:"dayOfWeek" validate:"omitempty,oneof=MON TUE WED THU FRI SAT SUN"`
}

// TimetableEntryResponse is one timetable cell in list responses.
type TimetableEntryResponse struct {
	ID                string  `json:"id"`
	ClassroomCourseID string  `json:"classroomCourseId"`
	ClassroomID       string  `json:"classroomId"`
	SubjectID         string  `json:"subjectId"`
	InstructorID      *string `json:"instructorId,omitempty"`
	DayOfWeek         string  `json:"dayOfWeek"`
	PeriodID          string  `json:"periodId"`
	RoomID            *string `json:"roomId,omitempty"`
	IsLocked          bool    `json:"isLocked"`
}

// TimetableExportQuery selects export scope and format.
type TimetableExportQuery struct {
	SemesterID  string `form:"semesterId" json:"semesterId" validate:"required"`
	ClassroomID string `form:"classroomId" json:"classroomId" validate:"required"`
	Format      string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
}

// SchedulerConfigResponse reports the effective generation defaults.
type SchedulerConfigResponse struct {
	Algorithm       string                 `json:"algorithm"`
	MaxIterations   int                    `json:"maxIterations"`
	TimeoutSeconds  int                    `json:"timeoutSeconds"`
	MinQualityScore float64                `json:"minQualityScore"`
	AllowPartial    bool                   `json:"allowPartial"`
	Weights         SchedulerConfigWeights `json:"weights"`
}

// SchedulerConfigWeights exposes the quality sub-score weighting.
type SchedulerConfigWeights struct {
	Distribution float64 `json:"distribution"`
	Consecutive  float64 `json:"consecutive"`
	TimeOfDay    float64 `json:"timeOfDay"`
	DailyLoad    float64 `json:"dailyLoad"`
	Spacing      float64 `json:"spacing"`
}
