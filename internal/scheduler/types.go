package scheduler

import (
	"fmt"

	"github.com/google/uuid"
)

// Weekday codes used throughout the scheduling grid.
const (
	DayMon = "MON"
	DayTue = "TUE"
	DayWed = "WED"
	DayThu = "THU"
	DayFri = "FRI"
	DaySat = "SAT"
	DaySun = "SUN"
)

var dayNumbers = map[string]int{
	DayMon: 1,
	DayTue: 2,
	DayWed: 3,
	DayThu: 4,
	DayFri: 5,
	DaySat: 6,
	DaySun: 7,
}

// DayNumber maps a weekday code to its calendar position (MON=1). Unknown
// codes map to 0 and sort before every real day.
func DayNumber(day string) int {
	return dayNumbers[day]
}

// TimeSlot is one cell of the weekly grid. Identity is (Day, PeriodID);
// PeriodOrder totally orders periods within a day and drives
// consecutiveness checks.
type TimeSlot struct {
	Day         string `json:"day"`
	PeriodID    string `json:"period_id"`
	PeriodOrder int    `json:"period_order"`
}

// Key returns the occupancy-index key for this slot.
func (t TimeSlot) Key() string {
	return fmt.Sprintf("%s__%s", t.Day, t.PeriodID)
}

// CourseToSchedule is one scheduling obligation: a (classroom, subject,
// semester) pairing plus its placement policy.
type CourseToSchedule struct {
	ID                string
	ClassroomCourseID string
	ClassroomID       string
	ClassroomName     string
	SubjectID         string
	SubjectCode       string
	SubjectName       string
	InstructorID      string
	InstructorName    string

	PeriodsNeeded    int
	PeriodsRemaining int

	MinConsecutive    int
	MaxConsecutive    int
	AllowSinglePeriod bool

	RequiredRoomType string
	FixedRoomID      string

	// PreferredTimeOfDay is carried from the data model but currently has
	// no effect on scoring; see QualityScorer.scoreTimeOfDay.
	PreferredTimeOfDay string
}

// Assignment is a concrete placement of one course period into one slot.
type Assignment struct {
	ID                string   `json:"id"`
	ClassroomCourseID string   `json:"classroom_course_id"`
	ClassroomID       string   `json:"classroom_id"`
	SubjectID         string   `json:"subject_id"`
	InstructorID      string   `json:"instructor_id,omitempty"`
	TimeSlot          TimeSlot `json:"time_slot"`
	RoomID            string   `json:"room_id,omitempty"`
	IsLocked          bool     `json:"is_locked"`
}

// NewAssignment builds an assignment for a course at a slot.
func NewAssignment(course *CourseToSchedule, slot TimeSlot, roomID string, locked bool) Assignment {
	return Assignment{
		ID:                uuid.NewString(),
		ClassroomCourseID: course.ClassroomCourseID,
		ClassroomID:       course.ClassroomID,
		SubjectID:         course.SubjectID,
		InstructorID:      course.InstructorID,
		TimeSlot:          slot,
		RoomID:            roomID,
		IsLocked:          locked,
	}
}

// ConflictType tags the reason a placement was rejected.
type ConflictType string

const (
	ConflictClassroomOccupied     ConflictType = "CLASSROOM_OCCUPIED"
	ConflictInstructorOccupied    ConflictType = "INSTRUCTOR_OCCUPIED"
	ConflictRoomOccupied          ConflictType = "ROOM_OCCUPIED"
	ConflictInstructorUnavailable ConflictType = "INSTRUCTOR_UNAVAILABLE"
	ConflictInvalidConsecutive    ConflictType = "INVALID_CONSECUTIVE"
	ConflictLockedSlot            ConflictType = "LOCKED_SLOT"
)

// Conflict is a rejected-placement reason. It is ordinary data, not an
// error value: conflicts are expected and frequent during search.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
}

// Algorithm selects the scheduling engine.
type Algorithm string

const (
	AlgorithmGreedy       Algorithm = "GREEDY"
	AlgorithmBacktracking Algorithm = "BACKTRACKING"
	AlgorithmHybrid       Algorithm = "HYBRID"
)

// SchedulerConfig governs one scheduling run. Zero values are filled in by
// DefaultConfig / the builder; a config where MinConsecutive policy is
// violated at the course level is a caller bug and fails loudly in Validate.
type SchedulerConfig struct {
	Algorithm      Algorithm
	MaxIterations  int
	TimeoutSeconds int

	EnforcePeriodRequirements       bool
	EnforceInstructorUnavailability bool

	OptimizeDistribution     bool
	OptimizeConsecutiveLimit bool
	OptimizeTimeOfDay        bool
	RespectPreferences       bool
	BalanceDailyLoad         bool

	ForceOverwrite  bool
	AllowPartial    bool
	MinQualityScore float64

	WeightDistribution float64
	WeightConsecutive  float64
	WeightTimeOfDay    float64
	WeightDailyLoad    float64
	WeightSpacing      float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() SchedulerConfig {
	return SchedulerConfig{
		Algorithm:      AlgorithmBacktracking,
		MaxIterations:  10000,
		TimeoutSeconds: 300,

		EnforcePeriodRequirements:       true,
		EnforceInstructorUnavailability: true,

		OptimizeDistribution:     true,
		OptimizeConsecutiveLimit: true,
		OptimizeTimeOfDay:        true,
		RespectPreferences:       true,
		BalanceDailyLoad:         true,

		ForceOverwrite:  false,
		AllowPartial:    false,
		MinQualityScore: 70.0,

		WeightDistribution: 30.0,
		WeightConsecutive:  20.0,
		WeightTimeOfDay:    15.0,
		WeightDailyLoad:    10.0,
		WeightSpacing:      2.0,
	}
}

// ValidateCourses rejects course definitions that signal a caller bug
// rather than a scheduling outcome.
func ValidateCourses(courses []CourseToSchedule) error {
	for i := range courses {
		c := &courses[i]
		if c.PeriodsNeeded < 0 {
			return fmt.Errorf("course %s: periods_needed must be >= 0, got %d", c.SubjectCode, c.PeriodsNeeded)
		}
		if c.MinConsecutive > 1 && c.MaxConsecutive < c.MinConsecutive {
			return fmt.Errorf("course %s: min_consecutive (%d) exceeds max_consecutive (%d)", c.SubjectCode, c.MinConsecutive, c.MaxConsecutive)
		}
	}
	return nil
}

// SchedulingResult is the sole value crossing the core's outer boundary.
type SchedulingResult struct {
	Success          bool           `json:"success"`
	QualityScore     float64        `json:"quality_score"`
	Assignments      []Assignment   `json:"assignments"`
	ScheduledCourses int            `json:"scheduled_courses"`
	TotalCourses     int            `json:"total_courses"`
	FailedCourses    []FailedCourse `json:"failed_courses"`
	DurationMs       int64          `json:"duration_ms"`
	Iterations       int            `json:"iterations"`
}

// FailedCourse reports a course whose placed count fell short.
type FailedCourse struct {
	CourseID    string `json:"course_id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Classroom   string `json:"classroom"`
	Reason      string `json:"reason"`
}

// LockedSlotData is an administrator reservation constraining which
// subject and classrooms may occupy the (day, period) cells it covers.
type LockedSlotData struct {
	SubjectID    string
	Day          string
	PeriodIDs    []string
	ClassroomIDs []string // empty = all classrooms
	ScopeType    string
}

// InstructorPrefData holds one instructor's availability rules for a run.
type InstructorPrefData struct {
	InstructorID     string
	HardUnavailable  map[string]struct{} // slot keys
	PreferredSlots   map[string]struct{} // slot keys
	MaxPeriodsPerDay int
}

// PeriodInfo describes one period of the daily grid.
type PeriodInfo struct {
	ID        string
	Order     int
	Name      string
	StartTime string
	EndTime   string
}

// RoomInfo describes a bookable room.
type RoomInfo struct {
	ID       string
	Name     string
	RoomType string
	Capacity int
}
