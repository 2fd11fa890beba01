package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SchedulerDataRepository loads the read models the generator works from.
type SchedulerDataRepository struct {
	db *sqlx.DB
}

// NewSchedulerDataRepository constructs the repository.
func NewSchedulerDataRepository(db *sqlx.DB) *SchedulerDataRepository {
	return &SchedulerDataRepository{db: db}
}

// ListCourses returns the classroom courses to schedule for the semester,
// optionally narrowed to specific classrooms.
func (r *SchedulerDataRepository) ListCourses(ctx context.Context, semesterID string, classroomIDs []string) ([]models.ClassroomCourse, error) {
	query := `SELECT cc.id, cc.classroom_id, cc.subject_id, s.code AS subject_code, cc.instructor_id,
cc.periods_per_week, cc.min_consecutive, cc.max_consecutive, cc.allow_single_period,
cc.required_room_type, cc.fixed_room_id, cc.semester_id
FROM classroom_courses cc
JOIN subjects s ON s.id = cc.subject_id
WHERE cc.semester_id = $1`
	args := []interface{}{semesterID}
	if len(classroomIDs) > 0 {
		placeholders := make([]string, len(classroomIDs))
		for i, id := range classroomIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND cc.classroom_id IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY cc.classroom_id ASC, s.code ASC"

	var courses []models.ClassroomCourse
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list classroom courses: %w", err)
	}
	return courses, nil
}

// ListPeriods returns the teaching periods ordered by display order.
func (r *SchedulerDataRepository) ListPeriods(ctx context.Context) ([]models.Period, error) {
	const query = `SELECT id, label, display_order, start_time, end_time
FROM periods WHERE is_break = FALSE ORDER BY display_order ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// ListRooms returns the bookable rooms.
func (r *SchedulerDataRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, room_type, capacity FROM rooms ORDER BY name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListLockedSlots returns the pinned cells for the semester.
func (r *SchedulerDataRepository) ListLockedSlots(ctx context.Context, semesterID string) ([]models.LockedSlot, error) {
	const query = `SELECT id, semester_id, day_of_week, period_id, subject_id, classroom_id
FROM locked_slots WHERE semester_id = $1`
	var slots []models.LockedSlot
	if err := r.db.SelectContext(ctx, &slots, query, semesterID); err != nil {
		return nil, fmt.Errorf("list locked slots: %w", err)
	}
	return slots, nil
}

// ListInstructorPreferences returns availability and load rules for all instructors.
func (r *SchedulerDataRepository) ListInstructorPreferences(ctx context.Context) ([]models.InstructorPreference, error) {
	const query = `SELECT id, instructor_id, max_periods_per_day, unavailable, preferred, created_at, updated_at
FROM instructor_preferences`
	var prefs []models.InstructorPreference
	if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
		return nil, fmt.Errorf("list instructor preferences: %w", err)
	}
	return prefs, nil
}
