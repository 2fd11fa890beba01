package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ErrTimetableCollision is returned when saving without overwrite would
// collide with entries already stored for the same classrooms.
var ErrTimetableCollision = fmt.Errorf("timetable entries already exist for the requested classrooms")

// TimetableRepository persists generated timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// SaveGenerated stores a generated timetable inside one transaction. With
// forceOverwrite the existing entries for the affected classrooms are removed
// first; without it any existing entry for those classrooms aborts the save
// before a single row is written.
func (r *TimetableRepository) SaveGenerated(ctx context.Context, semesterID string, classroomIDs []string, entries []models.TimetableEntry, forceOverwrite bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable save: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if forceOverwrite {
		if err := r.deleteForClassrooms(ctx, tx, semesterID, classroomIDs); err != nil {
			return err
		}
	} else {
		count, err := r.countForClassrooms(ctx, tx, semesterID, classroomIDs)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrTimetableCollision
		}
	}

	now := time.Now().UTC()
	const insertQuery = `
INSERT INTO timetable_entries (id, classroom_course_id, classroom_id, subject_id, instructor_id, day_of_week, period_id, room_id, is_locked, semester_id, created_at, updated_at)
VALUES (:id, :classroom_course_id, :classroom_id, :subject_id, :instructor_id, :day_of_week, :period_id, :room_id, :is_locked, :semester_id, :created_at, :updated_at)`
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, tx, insertQuery, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable save: %w", err)
	}
	return nil
}

func classroomScope(classroomIDs []string, firstArg int) (string, []interface{}) {
	if len(classroomIDs) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(classroomIDs))
	args := make([]interface{}, len(classroomIDs))
	for i, id := range classroomIDs {
		placeholders[i] = fmt.Sprintf("$%d", firstArg+i)
		args[i] = id
	}
	return fmt.Sprintf(" AND classroom_id IN (%s)", strings.Join(placeholders, ", ")), args
}

func (r *TimetableRepository) deleteForClassrooms(ctx context.Context, tx *sqlx.Tx, semesterID string, classroomIDs []string) error {
	query := `DELETE FROM timetable_entries WHERE semester_id = $1 AND is_locked = FALSE`
	args := []interface{}{semesterID}
	scope, scopeArgs := classroomScope(classroomIDs, 2)
	query += scope
	args = append(args, scopeArgs...)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	return nil
}

func (r *TimetableRepository) countForClassrooms(ctx context.Context, tx *sqlx.Tx, semesterID string, classroomIDs []string) (int, error) {
	query := `SELECT COUNT(*) FROM timetable_entries WHERE semester_id = $1 AND is_locked = FALSE`
	args := []interface{}{semesterID}
	scope, scopeArgs := classroomScope(classroomIDs, 2)
	query += scope
	args = append(args, scopeArgs...)
	var count int
	if err := sqlx.GetContext(ctx, tx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count timetable entries: %w", err)
	}
	return count, nil
}

// List returns timetable entries matching the filter, ordered for display.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	query := `SELECT id, classroom_course_id, classroom_id, subject_id, instructor_id, day_of_week, period_id, room_id, is_locked, semester_id, created_at, updated_at
FROM timetable_entries WHERE semester_id = $1`
	args := []interface{}{filter.SemesterID}
	argPos := 2

	if filter.ClassroomID != "" {
		query += fmt.Sprintf(" AND classroom_id = $%d", argPos)
		args = append(args, filter.ClassroomID)
		argPos++
	}
	if filter.InstructorID != "" {
		query += fmt.Sprintf(" AND instructor_id = $%d", argPos)
		args = append(args, filter.InstructorID)
		argPos++
	}
	if filter.DayOfWeek != "" {
		query += fmt.Sprintf(" AND day_of_week = $%d", argPos)
		args = append(args, filter.DayOfWeek)
		argPos++
	}
	query += ` ORDER BY classroom_id ASC,
CASE day_of_week WHEN 'MON' THEN 1 WHEN 'TUE' THEN 2 WHEN 'WED' THEN 3 WHEN 'THU' THEN 4 WHEN 'FRI' THEN 5 WHEN 'SAT' THEN 6 ELSE 7 END ASC,
period_id ASC`

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
