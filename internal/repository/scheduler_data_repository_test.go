package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"
)

func newSchedulerDataRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var courseColumns = []string{"id", "classroom_id", "subject_id", "subject_code", "instructor_id",
	"periods_per_week", "min_consecutive", "max_consecutive", "allow_single_period",
	"required_room_type", "fixed_room_id", "semester_id"}

func TestSchedulerDataRepositoryListCourses(t *testing.T) {
	db, mock, cleanup := newSchedulerDataRepoMock(t)
	defer cleanup()
	repo := NewSchedulerDataRepository(db)

	rows := sqlmock.NewRows(courseColumns).
		AddRow("course-1", "class-1", "subj-1", "MATH", "inst-1", 4, 2, 2, false, nil, nil, "sem-1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cc.semester_id = $1 ORDER BY cc.classroom_id ASC, s.code ASC")).
		WithArgs("sem-1").
		WillReturnRows(rows)

	courses, err := repo.ListCourses(context.Background(), "sem-1", nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "MATH", courses[0].SubjectCode)
	require.Equal(t, 4, courses[0].PeriodsPerWeek)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerDataRepositoryListCoursesClassroomFilter(t *testing.T) {
	db, mock, cleanup := newSchedulerDataRepoMock(t)
	defer cleanup()
	repo := NewSchedulerDataRepository(db)

	rows := sqlmock.NewRows(courseColumns).
		AddRow("course-2", "class-2", "subj-2", "PHYS", nil, 3, 1, 2, true, "LAB", nil, "sem-1")
	mock.ExpectQuery(regexp.QuoteMeta("AND cc.classroom_id IN ($2, $3)")).
		WithArgs("sem-1", "class-2", "class-3").
		WillReturnRows(rows)

	courses, err := repo.ListCourses(context.Background(), "sem-1", []string{"class-2", "class-3"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Nil(t, courses[0].InstructorID)
	require.Equal(t, "LAB", *courses[0].RequiredRoomType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerDataRepositoryListPeriods(t *testing.T) {
	db, mock, cleanup := newSchedulerDataRepoMock(t)
	defer cleanup()
	repo := NewSchedulerDataRepository(db)

	rows := sqlmock.NewRows([]string{"id", "label", "display_order", "start_time", "end_time"}).
		AddRow("period-1", "1st", 1, "07:00", "07:45").
		AddRow("period-2", "2nd", 2, "07:45", "08:30")
	mock.ExpectQuery(regexp.QuoteMeta("FROM periods WHERE is_break = FALSE ORDER BY display_order ASC")).
		WillReturnRows(rows)

	periods, err := repo.ListPeriods(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 2)
	require.Equal(t, 1, periods[0].DisplayOrder)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerDataRepositoryListLockedSlots(t *testing.T) {
	db, mock, cleanup := newSchedulerDataRepoMock(t)
	defer cleanup()
	repo := NewSchedulerDataRepository(db)

	rows := sqlmock.NewRows([]string{"id", "semester_id", "day_of_week", "period_id", "subject_id", "classroom_id"}).
		AddRow("lock-1", "sem-1", "MON", "period-1", "subj-1", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM locked_slots WHERE semester_id = $1")).
		WithArgs("sem-1").
		WillReturnRows(rows)

	slots, err := repo.ListLockedSlots(context.Background(), "sem-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "subj-1", *slots[0].SubjectID)
	require.Nil(t, slots[0].ClassroomID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerDataRepositoryListInstructorPreferences(t *testing.T) {
	db, mock, cleanup := newSchedulerDataRepoMock(t)
	defer cleanup()
	repo := NewSchedulerDataRepository(db)

	rows := sqlmock.NewRows([]string{"id", "instructor_id", "max_periods_per_day", "unavailable", "preferred", "created_at", "updated_at"}).
		AddRow("pref-1", "inst-1", 4, types.JSONText(`[{"day_of_week":"FRI","period_id":"period-1"}]`), types.JSONText(`[]`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM instructor_preferences")).
		WillReturnRows(rows)

	prefs, err := repo.ListInstructorPreferences(context.Background())
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	require.Equal(t, 4, prefs[0].MaxPeriodsPerDay)
	require.NoError(t, mock.ExpectationsWereMet())
}
