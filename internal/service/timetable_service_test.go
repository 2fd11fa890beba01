package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type jobStoreStub struct {
	jobs map[string]*models.SchedulingJob
}

func newJobStoreStub() *jobStoreStub {
	return &jobStoreStub{jobs: map[string]*models.SchedulingJob{}}
}

func (r *jobStoreStub) Create(ctx context.Context, job *models.SchedulingJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *jobStoreStub) GetByID(ctx context.Context, id string) (*models.SchedulingJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *jobStoreStub) Update(ctx context.Context, id string, params repository.UpdateSchedulingJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if len(params.Result) > 0 {
		job.Result = params.Result
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *jobStoreStub) ListQueued(ctx context.Context, limit int) ([]models.SchedulingJob, error) {
	var queued []models.SchedulingJob
	for _, job := range r.jobs {
		if job.Status == models.SchedulingJobStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type timetableStoreStub struct {
	saved    []models.TimetableEntry
	saveErr  error
	listed   []models.TimetableEntry
	listErr  error
	force    bool
	semester string
}

func (s *timetableStoreStub) SaveGenerated(ctx context.Context, semesterID string, classroomIDs []string, entries []models.TimetableEntry, forceOverwrite bool) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = entries
	s.force = forceOverwrite
	s.semester = semesterID
	return nil
}

func (s *timetableStoreStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listed, nil
}

type dataStoreStub struct {
	courses []models.ClassroomCourse
	periods []models.Period
	rooms   []models.Room
	locked  []models.LockedSlot
	prefs   []models.InstructorPreference
}

func (s *dataStoreStub) ListCourses(ctx context.Context, semesterID string, classroomIDs []string) ([]models.ClassroomCourse, error) {
	return s.courses, nil
}

func (s *dataStoreStub) ListPeriods(ctx context.Context) ([]models.Period, error) {
	return s.periods, nil
}

func (s *dataStoreStub) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

func (s *dataStoreStub) ListLockedSlots(ctx context.Context, semesterID string) ([]models.LockedSlot, error) {
	return s.locked, nil
}

func (s *dataStoreStub) ListInstructorPreferences(ctx context.Context) ([]models.InstructorPreference, error) {
	return s.prefs, nil
}

type cacheStub struct {
	values  map[string][]byte
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{values: map[string][]byte{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	return nil
}

func TestTimetableServiceCreateJobEnqueues(t *testing.T) {
	store := newJobStoreStub()
	queue := &queueStub{}
	svc := NewTimetableService(store, &timetableStoreStub{}, nil, queue, nil, nil, nil, 0)

	resp, err := svc.CreateJob(context.Background(), dto.GenerateTimetableRequest{
		SemesterID: "sem-1",
	}, "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, models.SchedulingJobStatusQueued, resp.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeGenerate, queue.jobs[0].Type)
	assert.Equal(t, "BACKTRACKING", store.jobs[resp.ID].Params.Algorithm)
}

func TestTimetableServiceCreateJobValidation(t *testing.T) {
	svc := NewTimetableService(newJobStoreStub(), &timetableStoreStub{}, nil, &queueStub{}, nil, nil, nil, 0)

	_, err := svc.CreateJob(context.Background(), dto.GenerateTimetableRequest{}, "admin-1")
	require.Error(t, err)

	_, err = svc.CreateJob(context.Background(), dto.GenerateTimetableRequest{
		SemesterID: "sem-1",
		Algorithm:  "SIMULATED_ANNEALING",
	}, "admin-1")
	require.Error(t, err)
}

func TestTimetableServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newJobStoreStub()
	queue := &queueStub{err: errors.New("queue closed")}
	svc := NewTimetableService(store, &timetableStoreStub{}, nil, queue, nil, nil, nil, 0)

	_, err := svc.CreateJob(context.Background(), dto.GenerateTimetableRequest{SemesterID: "sem-1"}, "admin-1")
	require.Error(t, err)

	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.SchedulingJobStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
	}
}

func TestTimetableServiceGetJobStatus(t *testing.T) {
	store := newJobStoreStub()
	svc := NewTimetableService(store, &timetableStoreStub{}, nil, &queueStub{}, nil, nil, nil, 0)

	job := &models.SchedulingJob{
		ID:         "job-1",
		SemesterID: "sem-1",
		Status:     models.SchedulingJobStatusCompleted,
		Result:     types.JSONText(`{"success":true,"assigned_count":12,"quality_score":88.5}`),
	}
	store.jobs[job.ID] = job

	resp, err := svc.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.SchedulingJobStatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 12, resp.Result.AssignedCount)
	assert.InDelta(t, 88.5, resp.Result.QualityScore, 0.001)

	_, err = svc.GetJobStatus(context.Background(), "missing")
	require.Error(t, err)
}

func TestTimetableServiceListTimetableUsesCache(t *testing.T) {
	store := &timetableStoreStub{listed: []models.TimetableEntry{
		{ID: "tt-1", ClassroomCourseID: "course-1", ClassroomID: "class-1", SubjectID: "subj-1", DayOfWeek: "MON", PeriodID: "period-1", SemesterID: "sem-1"},
	}}
	cache := newCacheStub()
	svc := NewTimetableService(newJobStoreStub(), store, cache, &queueStub{}, nil, nil, nil, time.Minute)

	q := dto.TimetableQuery{SemesterID: "sem-1", ClassroomID: "class-1"}
	first, err := svc.ListTimetable(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second call must be served from the cache even if the store now errors.
	store.listErr = errors.New("db down")
	second, err := svc.ListTimetable(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSchedulingWorkerCompletesJob(t *testing.T) {
	store := newJobStoreStub()
	job := &models.SchedulingJob{
		ID:         "job-1",
		SemesterID: "sem-1",
		Params:     models.SchedulingJobParams{Algorithm: "BACKTRACKING", ForceOverwrite: true},
		Status:     models.SchedulingJobStatusQueued,
	}
	store.jobs[job.ID] = job

	data := &dataStoreStub{
		courses: []models.ClassroomCourse{
			{ID: "course-1", ClassroomID: "class-1", SubjectID: "subj-1", SubjectCode: "MATH", PeriodsPerWeek: 2, MinConsecutive: 1, MaxConsecutive: 2, AllowSinglePeriod: true, SemesterID: "sem-1"},
		},
		periods: []models.Period{
			{ID: "period-1", Label: "1st", DisplayOrder: 1},
			{ID: "period-2", Label: "2nd", DisplayOrder: 2},
		},
	}
	timetables := &timetableStoreStub{}
	cache := newCacheStub()

	worker := NewSchedulingWorker(store, data, timetables, cache, nil, scheduler.DefaultConfig(), nil)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeGenerate}))

	assert.Equal(t, models.SchedulingJobStatusCompleted, job.Status)
	require.NotNil(t, job.FinishedAt)
	assert.True(t, timetables.force)
	assert.Len(t, timetables.saved, 2)
	assert.Equal(t, "sem-1", timetables.saved[0].SemesterID)
	assert.Contains(t, cache.deleted, "timetable:sem-1:*")

	var result models.SchedulingJobResult
	require.NoError(t, json.Unmarshal(job.Result, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AssignedCount)
}

func TestSchedulingWorkerRecordsFailure(t *testing.T) {
	store := newJobStoreStub()
	job := &models.SchedulingJob{
		ID:         "job-1",
		SemesterID: "sem-1",
		Params:     models.SchedulingJobParams{Algorithm: "BACKTRACKING"},
		Status:     models.SchedulingJobStatusQueued,
	}
	store.jobs[job.ID] = job

	// No courses for the semester: the run fails before the engine starts.
	worker := NewSchedulingWorker(store, &dataStoreStub{}, &timetableStoreStub{}, nil, nil, scheduler.DefaultConfig(), nil)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeGenerate}))

	assert.Equal(t, models.SchedulingJobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "no classroom courses")
}

func TestSchedulingWorkerSaveCollisionFailsJob(t *testing.T) {
	store := newJobStoreStub()
	job := &models.SchedulingJob{
		ID:         "job-1",
		SemesterID: "sem-1",
		Params:     models.SchedulingJobParams{Algorithm: "BACKTRACKING"},
		Status:     models.SchedulingJobStatusQueued,
	}
	store.jobs[job.ID] = job

	data := &dataStoreStub{
		courses: []models.ClassroomCourse{
			{ID: "course-1", ClassroomID: "class-1", SubjectID: "subj-1", SubjectCode: "MATH", PeriodsPerWeek: 1, MinConsecutive: 1, MaxConsecutive: 1, AllowSinglePeriod: true, SemesterID: "sem-1"},
		},
		periods: []models.Period{{ID: "period-1", Label: "1st", DisplayOrder: 1}},
	}
	timetables := &timetableStoreStub{saveErr: repository.ErrTimetableCollision}

	worker := NewSchedulingWorker(store, data, timetables, nil, nil, scheduler.DefaultConfig(), nil)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeGenerate}))

	assert.Equal(t, models.SchedulingJobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "already exist")
}

func TestTimetableServiceRecoverPendingJobs(t *testing.T) {
	store := newJobStoreStub()
	store.jobs["job-1"] = &models.SchedulingJob{ID: "job-1", SemesterID: "sem-1", Status: models.SchedulingJobStatusQueued}
	store.jobs["job-2"] = &models.SchedulingJob{ID: "job-2", SemesterID: "sem-1", Status: models.SchedulingJobStatusCompleted}
	queue := &queueStub{}
	svc := NewTimetableService(store, &timetableStoreStub{}, nil, queue, nil, nil, nil, 0)

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "job-1", queue.jobs[0].ID)
}
