package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type schedulingJobStore interface {
	Create(ctx context.Context, job *models.SchedulingJob) error
	GetByID(ctx context.Context, id string) (*models.SchedulingJob, error)
	Update(ctx context.Context, id string, params repository.UpdateSchedulingJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.SchedulingJob, error)
}

type timetableStore interface {
	SaveGenerated(ctx context.Context, semesterID string, classroomIDs []string, entries []models.TimetableEntry, forceOverwrite bool) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error)
}

type schedulerDataStore interface {
	ListCourses(ctx context.Context, semesterID string, classroomIDs []string) ([]models.ClassroomCourse, error)
	ListPeriods(ctx context.Context) ([]models.Period, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListLockedSlots(ctx context.Context, semesterID string) ([]models.LockedSlot, error)
	ListInstructorPreferences(ctx context.Context) ([]models.InstructorPreference, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type schedulerMetrics interface {
	ObserveSchedulingRun(algorithm string, success bool, duration time.Duration, quality float64, iterations int)
	ObserveDBQuery(label string, duration time.Duration)
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// JobTypeGenerate tags timetable generation jobs on the queue.
const JobTypeGenerate = "timetable_generation"

var scheduleDays = []string{scheduler.DayMon, scheduler.DayTue, scheduler.DayWed, scheduler.DayThu, scheduler.DayFri}

// TimetableService orchestrates generation job lifecycle and timetable reads.
type TimetableService struct {
	jobs       schedulingJobStore
	timetables timetableStore
	cache      timetableCache
	queue      jobDispatcher
	metrics    cacheMetrics
	validator  *validator.Validate
	logger     *zap.Logger
	cacheTTL   time.Duration
}

// NewTimetableService constructs the service.
func NewTimetableService(jobStore schedulingJobStore, timetables timetableStore, cache timetableCache, queue jobDispatcher, metrics cacheMetrics, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		jobs:       jobStore,
		timetables: timetables,
		cache:      cache,
		queue:      queue,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cacheTTL:   cacheTTL,
	}
}

// CreateJob validates the request, persists a job row, and enqueues generation.
func (s *TimetableService) CreateJob(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.SchedulingJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = string(scheduler.AlgorithmBacktracking)
	}
	if !isValidAlgorithm(algorithm) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported algorithm")
	}

	job := &models.SchedulingJob{
		SemesterID: req.SemesterID,
		Params: models.SchedulingJobParams{
			Algorithm:       algorithm,
			ClassroomIDs:    req.ClassroomIDs,
			ForceOverwrite:  req.ForceOverwrite,
			MaxIterations:   req.MaxIterations,
			TimeoutSeconds:  req.TimeoutSeconds,
			MinQualityScore: req.MinQualityScore,
			AllowPartial:    req.AllowPartial,
		},
		Status:    models.SchedulingJobStatusQueued,
		Result:    types.JSONText(`{}`),
		CreatedBy: actorID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scheduling job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeGenerate}); err != nil {
		status := models.SchedulingJobStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.jobs.Update(ctx, job.ID, repository.UpdateSchedulingJobParams{
			Status:       &status,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue scheduling job")
	}
	return &dto.SchedulingJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetJobStatus exposes job metadata, including the run summary once finished.
func (s *TimetableService) GetJobStatus(ctx context.Context, id string) (*dto.SchedulingJobStatusResponse, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling job")
	}
	resp := &dto.SchedulingJobStatusResponse{
		ID:         job.ID,
		SemesterID: job.SemesterID,
		Status:     job.Status,
	}
	if len(job.Result) > 2 {
		var result models.SchedulingJobResult
		if err := json.Unmarshal(job.Result, &result); err == nil {
			resp.Result = &result
		}
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ListTimetable returns timetable entries for the filter, cached per query.
func (s *TimetableService) ListTimetable(ctx context.Context, q dto.TimetableQuery) ([]dto.TimetableEntryResponse, error) {
	if q.SemesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semesterId is required")
	}
	key := timetableCacheKey(q)
	if s.cache != nil {
		var cached []dto.TimetableEntryResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	entries, err := s.timetables.List(ctx, models.TimetableFilter{
		SemesterID:   q.SemesterID,
		ClassroomID:  q.ClassroomID,
		InstructorID: q.InstructorID,
		DayOfWeek:    q.DayOfWeek,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable")
	}

	resp := make([]dto.TimetableEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.TimetableEntryResponse{
			ID:                e.ID,
			ClassroomCourseID: e.ClassroomCourseID,
			ClassroomID:       e.ClassroomID,
			SubjectID:         e.SubjectID,
			InstructorID:      e.InstructorID,
			DayOfWeek:         e.DayOfWeek,
			PeriodID:          e.PeriodID,
			RoomID:            e.RoomID,
			IsLocked:          e.IsLocked,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("timetable cache write failed", "key", key, "error", err)
		}
	}
	return resp, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *TimetableService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.jobs.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued scheduling jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeGenerate}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

func timetableCacheKey(q dto.TimetableQuery) string {
	return fmt.Sprintf("timetable:%s:%s:%s:%s", q.SemesterID, q.ClassroomID, q.InstructorID, q.DayOfWeek)
}

func isValidAlgorithm(a string) bool {
	switch scheduler.Algorithm(a) {
	case scheduler.AlgorithmGreedy, scheduler.AlgorithmBacktracking, scheduler.AlgorithmHybrid:
		return true
	default:
		return false
	}
}

// SchedulingWorker bridges queue jobs to the scheduling engine.
type SchedulingWorker struct {
	jobs       schedulingJobStore
	data       schedulerDataStore
	timetables timetableStore
	cache      timetableCache
	metrics    schedulerMetrics
	logger     *zap.Logger
	defaults   scheduler.SchedulerConfig
}

// NewSchedulingWorker constructs a worker with engine defaults.
func NewSchedulingWorker(jobStore schedulingJobStore, data schedulerDataStore, timetables timetableStore, cache timetableCache, metrics schedulerMetrics, defaults scheduler.SchedulerConfig, logger *zap.Logger) *SchedulingWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulingWorker{
		jobs:       jobStore,
		data:       data,
		timetables: timetables,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		defaults:   defaults,
	}
}

// Handle processes one generation job. Failures are recorded on the job row
// rather than returned, so the queue does not replay an expensive run.
func (w *SchedulingWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	running := models.SchedulingJobStatusRunning
	if err := w.jobs.Update(ctx, job.ID, repository.UpdateSchedulingJobParams{Status: &running}); err != nil {
		return err
	}

	start := time.Now()
	result, entries, err := w.run(ctx, record)
	if err != nil {
		w.markFailed(ctx, record.ID, err)
		return nil
	}

	saveStart := time.Now()
	if err := w.timetables.SaveGenerated(ctx, record.SemesterID, record.Params.ClassroomIDs, entries, record.Params.ForceOverwrite); err != nil {
		if errors.Is(err, repository.ErrTimetableCollision) {
			err = appErrors.Clone(appErrors.ErrScheduleConflict,
				fmt.Sprintf("timetable entries already exist for semester %s, retry with forceOverwrite", record.SemesterID))
		}
		w.markFailed(ctx, record.ID, err)
		return nil
	}
	if w.metrics != nil {
		w.metrics.ObserveDBQuery("save_timetable", time.Since(saveStart))
	}
	if w.cache != nil {
		if err := w.cache.DeleteByPattern(ctx, fmt.Sprintf("timetable:%s:*", record.SemesterID)); err != nil {
			w.logger.Sugar().Warnw("timetable cache invalidation failed", "semester_id", record.SemesterID, "error", err)
		}
	}

	summary := summarize(result)
	payload, err := json.Marshal(summary)
	if err != nil {
		w.markFailed(ctx, record.ID, err)
		return nil
	}
	completed := models.SchedulingJobStatusCompleted
	now := time.Now().UTC()
	if err := w.jobs.Update(ctx, record.ID, repository.UpdateSchedulingJobParams{
		Status:     &completed,
		Result:     types.JSONText(payload),
		FinishedAt: &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job completed", "job_id", record.ID, "error", err)
		return err
	}
	if w.metrics != nil {
		w.metrics.ObserveSchedulingRun(record.Params.Algorithm, result.Success, time.Since(start), result.QualityScore, result.Iterations)
	}
	return nil
}

func (w *SchedulingWorker) markFailed(ctx context.Context, jobID string, cause error) {
	failed := models.SchedulingJobStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := w.jobs.Update(ctx, jobID, repository.UpdateSchedulingJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

func (w *SchedulingWorker) run(ctx context.Context, record *models.SchedulingJob) (scheduler.SchedulingResult, []models.TimetableEntry, error) {
	loadStart := time.Now()
	courses, err := w.data.ListCourses(ctx, record.SemesterID, record.Params.ClassroomIDs)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}
	if len(courses) == 0 {
		return scheduler.SchedulingResult{}, nil, fmt.Errorf("no classroom courses found for semester %s", record.SemesterID)
	}
	periods, err := w.data.ListPeriods(ctx)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}
	rooms, err := w.data.ListRooms(ctx)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}
	locked, err := w.data.ListLockedSlots(ctx, record.SemesterID)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}
	prefs, err := w.data.ListInstructorPreferences(ctx)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}
	if w.metrics != nil {
		w.metrics.ObserveDBQuery("load_scheduling_inputs", time.Since(loadStart))
	}

	cfg := w.buildConfig(record.Params)
	sched := scheduler.NewTimetableScheduler(cfg, w.logger)

	periodInfos := buildPeriodInfos(periods)
	result, err := sched.Schedule(
		buildCourseInputs(courses),
		buildSlotGrid(periodInfos),
		buildLockedSlotData(locked),
		buildInstructorPrefs(prefs),
		periodInfos,
		buildRoomInfos(rooms),
	)
	if err != nil {
		return scheduler.SchedulingResult{}, nil, err
	}

	entries := make([]models.TimetableEntry, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		entries = append(entries, models.TimetableEntry{
			ClassroomCourseID: a.ClassroomCourseID,
			ClassroomID:       a.ClassroomID,
			SubjectID:         a.SubjectID,
			InstructorID:      optional(a.InstructorID),
			DayOfWeek:         a.TimeSlot.Day,
			PeriodID:          a.TimeSlot.PeriodID,
			RoomID:            optional(a.RoomID),
			IsLocked:          a.IsLocked,
			SemesterID:        record.SemesterID,
		})
	}
	return result, entries, nil
}

func (w *SchedulingWorker) buildConfig(params models.SchedulingJobParams) scheduler.SchedulerConfig {
	cfg := w.defaults
	if params.Algorithm != "" {
		cfg.Algorithm = scheduler.Algorithm(params.Algorithm)
	}
	if params.MaxIterations != nil && *params.MaxIterations > 0 {
		cfg.MaxIterations = *params.MaxIterations
	}
	if params.TimeoutSeconds != nil && *params.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = *params.TimeoutSeconds
	}
	if params.MinQualityScore != nil {
		cfg.MinQualityScore = *params.MinQualityScore
	}
	if params.AllowPartial != nil {
		cfg.AllowPartial = *params.AllowPartial
	}
	cfg.ForceOverwrite = params.ForceOverwrite
	return cfg
}

func buildCourseInputs(courses []models.ClassroomCourse) []scheduler.CourseToSchedule {
	inputs := make([]scheduler.CourseToSchedule, 0, len(courses))
	for _, cc := range courses {
		minConsec := cc.MinConsecutive
		if minConsec <= 0 {
			minConsec = 1
		}
		maxConsec := cc.MaxConsecutive
		if maxConsec < minConsec {
			maxConsec = minConsec
		}
		inputs = append(inputs, scheduler.CourseToSchedule{
			ID:                cc.ID,
			ClassroomCourseID: cc.ID,
			ClassroomID:       cc.ClassroomID,
			SubjectID:         cc.SubjectID,
			SubjectCode:       cc.SubjectCode,
			InstructorID:      deref(cc.InstructorID),
			PeriodsNeeded:     cc.PeriodsPerWeek,
			PeriodsRemaining:  cc.PeriodsPerWeek,
			MinConsecutive:    minConsec,
			MaxConsecutive:    maxConsec,
			AllowSinglePeriod: cc.AllowSinglePeriod,
			RequiredRoomType:  deref(cc.RequiredRoomType),
			FixedRoomID:       deref(cc.FixedRoomID),
		})
	}
	return inputs
}

func buildPeriodInfos(periods []models.Period) []scheduler.PeriodInfo {
	infos := make([]scheduler.PeriodInfo, 0, len(periods))
	for _, p := range periods {
		infos = append(infos, scheduler.PeriodInfo{
			ID:        p.ID,
			Order:     p.DisplayOrder,
			Name:      p.Label,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
		})
	}
	return infos
}

func buildSlotGrid(periods []scheduler.PeriodInfo) []scheduler.TimeSlot {
	slots := make([]scheduler.TimeSlot, 0, len(scheduleDays)*len(periods))
	for _, day := range scheduleDays {
		for _, p := range periods {
			slots = append(slots, scheduler.TimeSlot{Day: day, PeriodID: p.ID, PeriodOrder: p.Order})
		}
	}
	return slots
}

func buildRoomInfos(rooms []models.Room) map[string]scheduler.RoomInfo {
	infos := make(map[string]scheduler.RoomInfo, len(rooms))
	for _, r := range rooms {
		infos[r.ID] = scheduler.RoomInfo{
			ID:       r.ID,
			Name:     r.Name,
			RoomType: deref(r.RoomType),
			Capacity: r.Capacity,
		}
	}
	return infos
}

func buildLockedSlotData(locked []models.LockedSlot) []scheduler.LockedSlotData {
	data := make([]scheduler.LockedSlotData, 0, len(locked))
	for _, l := range locked {
		entry := scheduler.LockedSlotData{
			SubjectID: deref(l.SubjectID),
			Day:       l.DayOfWeek,
			PeriodIDs: []string{l.PeriodID},
		}
		if l.ClassroomID != nil && *l.ClassroomID != "" {
			entry.ClassroomIDs = []string{*l.ClassroomID}
		}
		data = append(data, entry)
	}
	return data
}

func buildInstructorPrefs(prefs []models.InstructorPreference) map[string]scheduler.InstructorPrefData {
	out := make(map[string]scheduler.InstructorPrefData, len(prefs))
	for _, p := range prefs {
		data := scheduler.InstructorPrefData{
			InstructorID:     p.InstructorID,
			HardUnavailable:  slotKeySet(p.Unavailable),
			PreferredSlots:   slotKeySet(p.Preferred),
			MaxPeriodsPerDay: p.MaxPeriodsPerDay,
		}
		out[p.InstructorID] = data
	}
	return out
}

func summarize(result scheduler.SchedulingResult) models.SchedulingJobResult {
	summary := models.SchedulingJobResult{
		Success:       result.Success,
		AssignedCount: len(result.Assignments),
		FailedCount:   len(result.FailedCourses),
		QualityScore:  result.QualityScore,
		Iterations:    result.Iterations,
		DurationMs:    result.DurationMs,
	}
	for _, f := range result.FailedCourses {
		summary.FailedCourses = append(summary.FailedCourses, f.SubjectCode)
		summary.FailureReasons = append(summary.FailureReasons, f.Reason)
	}
	return summary
}

func slotKeySet(raw types.JSONText) map[string]struct{} {
	set := make(map[string]struct{})
	if len(raw) == 0 {
		return set
	}
	var slots []models.UnavailableSlot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return set
	}
	for _, s := range slots {
		set[fmt.Sprintf("%s__%s", s.DayOfWeek, s.PeriodID)] = struct{}{}
	}
	return set
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
