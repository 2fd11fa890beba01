// Package scheduler implements the constraint-satisfaction timetabling
// core: data model, hard-constraint validation, soft-constraint quality
// scoring, and the backtracking search. It performs no I/O, holds no
// process-wide state, and is driven entirely by the reference tables and
// configuration supplied per run.
package scheduler

import (
	"go.uber.org/zap"
)

// Engine is the single shape every algorithm variant implements.
type Engine interface {
	Schedule(courses []CourseToSchedule, availableSlots []TimeSlot) SchedulingResult
}

// GreedyScheduler is the fast-path variant slot. The fast path is not
// implemented; it delegates to the backtracking engine. Known limitation,
// kept so callers selecting GREEDY get a correct (if slower) schedule.
type GreedyScheduler struct {
	inner *BacktrackingScheduler
}

// NewGreedyScheduler builds the greedy variant.
func NewGreedyScheduler(validator *ConstraintValidator, config SchedulerConfig) *GreedyScheduler {
	return &GreedyScheduler{inner: NewBacktrackingScheduler(validator, config)}
}

// Schedule delegates to backtracking.
func (g *GreedyScheduler) Schedule(courses []CourseToSchedule, availableSlots []TimeSlot) SchedulingResult {
	return g.inner.Schedule(courses, availableSlots)
}

// HybridScheduler would try a fast greedy pass and fall back to
// backtracking when quality is too low. The fast pass is not implemented;
// it delegates to the backtracking engine. Known limitation.
type HybridScheduler struct {
	inner *BacktrackingScheduler
}

// NewHybridScheduler builds the hybrid variant.
func NewHybridScheduler(validator *ConstraintValidator, config SchedulerConfig) *HybridScheduler {
	return &HybridScheduler{inner: NewBacktrackingScheduler(validator, config)}
}

// Schedule delegates to backtracking.
func (h *HybridScheduler) Schedule(courses []CourseToSchedule, availableSlots []TimeSlot) SchedulingResult {
	return h.inner.Schedule(courses, availableSlots)
}

// TimetableScheduler assembles the validator from the caller's reference
// tables, selects an engine, and produces one SchedulingResult.
type TimetableScheduler struct {
	config SchedulerConfig
	logger *zap.Logger
}

// NewTimetableScheduler builds the orchestrator. A nil logger is replaced
// with a nop.
func NewTimetableScheduler(config SchedulerConfig, logger *zap.Logger) *TimetableScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableScheduler{config: config, logger: logger}
}

// Config returns the run configuration.
func (t *TimetableScheduler) Config() SchedulerConfig {
	return t.config
}

// Schedule is the main entry point: builds the validator, dispatches on
// the configured algorithm, and returns the result. Courses are reordered
// in place. Programmer errors in the course definitions fail loudly.
func (t *TimetableScheduler) Schedule(
	courses []CourseToSchedule,
	availableSlots []TimeSlot,
	lockedSlots []LockedSlotData,
	instructorPrefs map[string]InstructorPrefData,
	periods []PeriodInfo,
	rooms map[string]RoomInfo,
) (SchedulingResult, error) {
	if err := ValidateCourses(courses); err != nil {
		return SchedulingResult{}, err
	}

	validator := NewConstraintValidator(lockedSlots, instructorPrefs, periods, rooms)

	var engine Engine
	switch t.config.Algorithm {
	case AlgorithmGreedy:
		engine = NewGreedyScheduler(validator, t.config)
	case AlgorithmHybrid:
		engine = NewHybridScheduler(validator, t.config)
	default:
		engine = NewBacktrackingScheduler(validator, t.config)
	}

	result := engine.Schedule(courses, availableSlots)

	t.logger.Info("scheduling run finished",
		zap.String("algorithm", string(t.config.Algorithm)),
		zap.Bool("success", result.Success),
		zap.Float64("quality_score", result.QualityScore),
		zap.Int("scheduled_courses", result.ScheduledCourses),
		zap.Int("total_courses", result.TotalCourses),
		zap.Int("iterations", result.Iterations),
		zap.Int64("duration_ms", result.DurationMs),
	)

	return result, nil
}

// Builder provides a fluent configuration surface over SchedulerConfig.
type Builder struct {
	config SchedulerConfig
	logger *zap.Logger
}

// NewBuilder starts from the production defaults.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// Algorithm selects the engine variant.
func (b *Builder) Algorithm(algorithm Algorithm) *Builder {
	b.config.Algorithm = algorithm
	return b
}

// MaxIterations caps the search node count.
func (b *Builder) MaxIterations(max int) *Builder {
	b.config.MaxIterations = max
	return b
}

// TimeoutSeconds caps wall-clock search time.
func (b *Builder) TimeoutSeconds(seconds int) *Builder {
	b.config.TimeoutSeconds = seconds
	return b
}

// MinQualityScore sets the satisficing threshold.
func (b *Builder) MinQualityScore(score float64) *Builder {
	b.config.MinQualityScore = score
	return b
}

// AllowPartial lets the search keep going past unplaceable courses.
func (b *Builder) AllowPartial(allow bool) *Builder {
	b.config.AllowPartial = allow
	return b
}

// ForceOverwrite marks the result as replacing prior persisted rows.
func (b *Builder) ForceOverwrite(force bool) *Builder {
	b.config.ForceOverwrite = force
	return b
}

// RespectPreferences toggles soft instructor preference handling.
func (b *Builder) RespectPreferences(respect bool) *Builder {
	b.config.RespectPreferences = respect
	return b
}

// Logger attaches a logger to the built scheduler.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build returns the configured orchestrator.
func (b *Builder) Build() *TimetableScheduler {
	return NewTimetableScheduler(b.config, b.logger)
}
