package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// BacktrackingScheduler runs a depth-first branch-and-bound search over
// the course list, one course resolved per recursion depth. The validator
// prunes, the scorer accepts or improves.
type BacktrackingScheduler struct {
	validator *ConstraintValidator
	scorer    *QualityScorer
	config    SchedulerConfig
}

// NewBacktrackingScheduler builds the engine for one run.
func NewBacktrackingScheduler(validator *ConstraintValidator, config SchedulerConfig) *BacktrackingScheduler {
	return &BacktrackingScheduler{
		validator: validator,
		scorer:    NewQualityScorer(config),
		config:    config,
	}
}

type searchContext struct {
	slots     []TimeSlot
	state     *ScheduleState
	bestState *ScheduleState
	bestScore float64

	iterations int
	startTime  time.Time
	deadline   time.Time
}

func (c *searchContext) exhausted(config SchedulerConfig) bool {
	if !c.deadline.IsZero() && !time.Now().Before(c.deadline) {
		return true
	}
	return config.MaxIterations > 0 && c.iterations >= config.MaxIterations
}

// Schedule places every course it can and returns one SchedulingResult.
// Courses are reordered in place, most constrained first.
func (b *BacktrackingScheduler) Schedule(courses []CourseToSchedule, availableSlots []TimeSlot) SchedulingResult {
	start := time.Now()

	sort.SliceStable(courses, func(i, j int) bool {
		return courseDifficulty(&courses[i]) > courseDifficulty(&courses[j])
	})

	ctx := &searchContext{
		slots:     availableSlots,
		state:     NewScheduleState(),
		startTime: start,
	}
	if b.config.TimeoutSeconds > 0 {
		ctx.deadline = start.Add(time.Duration(b.config.TimeoutSeconds) * time.Second)
	}

	if b.backtrack(courses, 0, ctx) {
		// First satisficing path wins; the accepting attempt is still in
		// state and was snapshotted at the base case.
		ctx.bestState = ctx.state
	}

	finalState := ctx.state
	if ctx.bestState != nil {
		finalState = ctx.bestState
	}

	quality := b.scorer.CalculateQuality(finalState, courses)

	var failed []FailedCourse
	scheduled := 0
	for i := range courses {
		course := &courses[i]
		placed := len(finalState.CourseAssignments(course.ID))
		if placed < course.PeriodsNeeded {
			failed = append(failed, FailedCourse{
				CourseID:    course.ID,
				SubjectCode: course.SubjectCode,
				SubjectName: course.SubjectName,
				Classroom:   course.ClassroomName,
				Reason:      fmt.Sprintf("Only scheduled %d/%d periods", placed, course.PeriodsNeeded),
			})
		} else {
			scheduled++
		}
	}

	return SchedulingResult{
		Success:          len(failed) == 0,
		QualityScore:     quality,
		Assignments:      finalState.Assignments,
		ScheduledCourses: scheduled,
		TotalCourses:     len(courses),
		FailedCourses:    failed,
		DurationMs:       time.Since(start).Milliseconds(),
		Iterations:       ctx.iterations,
	}
}

// backtrack resolves courses[idx:]. Returns true as soon as a complete
// attempt meets MinQualityScore; the best-so-far snapshot is still tracked
// opportunistically for use when the search exhausts or times out.
func (b *BacktrackingScheduler) backtrack(courses []CourseToSchedule, idx int, ctx *searchContext) bool {
	ctx.iterations++

	if ctx.exhausted(b.config) {
		return false
	}

	if idx >= len(courses) {
		quality := b.snapshotIfBetter(courses, ctx)
		return quality >= b.config.MinQualityScore
	}

	course := &courses[idx]

	if b.scheduleCourse(course, ctx) {
		if b.backtrack(courses, idx+1, ctx) {
			return true
		}
	}

	// Snapshot before unwinding so timeout and exhaustion degrade to the
	// most complete attempt seen, not an empty state.
	b.snapshotIfBetter(courses, ctx)

	// Undo exactly this course's placements. They were pushed contiguously,
	// so popping is enough.
	for n := len(ctx.state.CourseAssignments(course.ID)); n > 0; n-- {
		ctx.state.RemoveLastAssignment()
	}

	if b.config.AllowPartial {
		return b.backtrack(courses, idx+1, ctx)
	}

	return false
}

// snapshotIfBetter is the clone-on-improve best tracker.
func (b *BacktrackingScheduler) snapshotIfBetter(courses []CourseToSchedule, ctx *searchContext) float64 {
	quality := b.scorer.CalculateQuality(ctx.state, courses)
	if quality > ctx.bestScore {
		ctx.bestScore = quality
		ctx.bestState = ctx.state.Clone()
	}
	return quality
}

func (b *BacktrackingScheduler) scheduleCourse(course *CourseToSchedule, ctx *searchContext) bool {
	needed := course.PeriodsRemaining
	if needed <= 0 {
		needed = course.PeriodsNeeded
	}
	if course.MinConsecutive > 1 {
		return b.scheduleWithConsecutive(course, needed, ctx)
	}
	return b.scheduleWithoutConsecutive(course, needed, ctx)
}

// scheduleWithConsecutive repeatedly places contiguous blocks, preferring
// MaxConsecutive-sized blocks and falling back to a single period only
// when exactly one remains and single periods are allowed.
func (b *BacktrackingScheduler) scheduleWithConsecutive(course *CourseToSchedule, needed int, ctx *searchContext) bool {
	remaining := needed

	for remaining > 0 {
		var chunk int
		switch {
		case remaining >= course.MinConsecutive:
			chunk = course.MaxConsecutive
			if remaining < chunk {
				chunk = remaining
			}
		case course.AllowSinglePeriod && remaining == 1:
			chunk = 1
		default:
			return false
		}

		window := b.findConsecutiveSlots(course, chunk, ctx)
		if window == nil {
			return false
		}
		for _, slot := range window {
			roomID := b.determineRoomID(course)
			ctx.state.AddAssignment(course.ID, NewAssignment(course, slot, roomID, false))
		}
		remaining -= chunk
	}

	// Final layout check over everything just placed. A failure here fails
	// the whole course placement.
	assignments := ctx.state.CourseAssignments(course.ID)
	return b.validator.ValidateConsecutive(course, assignments) == nil
}

// scheduleWithoutConsecutive scans the slot catalogue in order, placing at
// most one period of the course per day (hard spread policy) until the
// needed count is reached.
func (b *BacktrackingScheduler) scheduleWithoutConsecutive(course *CourseToSchedule, needed int, ctx *searchContext) bool {
	assigned := 0

	for _, slot := range ctx.slots {
		if assigned >= needed {
			break
		}

		if ctx.state.CourseDayCount(course.ID, slot.Day) > 0 {
			continue
		}

		roomID := b.determineRoomID(course)
		if conflict := b.validator.CanAssign(course, slot, roomID, ctx.state); conflict != nil {
			continue
		}
		if course.InstructorID != "" && !b.validator.CheckInstructorDailyLoad(course.InstructorID, slot.Day, ctx.state) {
			continue
		}

		ctx.state.AddAssignment(course.ID, NewAssignment(course, slot, roomID, false))
		assigned++
	}

	return assigned == needed
}

// findConsecutiveSlots searches day by day for the first fully legal
// contiguous window of the requested size, skipping days the course
// already uses this pass.
func (b *BacktrackingScheduler) findConsecutiveSlots(course *CourseToSchedule, count int, ctx *searchContext) []TimeSlot {
	byDay := make(map[string][]TimeSlot)
	dayOrder := make([]string, 0, 7)
	for _, slot := range ctx.slots {
		if _, seen := byDay[slot.Day]; !seen {
			dayOrder = append(dayOrder, slot.Day)
		}
		byDay[slot.Day] = append(byDay[slot.Day], slot)
	}

	for _, day := range dayOrder {
		if ctx.state.CourseDayCount(course.ID, day) > 0 {
			continue
		}

		daySlots := byDay[day]
		sort.Slice(daySlots, func(i, j int) bool { return daySlots[i].PeriodOrder < daySlots[j].PeriodOrder })

		for i := 0; i+count <= len(daySlots); i++ {
			window := daySlots[i : i+count]
			if !windowIsContiguous(window) {
				continue
			}

			roomID := b.determineRoomID(course)
			allValid := true
			for _, slot := range window {
				if conflict := b.validator.CanAssign(course, slot, roomID, ctx.state); conflict != nil {
					allValid = false
					break
				}
			}
			if allValid {
				result := make([]TimeSlot, count)
				copy(result, window)
				return result
			}
		}
	}

	return nil
}

func windowIsContiguous(slots []TimeSlot) bool {
	for i := 1; i < len(slots); i++ {
		if slots[i].PeriodOrder != slots[i-1].PeriodOrder+1 {
			return false
		}
	}
	return true
}

func (b *BacktrackingScheduler) determineRoomID(course *CourseToSchedule) string {
	// Fixed room wins; otherwise the classroom's own room is implied and
	// no explicit booking is made.
	return course.FixedRoomID
}

// courseDifficulty orders courses most-constrained-first so the search
// fails fast on the hard ones.
func courseDifficulty(course *CourseToSchedule) int {
	difficulty := course.PeriodsNeeded * 10
	if course.MinConsecutive > 1 {
		difficulty += 100
	}
	if course.FixedRoomID != "" {
		difficulty += 50
	}
	if course.InstructorID != "" {
		difficulty += 20
	}
	return difficulty
}
