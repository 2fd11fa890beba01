package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// placeBlock adds a contiguous run of periods for a course on one day.
func placeBlock(state *ScheduleState, course *CourseToSchedule, day string, startOrder, length int) {
	for i := 0; i < length; i++ {
		state.AddAssignment(course.ID, NewAssignment(course, slotAt(day, startOrder+i), "", false))
	}
}

func TestQualityEmptyStateScoresZero(t *testing.T) {
	scorer := NewQualityScorer(DefaultConfig())
	courses := []CourseToSchedule{makeCourse("a", 4)}
	assert.Equal(t, 0.0, scorer.CalculateQuality(NewScheduleState(), courses))
}

func TestQualityPerfectScheduleScoresHundred(t *testing.T) {
	scorer := NewQualityScorer(DefaultConfig())

	course := makeCourse("a", 6)
	course.MinConsecutive = 2
	course.MaxConsecutive = 2
	course.AllowSinglePeriod = false

	// Three two-period blocks on alternating days: ideal distribution,
	// consecutive usage, spacing, and a perfectly level daily load.
	state := NewScheduleState()
	placeBlock(state, &course, DayMon, 1, 2)
	placeBlock(state, &course, DayWed, 1, 2)
	placeBlock(state, &course, DayFri, 1, 2)

	quality := scorer.CalculateQuality(state, []CourseToSchedule{course})
	assert.InDelta(t, 100.0, quality, 1e-9)
}

func TestQualityCompletionRateScalesScore(t *testing.T) {
	scorer := NewQualityScorer(DefaultConfig())

	course := makeCourse("a", 6)
	course.MinConsecutive = 2
	course.MaxConsecutive = 2
	course.AllowSinglePeriod = false

	full := NewScheduleState()
	placeBlock(full, &course, DayMon, 1, 2)
	placeBlock(full, &course, DayWed, 1, 2)
	placeBlock(full, &course, DayFri, 1, 2)

	// Identical placement quality, half the required periods scheduled.
	course12 := course
	course12.PeriodsNeeded = 12

	fullScore := scorer.CalculateQuality(full, []CourseToSchedule{course})
	halfScore := scorer.CalculateQuality(full, []CourseToSchedule{course12})

	require.Greater(t, fullScore, 0.0)
	assert.InDelta(t, fullScore/2, halfScore, 1e-9)
}

func TestQualityDistributionPenalizesClusteredDays(t *testing.T) {
	config := DefaultConfig()
	config.OptimizeConsecutiveLimit = false
	config.OptimizeTimeOfDay = false
	config.BalanceDailyLoad = false
	config.WeightSpacing = 0
	scorer := NewQualityScorer(config)

	spread := NewScheduleState()
	courseA := makeCourse("a", 2)
	placeBlock(spread, &courseA, DayMon, 1, 1)
	placeBlock(spread, &courseA, DayWed, 1, 1)

	clustered := NewScheduleState()
	courseB := makeCourse("b", 2)
	placeBlock(clustered, &courseB, DayMon, 1, 1)
	placeBlock(clustered, &courseB, DayTue, 1, 1)

	spreadScore := scorer.CalculateQuality(spread, []CourseToSchedule{courseA})
	clusteredScore := scorer.CalculateQuality(clustered, []CourseToSchedule{courseB})
	assert.Greater(t, spreadScore, clusteredScore)
}

func TestQualityDailyLoadBalance(t *testing.T) {
	config := DefaultConfig()
	config.OptimizeDistribution = false
	config.OptimizeConsecutiveLimit = false
	config.OptimizeTimeOfDay = false
	config.WeightSpacing = 0
	scorer := NewQualityScorer(config)

	balanced := NewScheduleState()
	courseA := makeCourse("a", 2)
	placeBlock(balanced, &courseA, DayMon, 1, 1)
	placeBlock(balanced, &courseA, DayWed, 1, 1)

	lopsided := NewScheduleState()
	courseB := makeCourse("b", 2)
	courseB.MaxConsecutive = 4
	placeBlock(lopsided, &courseB, DayMon, 1, 2)
	courseC := makeCourse("c", 2)
	courseC.ClassroomID = courseB.ClassroomID
	placeBlock(lopsided, &courseC, DayMon, 3, 1)
	placeBlock(lopsided, &courseC, DayTue, 1, 1)

	balancedScore := scorer.CalculateQuality(balanced, []CourseToSchedule{courseA})
	lopsidedScore := scorer.CalculateQuality(lopsided, []CourseToSchedule{courseB, courseC})
	assert.Greater(t, balancedScore, lopsidedScore)
}

func TestQualityNoEnabledSubScoresFallsBackToCompletion(t *testing.T) {
	config := DefaultConfig()
	config.OptimizeDistribution = false
	config.OptimizeConsecutiveLimit = false
	config.OptimizeTimeOfDay = false
	config.BalanceDailyLoad = false
	config.WeightSpacing = 0
	scorer := NewQualityScorer(config)

	state := NewScheduleState()
	course := makeCourse("a", 2)
	placeBlock(state, &course, DayMon, 1, 1)

	// Base quality defaults to 100; only the completion rate remains.
	assert.InDelta(t, 50.0, scorer.CalculateQuality(state, []CourseToSchedule{course}), 1e-9)
}

func TestQualityBoundsAreClamped(t *testing.T) {
	scorer := NewQualityScorer(DefaultConfig())
	state := NewScheduleState()
	course := makeCourse("a", 1)
	placeBlock(state, &course, DayMon, 1, 1)

	quality := scorer.CalculateQuality(state, []CourseToSchedule{course})
	assert.GreaterOrEqual(t, quality, 0.0)
	assert.LessOrEqual(t, quality, 100.0)
}
