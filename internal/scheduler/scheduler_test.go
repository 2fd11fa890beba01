package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderConfiguresScheduler(t *testing.T) {
	scheduler := NewBuilder().
		Algorithm(AlgorithmBacktracking).
		MaxIterations(5000).
		TimeoutSeconds(60).
		MinQualityScore(80.0).
		AllowPartial(true).
		ForceOverwrite(true).
		RespectPreferences(false).
		Build()

	config := scheduler.Config()
	assert.Equal(t, AlgorithmBacktracking, config.Algorithm)
	assert.Equal(t, 5000, config.MaxIterations)
	assert.Equal(t, 60, config.TimeoutSeconds)
	assert.Equal(t, 80.0, config.MinQualityScore)
	assert.True(t, config.AllowPartial)
	assert.True(t, config.ForceOverwrite)
	assert.False(t, config.RespectPreferences)
}

func TestDefaultConfigValues(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, AlgorithmBacktracking, config.Algorithm)
	assert.Equal(t, 10000, config.MaxIterations)
	assert.Equal(t, 300, config.TimeoutSeconds)
	assert.Equal(t, 70.0, config.MinQualityScore)
	assert.Equal(t, 30.0, config.WeightDistribution)
	assert.Equal(t, 20.0, config.WeightConsecutive)
	assert.Equal(t, 15.0, config.WeightTimeOfDay)
	assert.Equal(t, 10.0, config.WeightDailyLoad)
	assert.Equal(t, 2.0, config.WeightSpacing)
}

func TestAllAlgorithmsProduceEquivalentSchedules(t *testing.T) {
	// Greedy and Hybrid delegate to Backtracking until their fast paths
	// exist; all three must place the same workload.
	for _, algorithm := range []Algorithm{AlgorithmGreedy, AlgorithmBacktracking, AlgorithmHybrid} {
		slots, periods := makeGrid(5, 4)
		courses := []CourseToSchedule{makeCourse("a", 2), makeCourse("b", 3)}

		scheduler := NewBuilder().Algorithm(algorithm).Build()
		result, err := scheduler.Schedule(courses, slots, nil, nil, periods, nil)
		require.NoError(t, err, "algorithm %s", algorithm)
		assert.True(t, result.Success, "algorithm %s", algorithm)
		assert.Len(t, result.Assignments, 5, "algorithm %s", algorithm)
	}
}

func TestSchedulerBuildsValidatorFromReferenceTables(t *testing.T) {
	slots, periods := makeGrid(2, 2)
	course := makeCourse("a", 1)
	course.InstructorID = "instructor-1"

	blocked := slotAt(DayMon, 1)
	prefs := map[string]InstructorPrefData{
		"instructor-1": {
			InstructorID:    "instructor-1",
			HardUnavailable: map[string]struct{}{blocked.Key(): {}},
		},
	}

	scheduler := NewBuilder().Build()
	result, err := scheduler.Schedule([]CourseToSchedule{course}, slots, nil, prefs, periods, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Assignments, 1)
	assert.NotEqual(t, blocked.Key(), result.Assignments[0].TimeSlot.Key())
}
