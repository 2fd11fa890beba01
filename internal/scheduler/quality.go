package scheduler

import (
	"math"
	"sort"
)

// QualityScorer computes the 0-100 soft-constraint score for a partial or
// complete ScheduleState.
type QualityScorer struct {
	config SchedulerConfig
}

// NewQualityScorer builds a scorer from the run configuration.
func NewQualityScorer(config SchedulerConfig) *QualityScorer {
	return &QualityScorer{config: config}
}

// CalculateQuality combines the enabled weighted sub-scores into a base
// quality, then multiplies by the completion rate so an aesthetically
// perfect but mostly empty schedule still scores near its completion
// fraction. Empty states score exactly 0.
func (q *QualityScorer) CalculateQuality(state *ScheduleState, courses []CourseToSchedule) float64 {
	if len(state.Assignments) == 0 {
		return 0.0
	}

	totalNeeded := 0
	for i := range courses {
		totalNeeded += courses[i].PeriodsNeeded
	}
	completionRate := 1.0
	if totalNeeded > 0 {
		completionRate = math.Min(float64(len(state.Assignments))/float64(totalNeeded), 1.0)
	}

	totalScore := 0.0
	totalWeight := 0.0

	if q.config.OptimizeDistribution {
		totalScore += q.scoreDistribution(state) * q.config.WeightDistribution
		totalWeight += q.config.WeightDistribution
	}
	if q.config.OptimizeConsecutiveLimit {
		totalScore += q.scoreConsecutive(state, courses) * q.config.WeightConsecutive
		totalWeight += q.config.WeightConsecutive
	}
	if q.config.OptimizeTimeOfDay {
		totalScore += q.scoreTimeOfDay() * q.config.WeightTimeOfDay
		totalWeight += q.config.WeightTimeOfDay
	}
	if q.config.BalanceDailyLoad {
		totalScore += q.scoreDailyLoadBalance(state) * q.config.WeightDailyLoad
		totalWeight += q.config.WeightDailyLoad
	}
	totalScore += q.scoreSubjectSpacing(state) * q.config.WeightSpacing
	totalWeight += q.config.WeightSpacing

	baseQuality := 100.0
	if totalWeight > 0 {
		baseQuality = clamp(totalScore/totalWeight, 0, 100)
	}

	return clamp(baseQuality*completionRate, 0, 100)
}

// scoreDistribution rewards courses whose teaching days avoid long runs of
// consecutive calendar weekdays.
func (q *QualityScorer) scoreDistribution(state *ScheduleState) float64 {
	totalScore := 0.0
	count := 0

	for _, assignments := range state.courseAssignments {
		if len(assignments) <= 1 {
			totalScore += 100.0
			count++
			continue
		}

		dayNums := distinctDayNumbers(assignments)
		maxRun := maxConsecutiveDays(dayNums)

		var score float64
		switch maxRun {
		case 1:
			score = 100.0
		case 2:
			score = 90.0
		case 3:
			score = 70.0
		case 4:
			score = 50.0
		default:
			score = 30.0
		}
		totalScore += score
		count++
	}

	if count == 0 {
		return 100.0
	}
	return totalScore / float64(count)
}

// scoreConsecutive rates how well each course's per-day block layout fits
// its consecutive-period policy.
func (q *QualityScorer) scoreConsecutive(state *ScheduleState, courses []CourseToSchedule) float64 {
	totalScore := 0.0
	count := 0

	for i := range courses {
		course := &courses[i]
		assignments := state.CourseAssignments(course.ID)
		if len(assignments) == 0 {
			continue
		}

		byDay := make(map[string][]int)
		for _, a := range assignments {
			byDay[a.TimeSlot.Day] = append(byDay[a.TimeSlot.Day], a.TimeSlot.PeriodOrder)
		}

		daySum := 0.0
		dayCount := 0
		for _, periods := range byDay {
			sort.Ints(periods)
			n := len(periods)

			var score float64
			switch {
			case n == 1:
				if course.AllowSinglePeriod {
					score = 80.0
				} else {
					score = 0.0
				}
			case !isConsecutive(periods):
				score = 0.0
			case n >= course.MinConsecutive && n <= course.MaxConsecutive:
				score = 100.0
			case n < course.MinConsecutive:
				score = 50.0
			default:
				score = 70.0
			}
			daySum += score
			dayCount++
		}

		if dayCount > 0 {
			totalScore += daySum / float64(dayCount)
			count++
		}
	}

	if count == 0 {
		return 100.0
	}
	return totalScore / float64(count)
}

// scoreTimeOfDay is a constant: the preference feature was retired, but
// the weight slot stays enabled so the normalization arithmetic is stable
// against configs tuned for the full weight set.
func (q *QualityScorer) scoreTimeOfDay() float64 {
	return 100.0
}

// scoreDailyLoadBalance penalizes classrooms whose per-day period counts
// have high population standard deviation.
func (q *QualityScorer) scoreDailyLoadBalance(state *ScheduleState) float64 {
	byClassroom := make(map[string]map[string]int)
	for _, a := range state.Assignments {
		days, ok := byClassroom[a.ClassroomID]
		if !ok {
			days = make(map[string]int)
			byClassroom[a.ClassroomID] = days
		}
		days[a.TimeSlot.Day]++
	}

	totalScore := 0.0
	count := 0
	for _, dayCounts := range byClassroom {
		if len(dayCounts) == 0 {
			continue
		}

		sum := 0
		for _, c := range dayCounts {
			sum += c
		}
		mean := float64(sum) / float64(len(dayCounts))

		variance := 0.0
		for _, c := range dayCounts {
			diff := float64(c) - mean
			variance += diff * diff
		}
		variance /= float64(len(dayCounts))
		stdDev := math.Sqrt(variance)

		totalScore += 100.0 - math.Min(stdDev*10.0, 100.0)
		count++
	}

	if count == 0 {
		return 100.0
	}
	return totalScore / float64(count)
}

// scoreSubjectSpacing rewards courses whose distinct teaching days keep a
// gap of two or three calendar days between nearest occurrences.
func (q *QualityScorer) scoreSubjectSpacing(state *ScheduleState) float64 {
	totalScore := 0.0
	count := 0

	for _, assignments := range state.courseAssignments {
		if len(assignments) <= 1 {
			totalScore += 100.0
			count++
			continue
		}

		days := distinctDayNumbers(assignments)
		if len(days) <= 1 {
			totalScore += 100.0
			count++
			continue
		}

		minGap := 7
		for i := 1; i < len(days); i++ {
			if gap := days[i] - days[i-1]; gap < minGap {
				minGap = gap
			}
		}

		var score float64
		switch {
		case minGap == 0:
			score = 50.0
		case minGap == 1:
			score = 70.0
		case minGap <= 3:
			score = 100.0
		default:
			score = 90.0
		}
		totalScore += score
		count++
	}

	if count == 0 {
		return 100.0
	}
	return totalScore / float64(count)
}

func distinctDayNumbers(assignments []Assignment) []int {
	seen := make(map[int]struct{})
	for _, a := range assignments {
		seen[DayNumber(a.TimeSlot.Day)] = struct{}{}
	}
	days := make([]int, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

func maxConsecutiveDays(days []int) int {
	if len(days) == 0 {
		return 0
	}
	maxRun := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 1
		}
	}
	return maxRun
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(value, high))
}
