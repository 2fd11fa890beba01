package scheduler

import (
	"fmt"
	"sort"
)

type lockedSlotInfo struct {
	subjectID    string
	classroomIDs []string // empty = all classrooms
	scopeType    string
}

// ConstraintValidator is the hard-constraint oracle for one scheduling
// run. It is built once from the caller's reference tables and never
// mutated afterwards, so independent runs may share one instance.
type ConstraintValidator struct {
	lockedSlots     map[string]lockedSlotInfo
	instructorPrefs map[string]InstructorPrefData
	periodsByDay    map[string][]PeriodInfo
	rooms           map[string]RoomInfo
}

// NewConstraintValidator expands locked-slot definitions to one entry per
// (day, period) they cover and indexes the remaining reference tables.
func NewConstraintValidator(
	lockedSlots []LockedSlotData,
	instructorPrefs map[string]InstructorPrefData,
	periods []PeriodInfo,
	rooms map[string]RoomInfo,
) *ConstraintValidator {
	lockedMap := make(map[string]lockedSlotInfo)
	for _, locked := range lockedSlots {
		for _, periodID := range locked.PeriodIDs {
			key := fmt.Sprintf("%s__%s", locked.Day, periodID)
			lockedMap[key] = lockedSlotInfo{
				subjectID:    locked.SubjectID,
				classroomIDs: locked.ClassroomIDs,
				scopeType:    locked.ScopeType,
			}
		}
	}

	sorted := make([]PeriodInfo, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	periodsByDay := make(map[string][]PeriodInfo)
	for _, day := range []string{DayMon, DayTue, DayWed, DayThu, DayFri} {
		periodsByDay[day] = sorted
	}

	return &ConstraintValidator{
		lockedSlots:     lockedMap,
		instructorPrefs: instructorPrefs,
		periodsByDay:    periodsByDay,
		rooms:           rooms,
	}
}

// CanAssign checks every hard constraint for placing the course at the
// slot, fail-fast in a fixed order: cheap occupancy tests first, table
// lookups last. It reports the first violation only.
func (v *ConstraintValidator) CanAssign(course *CourseToSchedule, slot TimeSlot, roomID string, state *ScheduleState) *Conflict {
	slotKey := slot.Key()

	if state.IsClassroomSlotOccupied(course.ClassroomID, slotKey) {
		return &Conflict{
			Type:    ConflictClassroomOccupied,
			Message: fmt.Sprintf("Classroom %s is occupied at %s", course.ClassroomName, slotKey),
		}
	}

	if course.InstructorID != "" && state.IsInstructorSlotOccupied(course.InstructorID, slotKey) {
		name := course.InstructorName
		if name == "" {
			name = "Unknown"
		}
		return &Conflict{
			Type:    ConflictInstructorOccupied,
			Message: fmt.Sprintf("Instructor %s is already teaching at %s", name, slotKey),
		}
	}

	if roomID != "" {
		if state.IsRoomSlotOccupied(roomID, slotKey) {
			return &Conflict{
				Type:    ConflictRoomOccupied,
				Message: fmt.Sprintf("Room is occupied at %s", slotKey),
			}
		}
		if course.RequiredRoomType != "" {
			if room, ok := v.rooms[roomID]; ok {
				roomType := room.RoomType
				if roomType == "" {
					roomType = "STANDARD"
				}
				if roomType != course.RequiredRoomType {
					return &Conflict{
						Type:    ConflictRoomOccupied,
						Message: fmt.Sprintf("Room type mismatch. Needed: %s, Room is: %s", course.RequiredRoomType, roomType),
					}
				}
			}
		}
	}

	if course.InstructorID != "" {
		if prefs, ok := v.instructorPrefs[course.InstructorID]; ok {
			if _, blocked := prefs.HardUnavailable[slotKey]; blocked {
				return &Conflict{
					Type:    ConflictInstructorUnavailable,
					Message: fmt.Sprintf("Instructor is unavailable at %s", slotKey),
				}
			}
		}
	}

	if locked, ok := v.lockedSlots[slotKey]; ok {
		if locked.subjectID != course.SubjectID {
			return &Conflict{
				Type:    ConflictLockedSlot,
				Message: fmt.Sprintf("Slot %s is locked for another subject", slotKey),
			}
		}
		if len(locked.classroomIDs) > 0 && !containsID(locked.classroomIDs, course.ClassroomID) {
			return &Conflict{
				Type:    ConflictLockedSlot,
				Message: fmt.Sprintf("Slot %s is locked for different classrooms", slotKey),
			}
		}
	}

	return nil
}

// ValidateConsecutive checks the course's per-day block layout: a lone
// period needs AllowSinglePeriod, two or more must form one contiguous
// period-order run whose length lies in [MinConsecutive, MaxConsecutive].
// No-op for courses without a consecutive requirement.
func (v *ConstraintValidator) ValidateConsecutive(course *CourseToSchedule, assignments []Assignment) *Conflict {
	if course.MinConsecutive <= 1 {
		return nil
	}

	byDay := make(map[string][]int)
	for _, a := range assignments {
		byDay[a.TimeSlot.Day] = append(byDay[a.TimeSlot.Day], a.TimeSlot.PeriodOrder)
	}

	for day, periods := range byDay {
		sort.Ints(periods)
		count := len(periods)

		if count == 1 {
			if !course.AllowSinglePeriod {
				return &Conflict{
					Type:    ConflictInvalidConsecutive,
					Message: fmt.Sprintf("Subject %s requires at least %d consecutive periods on %s, got 1", course.SubjectCode, course.MinConsecutive, day),
				}
			}
			continue
		}

		if !isConsecutive(periods) {
			return &Conflict{
				Type:    ConflictInvalidConsecutive,
				Message: fmt.Sprintf("Subject %s periods on %s must be consecutive, got %v", course.SubjectCode, day, periods),
			}
		}
		if count < course.MinConsecutive {
			return &Conflict{
				Type:    ConflictInvalidConsecutive,
				Message: fmt.Sprintf("Subject %s requires at least %d consecutive periods on %s, got %d", course.SubjectCode, course.MinConsecutive, day, count),
			}
		}
		if count > course.MaxConsecutive {
			return &Conflict{
				Type:    ConflictInvalidConsecutive,
				Message: fmt.Sprintf("Subject %s allows max %d consecutive periods on %s, got %d", course.SubjectCode, course.MaxConsecutive, day, count),
			}
		}
	}

	return nil
}

// CheckInstructorDailyLoad reports whether the instructor can still take
// another period on the day. Used by the scheduler as a placement
// heuristic, not bundled into CanAssign.
func (v *ConstraintValidator) CheckInstructorDailyLoad(instructorID, day string, state *ScheduleState) bool {
	prefs, ok := v.instructorPrefs[instructorID]
	if !ok || prefs.MaxPeriodsPerDay <= 0 {
		return true
	}
	return state.InstructorDayCount(instructorID, day) < prefs.MaxPeriodsPerDay
}

func isConsecutive(periods []int) bool {
	for i := 1; i < len(periods); i++ {
		if periods[i] != periods[i-1]+1 {
			return false
		}
	}
	return true
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
