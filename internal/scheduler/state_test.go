package scheduler

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotAt(day string, order int) TimeSlot {
	return TimeSlot{Day: day, PeriodID: periodID(order), PeriodOrder: order}
}

func periodID(order int) string {
	return map[int]string{1: "period-1", 2: "period-2", 3: "period-3", 4: "period-4"}[order]
}

func TestScheduleStateOccupancyIndices(t *testing.T) {
	state := NewScheduleState()
	course := makeCourse("a", 2)
	course.InstructorID = "instructor-1"
	course.FixedRoomID = "room-1"

	slot := slotAt(DayMon, 1)
	state.AddAssignment(course.ID, NewAssignment(&course, slot, course.FixedRoomID, false))

	key := slot.Key()
	assert.True(t, state.IsClassroomSlotOccupied(course.ClassroomID, key))
	assert.True(t, state.IsInstructorSlotOccupied("instructor-1", key))
	assert.True(t, state.IsRoomSlotOccupied("room-1", key))
	assert.False(t, state.IsClassroomSlotOccupied(course.ClassroomID, slotAt(DayTue, 1).Key()))
	assert.Len(t, state.CourseAssignments(course.ID), 1)
	assert.Equal(t, 1, state.CourseDayCount(course.ID, DayMon))
	assert.Equal(t, 1, state.InstructorDayCount("instructor-1", DayMon))
}

func TestScheduleStateUndoRestoresPriorState(t *testing.T) {
	state := NewScheduleState()
	courseA := makeCourse("a", 2)
	courseA.InstructorID = "instructor-1"
	courseB := makeCourse("b", 2)
	courseB.FixedRoomID = "room-9"

	state.AddAssignment(courseA.ID, NewAssignment(&courseA, slotAt(DayMon, 1), "", false))
	state.AddAssignment(courseA.ID, NewAssignment(&courseA, slotAt(DayWed, 1), "", false))

	snapshot := state.Clone()

	state.AddAssignment(courseB.ID, NewAssignment(&courseB, slotAt(DayMon, 2), courseB.FixedRoomID, false))
	state.AddAssignment(courseB.ID, NewAssignment(&courseB, slotAt(DayTue, 2), courseB.FixedRoomID, false))
	state.AddAssignment(courseB.ID, NewAssignment(&courseB, slotAt(DayThu, 2), courseB.FixedRoomID, false))

	state.RemoveLastAssignment()
	state.RemoveLastAssignment()
	state.RemoveLastAssignment()

	require.True(t, reflect.DeepEqual(snapshot.Assignments, state.Assignments))
	require.True(t, reflect.DeepEqual(snapshot.classroomSlots, state.classroomSlots))
	require.True(t, reflect.DeepEqual(snapshot.instructorSlots, state.instructorSlots))
	require.True(t, reflect.DeepEqual(snapshot.roomSlots, state.roomSlots))
	require.True(t, reflect.DeepEqual(snapshot.courseAssignments, state.courseAssignments))
	require.True(t, reflect.DeepEqual(snapshot.courseIndex, state.courseIndex))
}

func TestScheduleStateRemoveOnEmptyIsNoop(t *testing.T) {
	state := NewScheduleState()
	state.RemoveLastAssignment()
	assert.Empty(t, state.Assignments)
}

func TestScheduleStateCloneIsIndependent(t *testing.T) {
	state := NewScheduleState()
	course := makeCourse("a", 1)
	state.AddAssignment(course.ID, NewAssignment(&course, slotAt(DayMon, 1), "", false))

	clone := state.Clone()
	state.AddAssignment(course.ID, NewAssignment(&course, slotAt(DayTue, 1), "", false))

	assert.Len(t, clone.Assignments, 1)
	assert.Len(t, state.Assignments, 2)
	assert.False(t, clone.IsClassroomSlotOccupied(course.ClassroomID, slotAt(DayTue, 1).Key()))
}
