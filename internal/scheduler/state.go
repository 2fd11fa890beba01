package scheduler

// ScheduleState is the mutable search state for one scheduling run: the
// ordered assignment list plus occupancy indices kept exactly in sync with
// it. A state is owned by exactly one in-flight run and must not be shared
// across goroutines.
type ScheduleState struct {
	Assignments []Assignment

	classroomSlots  map[string]map[string]struct{} // classroom id -> slot keys
	instructorSlots map[string]map[string]struct{} // instructor id -> slot keys
	roomSlots       map[string]map[string]struct{} // room id -> slot keys

	courseAssignments map[string][]Assignment // course id -> assignments
	courseIndex       map[string]string       // assignment id -> course id
}

// NewScheduleState returns an empty state.
func NewScheduleState() *ScheduleState {
	return &ScheduleState{
		classroomSlots:    make(map[string]map[string]struct{}),
		instructorSlots:   make(map[string]map[string]struct{}),
		roomSlots:         make(map[string]map[string]struct{}),
		courseAssignments: make(map[string][]Assignment),
		courseIndex:       make(map[string]string),
	}
}

// AddAssignment records a placement and updates every index. Callers must
// add a single course's assignments contiguously so RemoveLastAssignment
// can undo them by popping.
func (s *ScheduleState) AddAssignment(courseID string, a Assignment) {
	key := a.TimeSlot.Key()

	occupy(s.classroomSlots, a.ClassroomID, key)
	if a.InstructorID != "" {
		occupy(s.instructorSlots, a.InstructorID, key)
	}
	if a.RoomID != "" {
		occupy(s.roomSlots, a.RoomID, key)
	}

	s.courseAssignments[courseID] = append(s.courseAssignments[courseID], a)
	s.courseIndex[a.ID] = courseID
	s.Assignments = append(s.Assignments, a)
}

// RemoveLastAssignment undoes the most recently added placement. Strict
// LIFO: it is the only mutation that removes entries.
func (s *ScheduleState) RemoveLastAssignment() {
	if len(s.Assignments) == 0 {
		return
	}
	a := s.Assignments[len(s.Assignments)-1]
	s.Assignments = s.Assignments[:len(s.Assignments)-1]
	key := a.TimeSlot.Key()

	vacate(s.classroomSlots, a.ClassroomID, key)
	if a.InstructorID != "" {
		vacate(s.instructorSlots, a.InstructorID, key)
	}
	if a.RoomID != "" {
		vacate(s.roomSlots, a.RoomID, key)
	}

	courseID := s.courseIndex[a.ID]
	delete(s.courseIndex, a.ID)
	if list := s.courseAssignments[courseID]; len(list) > 0 {
		list = list[:len(list)-1]
		if len(list) == 0 {
			delete(s.courseAssignments, courseID)
		} else {
			s.courseAssignments[courseID] = list
		}
	}
}

// IsClassroomSlotOccupied reports whether the classroom already has a
// placement at the slot.
func (s *ScheduleState) IsClassroomSlotOccupied(classroomID, slotKey string) bool {
	_, ok := s.classroomSlots[classroomID][slotKey]
	return ok
}

// IsInstructorSlotOccupied reports whether the instructor is already
// teaching at the slot.
func (s *ScheduleState) IsInstructorSlotOccupied(instructorID, slotKey string) bool {
	_, ok := s.instructorSlots[instructorID][slotKey]
	return ok
}

// IsRoomSlotOccupied reports whether the room is already booked at the slot.
func (s *ScheduleState) IsRoomSlotOccupied(roomID, slotKey string) bool {
	_, ok := s.roomSlots[roomID][slotKey]
	return ok
}

// CourseAssignments returns the course's current placements. The returned
// slice is shared; callers must not mutate it.
func (s *ScheduleState) CourseAssignments(courseID string) []Assignment {
	return s.courseAssignments[courseID]
}

// CourseDayCount counts the course's placements on the given day.
func (s *ScheduleState) CourseDayCount(courseID, day string) int {
	count := 0
	for _, a := range s.courseAssignments[courseID] {
		if a.TimeSlot.Day == day {
			count++
		}
	}
	return count
}

// InstructorDayCount counts the instructor's placements on the given day.
func (s *ScheduleState) InstructorDayCount(instructorID, day string) int {
	count := 0
	for _, a := range s.Assignments {
		if a.InstructorID == instructorID && a.TimeSlot.Day == day {
			count++
		}
	}
	return count
}

// Clone returns a deep structural copy, used for the best-so-far snapshot.
func (s *ScheduleState) Clone() *ScheduleState {
	clone := NewScheduleState()
	clone.Assignments = make([]Assignment, len(s.Assignments))
	copy(clone.Assignments, s.Assignments)

	for id, keys := range s.classroomSlots {
		clone.classroomSlots[id] = cloneSet(keys)
	}
	for id, keys := range s.instructorSlots {
		clone.instructorSlots[id] = cloneSet(keys)
	}
	for id, keys := range s.roomSlots {
		clone.roomSlots[id] = cloneSet(keys)
	}
	for courseID, list := range s.courseAssignments {
		copied := make([]Assignment, len(list))
		copy(copied, list)
		clone.courseAssignments[courseID] = copied
	}
	for id, courseID := range s.courseIndex {
		clone.courseIndex[id] = courseID
	}
	return clone
}

func occupy(index map[string]map[string]struct{}, id, key string) {
	set, ok := index[id]
	if !ok {
		set = make(map[string]struct{})
		index[id] = set
	}
	set[key] = struct{}{}
}

func vacate(index map[string]map[string]struct{}, id, key string) {
	if set, ok := index[id]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(index, id)
		}
	}
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
