package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func exportFixtures() (*timetableStoreStub, *dataStoreStub) {
	room := "room-lab"
	timetables := &timetableStoreStub{listed: []models.TimetableEntry{
		{ID: "tt-1", ClassroomCourseID: "course-1", ClassroomID: "class-1", SubjectID: "subj-1", DayOfWeek: "MON", PeriodID: "period-1", SemesterID: "sem-1"},
		{ID: "tt-2", ClassroomCourseID: "course-2", ClassroomID: "class-1", SubjectID: "subj-2", DayOfWeek: "WED", PeriodID: "period-2", RoomID: &room, SemesterID: "sem-1"},
	}}
	data := &dataStoreStub{
		courses: []models.ClassroomCourse{
			{ID: "course-1", SubjectCode: "MATH"},
			{ID: "course-2", SubjectCode: "PHYS"},
		},
		periods: []models.Period{
			{ID: "period-1", Label: "1st", DisplayOrder: 1},
			{ID: "period-2", Label: "2nd", DisplayOrder: 2},
		},
	}
	return timetables, data
}

func TestExportServiceRendersCSVGrid(t *testing.T) {
	timetables, data := exportFixtures()
	svc := NewExportService(timetables, data, nil)

	file, err := svc.ExportTimetable(context.Background(), dto.TimetableExportQuery{
		SemesterID:  "sem-1",
		ClassroomID: "class-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	content := string(file.Data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Period,MON,TUE,WED,THU,FRI", strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(lines[1], "1st,MATH,"))
	assert.Contains(t, lines[2], "PHYS (room-lab)")
}

func TestExportServiceRendersPDF(t *testing.T) {
	timetables, data := exportFixtures()
	svc := NewExportService(timetables, data, nil)

	file, err := svc.ExportTimetable(context.Background(), dto.TimetableExportQuery{
		SemesterID:  "sem-1",
		ClassroomID: "class-1",
		Format:      "pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceEmptyTimetable(t *testing.T) {
	svc := NewExportService(&timetableStoreStub{}, &dataStoreStub{}, nil)

	_, err := svc.ExportTimetable(context.Background(), dto.TimetableExportQuery{
		SemesterID:  "sem-1",
		ClassroomID: "class-1",
	})
	require.Error(t, err)
}

func TestExportServiceValidation(t *testing.T) {
	svc := NewExportService(&timetableStoreStub{}, &dataStoreStub{}, nil)

	_, err := svc.ExportTimetable(context.Background(), dto.TimetableExportQuery{SemesterID: "sem-1"})
	require.Error(t, err)
}
