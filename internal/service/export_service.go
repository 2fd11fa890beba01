package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// ExportFile is a rendered timetable ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders stored timetables as downloadable weekly grids.
type ExportService struct {
	timetables timetableStore
	data       schedulerDataStore
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(timetables timetableStore, data schedulerDataStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		data:       data,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// ExportTimetable renders the classroom's weekly timetable in the requested format.
func (s *ExportService) ExportTimetable(ctx context.Context, q dto.TimetableExportQuery) (*ExportFile, error) {
	if q.SemesterID == "" || q.ClassroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semesterId and classroomId are required")
	}
	format := q.Format
	if format == "" {
		format = "csv"
	}

	entries, err := s.timetables.List(ctx, models.TimetableFilter{
		SemesterID:  q.SemesterID,
		ClassroomID: q.ClassroomID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable entries for classroom")
	}

	periods, err := s.data.ListPeriods(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	courses, err := s.data.ListCourses(ctx, q.SemesterID, []string{q.ClassroomID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	grid := buildWeeklyGrid(q.ClassroomID, entries, periods, courses)

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "pdf":
		data, err = s.pdf.Render(grid)
		contentType = "application/pdf"
	default:
		data, err = s.csv.Render(grid)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}

	filename := fmt.Sprintf("timetable_%s_%s.%s", q.ClassroomID, time.Now().UTC().Format("20060102"), format)
	return &ExportFile{Filename: filename, ContentType: contentType, Data: data}, nil
}

func buildWeeklyGrid(classroomID string, entries []models.TimetableEntry, periods []models.Period, courses []models.ClassroomCourse) export.WeeklyGrid {
	days := []string{scheduler.DayMon, scheduler.DayTue, scheduler.DayWed, scheduler.DayThu, scheduler.DayFri}
	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		dayIndex[d] = i
	}

	codeByCourse := make(map[string]string, len(courses))
	for _, c := range courses {
		codeByCourse[c.ID] = c.SubjectCode
	}

	cells := make(map[string][]string, len(periods))
	for _, p := range periods {
		cells[p.ID] = make([]string, len(days))
	}
	for _, e := range entries {
		idx, ok := dayIndex[e.DayOfWeek]
		if !ok {
			continue
		}
		row, ok := cells[e.PeriodID]
		if !ok {
			continue
		}
		label := codeByCourse[e.ClassroomCourseID]
		if label == "" {
			label = e.SubjectID
		}
		if e.RoomID != nil && *e.RoomID != "" {
			label = fmt.Sprintf("%s (%s)", label, *e.RoomID)
		}
		row[idx] = label
	}

	rows := make([]export.PeriodRow, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, export.PeriodRow{Label: p.Label, Cells: cells[p.ID]})
	}

	return export.WeeklyGrid{
		Title:      fmt.Sprintf("Weekly Timetable %s", classroomID),
		Days:       days,
		PeriodRows: rows,
	}
}
