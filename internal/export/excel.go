package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes fleet schedule reports: one row per car, one column
// per calendar day, cells carry the renting user and booking status.
type Exporter struct {
	repo   domain.Repository
	dir    string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, dir: dir, logger: logger}
}

// WriteSchedule builds the report for the period and returns the file path.
func (e *Exporter) WriteSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if startDate.After(endDate) {
		return "", fmt.Errorf("export period start %s is after end %s",
			startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	bookings, err := e.repo.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}

	cars := e.repo.GetCars()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Fleet schedule: %s - %s",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout)))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	carRows := e.writeCarColumn(f, sheetName, cars)
	e.writeBookingCells(f, sheetName, bookings, dateCols, carRows)

	_ = f.SetColWidth(sheetName, "A", "A", 25)

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("schedule report written")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	dateCols := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, d.Format("01-02"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}
	return dateCols
}

func (e *Exporter) writeCarColumn(f *excelize.File, sheetName string, cars []models.Car) map[string]int {
	carRows := make(map[string]int)
	row := 3
	for _, car := range cars {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s %s (%s)", car.Brand, car.Model, car.ID))
		carRows[car.ID] = row
		row++
	}
	return carRows
}

func (e *Exporter) writeBookingCells(f *excelize.File, sheetName string, bookings []*models.Booking, dateCols, carRows map[string]int) {
	for _, b := range bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		row, ok := carRows[b.CarID]
		if !ok {
			continue
		}
		for d := b.StartDate; !d.After(b.EndDate); d = d.AddDate(0, 0, 1) {
			col, ok := dateCols[d.Format(models.DateLayout)]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s [%s]", b.UserID, b.Status))
		}
	}
}
