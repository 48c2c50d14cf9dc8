package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/aristath/riskmap/internal/domain"
)

const summarySheet = "Summary"

// WorkbookWriter exports a result as an .xlsx workbook: a Summary sheet with
// return and risk per asset and horizon, then one sheet per horizon holding
// the asset table and the covariance grid.
type WorkbookWriter struct {
	path string
	log  zerolog.Logger
}

// NewWorkbookWriter creates a workbook writer for path.
func NewWorkbookWriter(path string, log zerolog.Logger) *WorkbookWriter {
	return &WorkbookWriter{
		path: path,
		log:  log.With().Str("component", "workbook_writer").Logger(),
	}
}

// Write renders result and saves it to the writer's path.
func (w *WorkbookWriter) Write(result *domain.AnalysisResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename default sheet: %w", err)
	}

	labels := result.PeriodLabels()
	if err := writeSummary(f, result, labels); err != nil {
		return err
	}
	for _, label := range labels {
		if err := writePeriod(f, label, result.Periods[label]); err != nil {
			return fmt.Errorf("sheet %s: %w", label, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create workbook directory: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}

	w.log.Info().Str("path", w.path).Int("sheets", len(labels)+1).Msg("Wrote analysis workbook")
	return nil
}

func writeSummary(f *excelize.File, result *domain.AnalysisResult, labels []string) error {
	if err := setRow(f, summarySheet, 1, "Generated at", result.GeneratedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	header := []interface{}{"Asset"}
	for _, label := range labels {
		header = append(header, label+" return", label+" risk")
	}
	if err := setRow(f, summarySheet, 3, header...); err != nil {
		return err
	}

	// Index each period's stats by asset so rows follow the registry order.
	stats := make(map[string]map[string]domain.AssetStatistic, len(labels))
	for _, label := range labels {
		byName := make(map[string]domain.AssetStatistic)
		for _, a := range result.Periods[label].Assets {
			byName[a.Name] = a
		}
		stats[label] = byName
	}

	for i, name := range result.TickerOrder {
		row := []interface{}{name}
		for _, label := range labels {
			if a, ok := stats[label][name]; ok {
				row = append(row, a.Return, a.Risk)
			} else {
				row = append(row, nil, nil)
			}
		}
		if err := setRow(f, summarySheet, 4+i, row...); err != nil {
			return err
		}
	}
	return nil
}

func writePeriod(f *excelize.File, label string, period domain.PeriodResult) error {
	if _, err := f.NewSheet(label); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := setRow(f, label, 1, "Asset", "Return", "Risk"); err != nil {
		return err
	}
	for i, a := range period.Assets {
		if err := setRow(f, label, 2+i, a.Name, a.Return, a.Risk); err != nil {
			return err
		}
	}

	// Covariance grid starts two columns right of the asset table.
	const gridCol = 5
	for i, a := range period.Assets {
		if err := setCell(f, label, gridCol+1+i, 1, a.Name); err != nil {
			return err
		}
		if err := setCell(f, label, gridCol, 2+i, a.Name); err != nil {
			return err
		}
	}
	for i, row := range period.CovarianceMatrix {
		for j, v := range row {
			if err := setCell(f, label, gridCol+1+j, 2+i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := setCell(f, sheet, 1+i, row, v); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
