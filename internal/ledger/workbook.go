package ledger

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"endurance-coach/internal/analysis"
)

// Default sheet names
const (
	SheetTimeline = "timeline"
	SheetPlan     = "plan"
)

// RowError locates a bad cell in the timeline sheet
type RowError struct {
	Cell string
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("cell %s: %v", e.Cell, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// ReadTimeline reads one DailyRecord per dated row of sheet. Columns are
// matched by header name; unknown columns are ignored.
func ReadTimeline(path, sheet string) ([]analysis.DailyRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = SheetTimeline
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	dateCol := -1
	columns := make(map[int]string)
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), "date") {
			dateCol = i
			continue
		}
		if key, ok := canonical(h); ok {
			columns[i] = key
		}
	}
	if dateCol < 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, ErrNoDate)
	}

	var records []analysis.DailyRecord
	for r, row := range rows[1:] {
		rowNum := r + 2
		if dateCol >= len(row) || strings.TrimSpace(row[dateCol]) == "" {
			continue
		}
		day, err := ParseDate(row[dateCol])
		if err != nil {
			return nil, cellError(dateCol, rowNum, err)
		}

		rec := analysis.DailyRecord{Date: day, Phase: analysis.PhaseBuild}
		for c, key := range columns {
			if c >= len(row) {
				continue
			}
			if _, err := setField(&rec, key, row[c]); err != nil {
				return nil, cellError(c, rowNum, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func cellError(col, row int, err error) error {
	cell, cerr := excelize.CoordinatesToCellName(col+1, row)
	if cerr != nil {
		cell = fmt.Sprintf("R%dC%d", row, col+1)
	}
	return &RowError{Cell: cell, Err: err}
}

var timelineHeaders = []string{
	"date", "planned_load", "actual_load", "aerobic_te", "anaerobic_te",
	"sleep_hours", "sleep_score", "resting_hr", "hrv", "hrv_low", "hrv_high",
	"readiness", "training_status", "kcal_in", "kcal_out", "protein_g", "kei",
	"observed_atl", "observed_ctl", "locked", "phase", "sport", "zone",
}

// WriteTimeline replaces sheet in the workbook at path with records.
func WriteTimeline(path, sheet string, records []analysis.DailyRecord) error {
	if sheet == "" {
		sheet = SheetTimeline
	}
	f, err := openOrCreate(path, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	writeHeader(f, sheet, timelineHeaders)
	for i, r := range records {
		values := []any{
			analysis.DayKey(r.Date), r.PlannedLoad, r.ActualLoad, r.AerobicTE, r.AnaerobicTE,
			opt(r.SleepHours), opt(r.SleepScore), opt(r.RestingHR), opt(r.HRV), opt(r.HRVLow), opt(r.HRVHigh),
			opt(r.Readiness), r.TrainingStatus, opt(r.KcalIn), opt(r.KcalOut), opt(r.ProteinGrams), opt(r.KeyEffortIndex),
			opt(r.ObservedAcute), opt(r.ObservedChronic), lockMark(r.Locked), string(r.Phase), r.Sport, r.Zone,
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	f.SetColWidth(sheet, "A", "A", 12)
	return f.SaveAs(path)
}

var planHeaders = []string{
	"date", "recommended_load", "atl", "ctl", "risk_ratio", "progress_score",
	"intensity_ratio", "band", "phase", "locked", "overkill", "no_safe_load",
}

// WritePlan replaces sheet in the workbook at path with the forecast days.
func WritePlan(path, sheet string, fc *analysis.Forecast) error {
	if sheet == "" {
		sheet = SheetPlan
	}
	f, err := openOrCreate(path, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	writeHeader(f, sheet, planHeaders)
	for i, d := range fc.Days {
		values := []any{
			analysis.DayKey(d.Date), d.RecommendedLoad, round2(d.Acute), round2(d.Chronic),
			round2(d.RiskRatio), round2(d.ProgressScore), round2(d.IntensityRatio),
			string(d.Band), string(d.Phase), lockMark(d.Locked), lockMark(d.Overkill), lockMark(d.NoSafeLoad),
		}
		if err := writeRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "L", 14)
	return f.SaveAs(path)
}

// openOrCreate opens path (or a new workbook) with sheet emptied and active.
func openOrCreate(path, sheet string) (*excelize.File, error) {
	var f *excelize.File
	if _, err := os.Stat(path); err == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("opening workbook: %w", err)
		}
		if err := dropSheet(f, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("clearing sheet %q: %w", sheet, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		return nil, err
	}

	idx, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet %q: %w", sheet, err)
	}
	f.SetActiveSheet(idx)
	return f, nil
}

// dropSheet removes sheet. A workbook cannot lose its last sheet, so a
// placeholder holds the slot until sheet is recreated.
func dropSheet(f *excelize.File, sheet string) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return err
	}
	const placeholder = "_replacing"
	if _, err := f.NewSheet(placeholder); err != nil {
		return err
	}
	if err := f.DeleteSheet(sheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	return f.DeleteSheet(placeholder)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func opt(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func lockMark(b bool) string {
	if b {
		return "x"
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
