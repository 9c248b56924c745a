package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"endurance-coach/internal/analysis"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func TestParseGermanFloat(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"7,5", 7.5, false},
		{" 1.234,5 ", 1234.5, false},
		{"42", 42, false},
		{"7.25", 7.25, false},
		{"-3,1", -3.1, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGermanFloat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr error
	}{
		{"02.09.2024", day(2024, 9, 2), nil},
		{"02.09.2024 07:15:00", day(2024, 9, 2), nil},
		{"2024-09-02", day(2024, 9, 2), nil},
		{"", time.Time{}, ErrNoDate},
		{"31.02.2024", time.Time{}, ErrInvalidValue},
		{"9/2/2024", time.Time{}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindMorning, ParseKind("Morgens"))
	assert.Equal(t, KindAfterActivity, ParseKind("Nach Aktivität"))
	assert.Equal(t, KindAfterActivity, ParseKind("after_activity"))
	assert.Equal(t, KindEvening, ParseKind(" Abends "))
	assert.Equal(t, Kind(""), ParseKind("lunch"))
}

func TestApplyMorningSubmission(t *testing.T) {
	today := day(2024, 9, 2)
	sub := Submission{
		Kind: KindMorning,
		Date: "02.09.2024",
		Values: map[string]string{
			"sleep_hours":      "7,5",
			"rhr_bpm":          "48",
			"hrv_threshholds":  "55-70",
			"Trainingszustand": "Productive",
			"kcal_in":          "2500", // evening field, ignored
			"sleep_score":      "",
		},
	}

	got, err := ApplySubmission(analysis.DailyRecord{}, sub, today)
	require.NoError(t, err)

	r := got.Record
	assert.True(t, r.Date.Equal(today))
	require.NotNil(t, r.SleepHours)
	assert.Equal(t, 7.5, *r.SleepHours)
	assert.Equal(t, 48.0, *r.RestingHR)
	assert.Equal(t, 55.0, *r.HRVLow)
	assert.Equal(t, 70.0, *r.HRVHigh)
	assert.Equal(t, "Productive", r.TrainingStatus)
	assert.Nil(t, r.KcalIn)
	assert.Nil(t, r.SleepScore)
	assert.Equal(t, []string{"kcal_in"}, got.Ignored)
	assert.ElementsMatch(t, []string{"sleep_hours", "resting_hr", "hrv_thresholds", "training_status"}, got.Updated)
	assert.False(t, got.ClosesDay)
}

func TestApplyAfterActivityClosesToday(t *testing.T) {
	today := day(2024, 9, 2)
	existing := analysis.DailyRecord{Date: today, PlannedLoad: 80, SleepHours: ptr(7)}
	sub := Submission{
		Kind: KindAfterActivity,
		Date: "2024-09-02",
		Values: map[string]string{
			"load_fb_day": "95,5",
			"Aerobic_TE":  "3,2",
			"Sport_x":     "Run",
			"Zone":        "Z2",
			"fbATL_obs":   "55",
			"fbCTL_obs":   "48,5",
		},
	}

	got, err := ApplySubmission(existing, sub, today.Add(15*time.Hour))
	require.NoError(t, err)
	assert.True(t, got.ClosesDay)
	assert.Equal(t, 95.5, got.Record.ActualLoad)
	assert.Equal(t, 80.0, got.Record.PlannedLoad)
	assert.Equal(t, 7.0, *got.Record.SleepHours)
	assert.Equal(t, 3.2, got.Record.AerobicTE)
	assert.Equal(t, "Run", got.Record.Sport)
	assert.Equal(t, 48.5, *got.Record.ObservedChronic)

	// the same form for a past day does not close anything
	past := sub
	past.Date = "01.09.2024"
	got, err = ApplySubmission(analysis.DailyRecord{}, past, today)
	require.NoError(t, err)
	assert.False(t, got.ClosesDay)
}

func TestApplySubmissionErrors(t *testing.T) {
	today := day(2024, 9, 2)

	_, err := ApplySubmission(analysis.DailyRecord{}, Submission{Kind: KindEvening}, today)
	assert.ErrorIs(t, err, ErrNoDate)

	_, err = ApplySubmission(analysis.DailyRecord{}, Submission{
		Kind:   KindEvening,
		Date:   "02.09.2024",
		Values: map[string]string{"kcal_in": "viel"},
	}, today)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "kcal_in")

	_, err = ApplySubmission(analysis.DailyRecord{Date: day(2024, 9, 1)}, Submission{
		Kind: KindEvening,
		Date: "02.09.2024",
	}, today)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestApplyUnknownKindWritesAllFields(t *testing.T) {
	got, err := ApplySubmission(analysis.DailyRecord{}, Submission{
		Date:   "02.09.2024",
		Values: map[string]string{"kcal_in": "2500", "sleep_hours": "8", "actual_load": "60"},
	}, day(2024, 9, 2))
	require.NoError(t, err)
	assert.Len(t, got.Updated, 3)
	assert.False(t, got.ClosesDay)
}

func TestReadTimelineGermanSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTimeline))
	rows := [][]any{
		{"date", "load_fb_day", "sleep_hours", "Sport_x", "notes", "locked", "phase"},
		{"01.09.2024", "60,5", "7,25", "Run", "easy", "x", ""},
		{"", "999", "", "", "blank date is skipped", "", ""},
		{"2024-09-02", "", "8", "", "", "", "deload"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow(SheetTimeline, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := ReadTimeline(path, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].Date.Equal(day(2024, 9, 1)))
	assert.Equal(t, 60.5, records[0].ActualLoad)
	assert.Equal(t, 7.25, *records[0].SleepHours)
	assert.Equal(t, "Run", records[0].Sport)
	assert.True(t, records[0].Locked)
	assert.Equal(t, analysis.PhaseBuild, records[0].Phase)

	assert.Equal(t, 0.0, records[1].ActualLoad)
	assert.Equal(t, analysis.PhaseDeload, records[1].Phase)
}

func TestReadTimelineReportsCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTimeline))
	require.NoError(t, f.SetSheetRow(SheetTimeline, "A1", &[]any{"date", "actual_load"}))
	require.NoError(t, f.SetSheetRow(SheetTimeline, "A2", &[]any{"01.09.2024", "lots"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ReadTimeline(path, SheetTimeline)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "B2", rowErr.Cell)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestReadTimelineRequiresDateColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodate.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", SheetTimeline))
	require.NoError(t, f.SetSheetRow(SheetTimeline, "A1", &[]any{"actual_load"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ReadTimeline(path, "")
	assert.ErrorIs(t, err, ErrNoDate)
}

func TestWriteTimelineThenPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	records := []analysis.DailyRecord{
		{Date: day(2024, 9, 1), ActualLoad: 60, SleepHours: ptr(7.5), Phase: analysis.PhaseBuild, Locked: true},
		{Date: day(2024, 9, 2), PlannedLoad: 40, Phase: analysis.PhaseDeload},
	}
	require.NoError(t, WriteTimeline(path, "", records))

	fc := &analysis.Forecast{Days: []analysis.ForecastDay{
		{Date: day(2024, 9, 3), RecommendedLoad: 55, Acute: 50.123, Chronic: 46.2, Phase: analysis.PhaseBuild},
	}}
	require.NoError(t, WritePlan(path, "", fc))

	// writing the plan keeps the timeline sheet
	got, err := ReadTimeline(path, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 60.0, got[0].ActualLoad)
	assert.Equal(t, 7.5, *got[0].SleepHours)
	assert.True(t, got[0].Locked)
	assert.Equal(t, analysis.PhaseDeload, got[1].Phase)
	assert.Nil(t, got[1].SleepHours)

	// rewriting a sheet drops its old rows
	require.NoError(t, WriteTimeline(path, "", records[:1]))
	got, err = ReadTimeline(path, "")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	load, err := f.GetCellValue(SheetPlan, "B2")
	require.NoError(t, err)
	assert.Equal(t, "55", load)
	atl, err := f.GetCellValue(SheetPlan, "C2")
	require.NoError(t, err)
	assert.Equal(t, "50.12", atl)
}
