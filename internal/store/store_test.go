package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"endurance-coach/internal/analysis"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenPath(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rec := analysis.DailyRecord{
		Date:            date(2024, 9, 2),
		PlannedLoad:     80,
		ActualLoad:      95.5,
		AerobicTE:       3.2,
		AnaerobicTE:     2.1,
		SleepHours:      ptr(7.25),
		RestingHR:       ptr(48),
		HRV:             ptr(62),
		TrainingStatus:  "Productive",
		ObservedAcute:   ptr(55),
		ObservedChronic: ptr(48.5),
		Locked:          true,
		Phase:           analysis.PhaseDeload,
		Sport:           "Run",
		Zone:            "Z2",
	}
	require.NoError(t, db.UpsertRecord(ctx, rec))

	got, err := db.GetRecord(ctx, rec.Date)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Nil(t, got.SleepScore)
	assert.Nil(t, got.KcalIn)

	rec.ActualLoad = 110
	rec.SleepHours = nil
	require.NoError(t, db.UpsertRecord(ctx, rec))
	got, err = db.GetRecord(ctx, rec.Date)
	require.NoError(t, err)
	assert.Equal(t, 110.0, got.ActualLoad)
	assert.Nil(t, got.SleepHours)
}

func TestRecordDefaultsPhase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertRecord(ctx, analysis.DailyRecord{Date: date(2024, 9, 2)}))
	got, err := db.GetRecord(ctx, date(2024, 9, 2))
	require.NoError(t, err)
	assert.Equal(t, analysis.PhaseBuild, got.Phase)
}

func TestGetRecordNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRecord(context.Background(), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestListRecords(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	var records []analysis.DailyRecord
	for i := 4; i >= 0; i-- {
		records = append(records, analysis.DailyRecord{Date: date(2024, 9, 1+i), ActualLoad: float64(i)})
	}
	require.NoError(t, db.UpsertRecords(ctx, records))

	got, err := db.ListRecords(ctx, date(2024, 9, 2), date(2024, 9, 4))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, date(2024, 9, 2), got[0].Date)
	assert.Equal(t, date(2024, 9, 4), got[2].Date)

	all, err := db.ListAllRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, 0.0, all[0].ActualLoad)
}

func TestSnapshotRepo(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t).Snapshots()

	snap, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := analysis.Snapshot{
		ID:          "abc",
		CaptureDate: date(2024, 9, 2),
		SeedDate:    date(2024, 9, 1),
		Seed: analysis.State{
			Acute:   50,
			Chronic: 46.2,
			History: analysis.FitnessHistory{40, 41, 42, 43, 44, 45, 46},
		},
		HorizonIsClosed: true,
		CreatedAt:       time.Date(2024, 9, 2, 6, 30, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Put(ctx, want))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CaptureDate.Equal(got.CaptureDate))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Seed, got.Seed)
	assert.True(t, got.HorizonIsClosed)

	want.ID = "def"
	require.NoError(t, repo.Put(ctx, want))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", got.ID)

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotRepoLocalZone(t *testing.T) {
	prev := time.Local
	time.Local = time.FixedZone("EST", -5*3600)
	t.Cleanup(func() { time.Local = prev })

	ctx := context.Background()
	repo := openTestDB(t).Snapshots()

	// late evening west of UTC, still the 2nd locally
	now := time.Date(2024, 9, 2, 22, 0, 0, 0, time.Local)
	require.NoError(t, repo.Put(ctx, analysis.Snapshot{
		ID:          "abc",
		CaptureDate: analysis.Day(now),
		SeedDate:    analysis.Day(now).AddDate(0, 0, -1),
		CreatedAt:   now,
	}))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.CaptureDate.Location())
	assert.Equal(t, "2024-09-02", analysis.DayKey(got.CaptureDate))
	assert.Equal(t, "2024-09-01", analysis.DayKey(got.SeedDate))
	assert.True(t, got.ValidOn(now))
	assert.False(t, got.ValidOn(now.AddDate(0, 0, 1)))
}

func TestSnapshotRepoCorruptPayload(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.ExecContext(ctx,
		`INSERT INTO snapshots (key, id, capture_date, payload) VALUES (?, 'x', '2024-09-02', ?)`,
		analysis.SnapshotKey, []byte{0xc1})
	require.NoError(t, err)

	_, err = db.Snapshots().Get(ctx)
	assert.Error(t, err)
}

func TestForecastRuns(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.LatestForecastRun(ctx)
	assert.ErrorIs(t, err, ErrForecastNotFound)

	first := &analysis.Forecast{
		GeneratedAt: time.Date(2024, 9, 2, 7, 0, 0, 0, time.UTC),
		SeedDate:    date(2024, 9, 1),
		SeedSource:  analysis.SeedLive,
		Days: []analysis.ForecastDay{
			{Date: date(2024, 9, 2), RecommendedLoad: 60, Phase: analysis.PhaseBuild, Band: analysis.ProgressProductive},
			{Date: date(2024, 9, 3), RecommendedLoad: 25, Phase: analysis.PhaseDeload, NoSafeLoad: true},
		},
		Summary: analysis.Summary{Overall: analysis.Scored(72)},
	}
	firstID, err := db.SaveForecastRun(ctx, first)
	require.NoError(t, err)

	second := &analysis.Forecast{
		GeneratedAt: time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC),
		SeedDate:    date(2024, 9, 2),
		SeedSource:  analysis.SeedSnapshot,
		Days: []analysis.ForecastDay{
			{Date: date(2024, 9, 3), RecommendedLoad: 40, Locked: true, Phase: analysis.PhaseBuild},
		},
	}
	secondID, err := db.SaveForecastRun(ctx, second)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	run, err := db.LatestForecastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondID, run.ID)
	assert.Equal(t, "snapshot", run.SeedSource)
	assert.Nil(t, run.Overall)

	day, err := db.PlannedDay(ctx, date(2024, 9, 3))
	require.NoError(t, err)
	assert.Equal(t, 40.0, day.RecommendedLoad)
	assert.True(t, day.Locked)

	// only the first run covers the 2nd
	day, err = db.PlannedDay(ctx, date(2024, 9, 2))
	require.NoError(t, err)
	assert.Equal(t, 60.0, day.RecommendedLoad)
	assert.Equal(t, analysis.ProgressProductive, day.Band)

	_, err = db.PlannedDay(ctx, date(2024, 10, 1))
	assert.ErrorIs(t, err, ErrForecastNotFound)
}

func TestCloseDay(t *testing.T) {
	db := openTestDB(t)

	closed, err := db.IsDayClosed(date(2024, 9, 2))
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, db.CloseDay(time.Date(2024, 9, 2, 18, 0, 0, 0, time.UTC)))
	closed, err = db.IsDayClosed(date(2024, 9, 2))
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = db.IsDayClosed(date(2024, 9, 3))
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestAuth(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetAuth(ctx)
	assert.ErrorIs(t, err, ErrNoAuth)
	assert.ErrorIs(t, db.UpdateTokens(ctx, "a", "r", time.Now()), ErrNoAuth)
	athlete, err := db.LinkedAthlete()
	require.NoError(t, err)
	assert.Zero(t, athlete)

	expires := time.Unix(1725264000, 0)
	require.NoError(t, db.SaveAuth(ctx, &Auth{AthleteID: 7, AccessToken: "a", RefreshToken: "r", ExpiresAt: expires}))
	require.NoError(t, db.UpdateTokens(ctx, "a2", "r2", expires.Add(time.Hour)))

	got, err := db.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.AthleteID)
	assert.Equal(t, "a2", got.AccessToken)
	assert.True(t, got.ExpiresAt.Equal(expires.Add(time.Hour)))

	athlete, err = db.LinkedAthlete()
	require.NoError(t, err)
	assert.Equal(t, int64(7), athlete)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.SaveAuth(ctx, &Auth{AthleteID: 7, AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now()}))
	require.NoError(t, db.SetSyncState(KeyLastActivitySync, "2024-09-01T00:00:00Z"))

	require.NoError(t, db.Disconnect(ctx))
	require.NoError(t, db.Disconnect(ctx))

	_, err := db.GetAuth(ctx)
	assert.ErrorIs(t, err, ErrNoAuth)
	athlete, err := db.LinkedAthlete()
	require.NoError(t, err)
	assert.Zero(t, athlete)

	last, err := db.GetSyncState(KeyLastActivitySync)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-01T00:00:00Z", last)
}

func TestActivities(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	start := time.Date(2024, 9, 2, 7, 0, 0, 0, time.UTC)
	hr := 150.0
	require.NoError(t, db.UpsertActivity(ctx, &Activity{
		ID: 1, AthleteID: 7, Name: "Morning Run", Type: "Run",
		StartDate: start, StartDateLocal: start,
		Distance: 10000, MovingTime: 3000, ElapsedTime: 3100,
		AverageHeartrate: &hr, HasHeartrate: true,
	}))
	require.NoError(t, db.UpsertActivity(ctx, &Activity{
		ID: 2, AthleteID: 7, Name: "Old Ride", Type: "Ride",
		StartDate: start.AddDate(0, 0, -30), StartDateLocal: start.AddDate(0, 0, -30),
		MovingTime: 3600, ElapsedTime: 3600,
	}))

	count, err := db.CountActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	recent, err := db.ListActivitiesSince(ctx, start.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Morning Run", recent[0].Name)
	require.NotNil(t, recent[0].AverageHeartrate)
	assert.Equal(t, 150.0, *recent[0].AverageHeartrate)
	assert.Nil(t, recent[0].SufferScore)

	got, err := db.GetActivity(ctx, 2)
	require.NoError(t, err)
	assert.False(t, got.HasHeartrate)
	assert.Nil(t, got.AverageHeartrate)

	_, err = db.GetActivity(ctx, 99)
	assert.ErrorIs(t, err, ErrActivityNotFound)
}
