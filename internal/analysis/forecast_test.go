package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memSnapshots struct {
	mu      sync.Mutex
	snap    *Snapshot
	getErr  error
	cleared int
}

func (m *memSnapshots) Get(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.snap == nil {
		return nil, nil
	}
	s := *m.snap
	return &s, nil
}

func (m *memSnapshots) Put(ctx context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	return nil
}

func (m *memSnapshots) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	m.getErr = nil
	m.cleared++
	return nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Load: testLoadConfig(),
		Scoring: ScoringConfig{
			SleepHoursDefault: floatPtr(7),
			SleepScoreDefault: floatPtr(75),
			BodyWeightKg:      70,
		},
		Intensity: DefaultIntensityConfig(),
		Optimizer: DefaultOptimizerConfig(),
	}
}

func ledger(today time.Time, days int) []DailyRecord {
	var records []DailyRecord
	for i := days; i >= 0; i-- {
		records = append(records, DailyRecord{
			Date:        today.AddDate(0, 0, -i),
			ActualLoad:  float64(40 + (i%4)*20),
			AerobicTE:   3,
			AnaerobicTE: float64(i % 3),
			Phase:       PhaseBuild,
		})
	}
	return records
}

func newTestPipeline(t *testing.T, repo SnapshotRepository, clock *testClock) *Pipeline {
	t.Helper()
	p, err := NewPipeline(testPipelineConfig(), repo, zerolog.Nop(), WithClock(clock.now))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestForecastSeedDate(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	clock := &testClock{t: today.Add(9 * time.Hour)}
	p := newTestPipeline(t, nil, clock)
	records := ledger(today, 40)

	tests := []struct {
		name     string
		closed   bool
		wantSeed time.Time
	}{
		{"open day seeds from yesterday", false, today.AddDate(0, 0, -1)},
		{"closed day seeds from today", true, today},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := p.Forecast(context.Background(), ForecastInput{Records: records, TodayClosed: tt.closed})
			if err != nil {
				t.Fatal(err)
			}
			if !f.SeedDate.Equal(tt.wantSeed) {
				t.Errorf("SeedDate = %v, want %v", f.SeedDate, tt.wantSeed)
			}
			if f.SeedSource != SeedLive {
				t.Errorf("SeedSource = %v, want live", f.SeedSource)
			}
			if len(f.Days) != DefaultHorizon {
				t.Fatalf("days = %d, want %d", len(f.Days), DefaultHorizon)
			}
			for i, d := range f.Days {
				if want := tt.wantSeed.AddDate(0, 0, i+1); !d.Date.Equal(want) {
					t.Errorf("day %d = %v, want %v", i, d.Date, want)
				}
				if d.IntensityRatio < 0 || d.IntensityRatio > 1 {
					t.Errorf("day %d intensity ratio %v", i, d.IntensityRatio)
				}
				if d.Band != ClassifyProgress(d.ProgressScore) {
					t.Errorf("day %d band mismatch", i)
				}
			}
			if f.PaddedDays != 0 || f.HistoryPadded != 0 {
				t.Errorf("unexpected padding: %d/%d", f.PaddedDays, f.HistoryPadded)
			}
			if len(f.Metrics) == 0 {
				t.Error("expected metrics")
			}
		})
	}
}

func TestForecastIgnoresTodaysObservationWhenOpen(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	clock := &testClock{t: today.Add(9 * time.Hour)}
	p := newTestPipeline(t, nil, clock)
	ctx := context.Background()

	records := ledger(today, 40)
	base, err := p.Forecast(ctx, ForecastInput{Records: records})
	if err != nil {
		t.Fatal(err)
	}

	records[len(records)-1].ObservedAcute = floatPtr(60)
	records[len(records)-1].ObservedChronic = floatPtr(55)
	f, err := p.Forecast(ctx, ForecastInput{Records: records})
	if err != nil {
		t.Fatal(err)
	}
	if f.Seed != base.Seed {
		t.Errorf("seed = %+v, want %+v", f.Seed, base.Seed)
	}
	if f.Seed.Chronic == 0 || f.HistoryPadded != 0 {
		t.Errorf("seed replayed from zero: %+v padded=%d", f.Seed, f.HistoryPadded)
	}
}

func TestForecastKeepsLockedDays(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	clock := &testClock{t: today}
	p := newTestPipeline(t, nil, clock)

	records := ledger(today.AddDate(0, 0, -1), 40)
	records = append(records, DailyRecord{Date: today.AddDate(0, 0, 3), PlannedLoad: 155, Locked: true, Phase: PhaseBuild})

	f, err := p.Forecast(context.Background(), ForecastInput{Records: records})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range f.Days {
		if d.Date.Equal(today.AddDate(0, 0, 3)) {
			if !d.Locked || d.RecommendedLoad != 155 {
				t.Errorf("locked day = %+v, want load 155", d)
			}
			return
		}
	}
	t.Error("locked day not in horizon")
}

func TestForecastShortHistoryPads(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	p := newTestPipeline(t, nil, &testClock{t: today})

	f, err := p.Forecast(context.Background(), ForecastInput{Records: ledger(today, 3), TodayClosed: true})
	if err != nil {
		t.Fatal(err)
	}
	if f.PaddedDays != 28-4 {
		t.Errorf("PaddedDays = %d, want 24", f.PaddedDays)
	}
	if f.HistoryPadded != HistoryLen+1-4 {
		t.Errorf("HistoryPadded = %d, want 4", f.HistoryPadded)
	}

	empty, err := p.Forecast(context.Background(), ForecastInput{})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Seed.Acute != 0 || empty.Seed.Chronic != 0 || len(empty.Days) != DefaultHorizon {
		t.Errorf("empty ledger forecast = %+v", empty.Seed)
	}
}

func TestSnapshotStableWithinDay(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	clock := &testClock{t: today.Add(8 * time.Hour)}
	repo := &memSnapshots{}
	p := newTestPipeline(t, repo, clock)
	ctx := context.Background()

	records := ledger(today.AddDate(0, 0, -1), 40)
	snap, err := p.CaptureSnapshot(ctx, ForecastInput{Records: records})
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID == "" || !snap.CaptureDate.Equal(today) {
		t.Errorf("snapshot = %+v", snap)
	}

	// a late ledger change must not move the seed on the same day
	records[len(records)-1].ActualLoad = 180
	for i := 0; i < 3; i++ {
		clock.t = clock.t.Add(3 * time.Hour)
		f, err := p.Forecast(ctx, ForecastInput{Records: records})
		if err != nil {
			t.Fatal(err)
		}
		if f.SeedSource != SeedSnapshot || f.Seed != snap.Seed {
			t.Fatalf("read %d: seed = %+v from %s, want snapshot %+v", i, f.Seed, f.SeedSource, snap.Seed)
		}
	}

	// next calendar day: stale snapshot is discarded
	clock.t = today.AddDate(0, 0, 1).Add(time.Hour)
	f, err := p.Forecast(ctx, ForecastInput{Records: records})
	if err != nil {
		t.Fatal(err)
	}
	if f.SeedSource != SeedLive {
		t.Errorf("SeedSource = %v, want live", f.SeedSource)
	}
	if repo.snap != nil || repo.cleared != 1 {
		t.Errorf("stale snapshot not cleared (cleared=%d)", repo.cleared)
	}
}

func TestSnapshotValidOnZones(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 8, 20, 21, 0, 0, 0, est)
	capture := Day(now).In(est) // 2024-08-19 19:00 EST

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"same local evening", now, true},
		{"same local morning", time.Date(2024, 8, 20, 6, 0, 0, 0, est), true},
		{"next day", now.AddDate(0, 0, 1), false},
		{"previous day", now.AddDate(0, 0, -1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{CaptureDate: capture}
			if got := s.ValidOn(tt.now); got != tt.want {
				t.Errorf("ValidOn(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestSnapshotMalformedIsDiscarded(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	records := ledger(today, 40)

	tests := []struct {
		name string
		repo *memSnapshots
	}{
		{
			name: "negative seed",
			repo: &memSnapshots{snap: &Snapshot{CaptureDate: today, Seed: State{Acute: -4, Chronic: 10}}},
		},
		{
			name: "undecodable payload",
			repo: &memSnapshots{getErr: errors.New("msgpack: invalid code")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, tt.repo, &testClock{t: today})
			f, err := p.Forecast(ctx, ForecastInput{Records: records})
			if err != nil {
				t.Fatal(err)
			}
			if f.SeedSource != SeedLive {
				t.Errorf("SeedSource = %v, want live", f.SeedSource)
			}
			if tt.repo.cleared != 1 {
				t.Errorf("cleared = %d, want 1", tt.repo.cleared)
			}
		})
	}
}

func TestSnapshotLockBusy(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	repo := &memSnapshots{snap: &Snapshot{CaptureDate: today, Seed: State{Acute: 99, Chronic: 99}}}

	cfg := testPipelineConfig()
	cfg.LockWait = 10 * time.Millisecond
	p, err := NewPipeline(cfg, repo, zerolog.Nop(), WithClock(func() time.Time { return today }))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := p.lock.Acquire(ctx, 1); err != nil {
		t.Fatal(err)
	}
	defer p.lock.Release(1)

	f, err := p.Forecast(ctx, ForecastInput{Records: ledger(today, 40)})
	if err != nil {
		t.Fatal(err)
	}
	if f.SeedSource != SeedLive {
		t.Errorf("busy lock should fall back to the live seed, got %v", f.SeedSource)
	}
	if repo.snap == nil {
		t.Error("snapshot must not be touched while locked")
	}

	if _, err := p.CaptureSnapshot(ctx, ForecastInput{}); !errors.Is(err, ErrSnapshotLocked) {
		t.Errorf("CaptureSnapshot() error = %v, want ErrSnapshotLocked", err)
	}
}

func TestPurgeStale(t *testing.T) {
	today := time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC)
	repo := &memSnapshots{snap: &Snapshot{CaptureDate: today, Seed: State{Acute: 1, Chronic: 1}}}
	clock := &testClock{t: today}
	p := newTestPipeline(t, repo, clock)

	purged, err := p.PurgeStale(context.Background())
	if err != nil || purged {
		t.Errorf("PurgeStale() on capture date = %v, %v", purged, err)
	}

	clock.t = today.AddDate(0, 0, 1)
	purged, err = p.PurgeStale(context.Background())
	if err != nil || !purged || repo.snap != nil {
		t.Errorf("PurgeStale() next day = %v, %v", purged, err)
	}
}

func TestNewPipelineRequiresConfiguration(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Load.SmoothDown = nil
	if _, err := NewPipeline(cfg, nil, zerolog.Nop()); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("missing smooth_down: error = %v", err)
	}

	cfg = testPipelineConfig()
	cfg.Scoring.SleepScoreDefault = nil
	if _, err := NewPipeline(cfg, nil, zerolog.Nop()); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("missing sleep_score_default: error = %v", err)
	}
}
