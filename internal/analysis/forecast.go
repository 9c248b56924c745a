package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// SeedSource tells where a forecast's starting state came from.
type SeedSource string

const (
	SeedLive     SeedSource = "live"
	SeedSnapshot SeedSource = "snapshot"
)

const (
	DefaultHorizon  = 14
	DefaultLockWait = 2 * time.Second
)

// PipelineConfig bundles everything the forecast needs besides the ledger.
type PipelineConfig struct {
	Load      LoadConfig
	Scoring   ScoringConfig
	Intensity IntensityConfig
	Optimizer OptimizerConfig
	Horizon   int
	LockWait  time.Duration
}

// ForecastInput is the ledger view for one forecast call.
type ForecastInput struct {
	Records     []DailyRecord
	TodayClosed bool
}

// ForecastDay is the projection for one future day.
type ForecastDay struct {
	Date            time.Time    `json:"date"`
	Acute           float64      `json:"atl"`
	Chronic         float64      `json:"ctl"`
	RiskRatio       float64      `json:"risk_ratio"`
	ProgressScore   float64      `json:"progress_score"`
	IntensityRatio  float64      `json:"intensity_ratio"`
	RecommendedLoad float64      `json:"recommended_load"`
	Band            ProgressBand `json:"band"`
	Locked          bool         `json:"locked"`
	Phase           Phase        `json:"phase"`
	Overkill        bool         `json:"overkill"`
	NoSafeLoad      bool         `json:"no_safe_load,omitempty"`
}

// Forecast is the full pipeline output.
type Forecast struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	SeedDate      time.Time      `json:"seed_date"`
	SeedSource    SeedSource     `json:"seed_source"`
	Seed          State          `json:"seed"`
	Days          []ForecastDay  `json:"days"`
	Summary       Summary        `json:"summary"`
	Metrics       []ScoredMetric `json:"metrics"`
	PaddedDays    int            `json:"padded_days"`
	HistoryPadded int            `json:"history_padded"`
}

// Pipeline runs forecasts and manages the snapshot slot.
type Pipeline struct {
	cfg       PipelineConfig
	model     *LoadModel
	optimizer *Optimizer
	repo      SnapshotRepository
	lock      *semaphore.Weighted
	now       func() time.Time
	log       zerolog.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline validates cfg. A nil repo disables snapshots.
func NewPipeline(cfg PipelineConfig, repo SnapshotRepository, log zerolog.Logger, opts ...PipelineOption) (*Pipeline, error) {
	model, err := NewLoadModel(cfg.Load)
	if err != nil {
		return nil, err
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}
	opt, err := NewOptimizer(model, cfg.Optimizer)
	if err != nil {
		return nil, err
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = DefaultLockWait
	}
	if cfg.Intensity.Window <= 0 {
		cfg.Intensity.Window = DefaultIntensityConfig().Window
	}

	p := &Pipeline{
		cfg:       cfg,
		model:     model,
		optimizer: opt,
		repo:      repo,
		lock:      semaphore.NewWeighted(1),
		now:       time.Now,
		log:       log.With().Str("component", "forecast").Logger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Model returns the validated load model.
func (p *Pipeline) Model() *LoadModel {
	return p.model
}

// Forecast projects the horizon after the seed day.
func (p *Pipeline) Forecast(ctx context.Context, in ForecastInput) (*Forecast, error) {
	today := Day(p.now())

	seed, seedDate, historyPadded, err := p.liveSeed(in, today)
	if err != nil {
		return nil, err
	}
	source := SeedLive

	if snap := p.currentSnapshot(ctx, today); snap != nil {
		seed, seedDate, source = snap.Seed, Day(snap.SeedDate), SeedSnapshot
		historyPadded = 0
	}

	byDay := indexByDay(in.Records)
	horizon := make([]DailyRecord, 0, p.cfg.Horizon)
	for i := 1; i <= p.cfg.Horizon; i++ {
		d := seedDate.AddDate(0, 0, i)
		rec, ok := byDay[DayKey(d)]
		if !ok {
			rec = DailyRecord{Date: d, Phase: PhaseBuild}
		}
		rec.Date = d
		horizon = append(horizon, rec)
	}

	plan, err := p.optimizer.Plan(seed, horizon)
	if err != nil {
		return nil, err
	}

	// future days carry the recommended load into the intensity window
	projected := make([]DailyRecord, 0, len(in.Records)+len(plan))
	for _, r := range in.Records {
		if Day(r.Date).After(seedDate) {
			continue
		}
		projected = append(projected, r)
	}
	for i, pd := range plan {
		r := horizon[i]
		r.PlannedLoad = pd.Load
		projected = append(projected, r)
	}

	days := make([]ForecastDay, 0, len(plan))
	for i, pd := range plan {
		window, _ := HybridWindow(projected, seedDate, pd.Date, p.cfg.Intensity.Window)
		kei := 0.0
		if horizon[i].KeyEffortIndex != nil {
			kei = *horizon[i].KeyEffortIndex
		}
		days = append(days, ForecastDay{
			Date:            pd.Date,
			Acute:           pd.State.Acute,
			Chronic:         pd.State.Chronic,
			RiskRatio:       pd.Risk,
			ProgressScore:   pd.Progress,
			IntensityRatio:  IntensityRatio(window, p.cfg.Intensity),
			RecommendedLoad: pd.Load,
			Band:            ClassifyProgress(pd.Progress),
			Locked:          pd.Locked,
			Phase:           phaseOrBuild(pd.Phase),
			Overkill:        Overkill(pd.Risk, kei),
			NoSafeLoad:      pd.NoSafeLoad,
		})
	}

	window, padded := HybridWindow(projected, seedDate, seedDate, p.cfg.Intensity.Window)
	if padded > 0 || historyPadded > 0 {
		p.log.Debug().
			Err(ErrDataGap).
			Int("window_padded", padded).
			Int("history_padded", historyPadded).
			Msg("Padded short history")
	}

	scored, ok := byDay[DayKey(today)]
	if !ok {
		scored = byDay[DayKey(seedDate)]
		scored.Date = seedDate
	}
	metrics := BuildMetrics(MetricInputs{
		Day:            scored,
		History:        in.Records,
		State:          seed,
		IntensityRatio: IntensityRatio(window, p.cfg.Intensity),
	}, p.cfg.Scoring)

	p.log.Info().
		Str("seed_date", DayKey(seedDate)).
		Str("seed_source", string(source)).
		Int("days", len(days)).
		Msg("Forecast computed")

	return &Forecast{
		GeneratedAt:   p.now(),
		SeedDate:      seedDate,
		SeedSource:    source,
		Seed:          seed,
		Days:          days,
		Summary:       Aggregate(metrics),
		Metrics:       metrics,
		PaddedDays:    padded,
		HistoryPadded: historyPadded,
	}, nil
}

// CaptureSnapshot pins today's live seed. It fails with ErrSnapshotLocked when
// another refresh holds the slot past the lock wait.
func (p *Pipeline) CaptureSnapshot(ctx context.Context, in ForecastInput) (*Snapshot, error) {
	if p.repo == nil {
		return nil, missing("snapshot repository")
	}
	today := Day(p.now())

	seed, seedDate, _, err := p.liveSeed(in, today)
	if err != nil {
		return nil, err
	}

	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	snap := Snapshot{
		ID:              uuid.NewString(),
		CaptureDate:     today,
		SeedDate:        seedDate,
		Seed:            seed,
		HorizonIsClosed: in.TodayClosed,
		CreatedAt:       p.now().UTC(),
	}
	if err := p.repo.Put(ctx, snap); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}

	p.log.Info().
		Str("snapshot_id", snap.ID).
		Str("seed_date", DayKey(seedDate)).
		Msg("Snapshot captured")
	return &snap, nil
}

// ClearSnapshot empties the snapshot slot.
func (p *Pipeline) ClearSnapshot(ctx context.Context) error {
	if p.repo == nil {
		return nil
	}
	release, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return p.repo.Clear(ctx)
}

// PurgeStale clears the snapshot when it no longer belongs to today.
// It reports whether anything was removed.
func (p *Pipeline) PurgeStale(ctx context.Context) (bool, error) {
	if p.repo == nil {
		return false, nil
	}
	release, err := p.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	snap, err := p.repo.Get(ctx)
	if err == nil && (snap == nil || snap.ValidOn(p.now())) {
		return false, nil
	}
	if err := p.repo.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// currentSnapshot returns today's snapshot, discarding stale or malformed ones.
// A busy lock skips the snapshot and the caller keeps the live seed.
func (p *Pipeline) currentSnapshot(ctx context.Context, today time.Time) *Snapshot {
	if p.repo == nil {
		return nil
	}
	release, err := p.acquire(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Snapshot busy, using live seed")
		return nil
	}
	defer release()

	snap, err := p.repo.Get(ctx)
	if err == nil && snap == nil {
		return nil
	}
	if err == nil {
		err = snap.Validate()
		if err == nil && !snap.ValidOn(today) {
			err = &FieldError{Kind: ErrSnapshotStale, Field: "capture_date"}
		}
	}
	if err == nil {
		return snap
	}

	p.log.Warn().Err(err).Msg("Discarding snapshot")
	if cerr := p.repo.Clear(ctx); cerr != nil {
		p.log.Error().Err(cerr).Msg("Failed to clear snapshot")
	}
	return nil
}

func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	wait, cancel := context.WithTimeout(ctx, p.cfg.LockWait)
	defer cancel()
	if err := p.lock.Acquire(wait, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrSnapshotLocked
		}
		return nil, err
	}
	return func() { p.lock.Release(1) }, nil
}

// liveSeed replays the ledger through today when today is closed, else through
// yesterday. historyPadded counts fitness-history slots filled by padding.
func (p *Pipeline) liveSeed(in ForecastInput, today time.Time) (State, time.Time, int, error) {
	seedDate := today.AddDate(0, 0, -1)
	if in.TodayClosed {
		seedDate = today
	}

	states, err := Replay(in.Records, p.model, seedDate)
	if err != nil {
		return State{}, seedDate, 0, err
	}
	if len(states) == 0 {
		return State{}, seedDate, HistoryLen, nil
	}

	historyPadded := HistoryLen + 1 - len(states)
	if historyPadded < 0 {
		historyPadded = 0
	}
	if historyPadded > HistoryLen {
		historyPadded = HistoryLen
	}
	return states[len(states)-1].State, seedDate, historyPadded, nil
}

func phaseOrBuild(p Phase) Phase {
	if p == PhaseDeload {
		return PhaseDeload
	}
	return PhaseBuild
}
