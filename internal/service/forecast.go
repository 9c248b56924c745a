package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/store"
)

// ForecastService runs the forecast pipeline against the stored ledger
type ForecastService struct {
	store    *store.DB
	pipeline *analysis.Pipeline
	log      zerolog.Logger
	now      func() time.Time
}

// NewForecastService creates a forecast service. The pipeline should use
// store.Snapshots() as its snapshot repository.
func NewForecastService(db *store.DB, pipeline *analysis.Pipeline, log zerolog.Logger) *ForecastService {
	return &ForecastService{
		store:    db,
		pipeline: pipeline,
		log:      log.With().Str("component", "forecast_service").Logger(),
		now:      time.Now,
	}
}

// ForecastResult is a computed forecast together with its stored run id
type ForecastResult struct {
	RunID    string             `json:"run_id"`
	Forecast *analysis.Forecast `json:"forecast"`
}

// Forecast computes the forecast and stores it as a new run
func (s *ForecastService) Forecast(ctx context.Context) (*ForecastResult, error) {
	in, err := s.input(ctx)
	if err != nil {
		return nil, err
	}

	fc, err := s.pipeline.Forecast(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("computing forecast: %w", err)
	}

	id, err := s.store.SaveForecastRun(ctx, fc)
	if err != nil {
		return nil, fmt.Errorf("saving forecast run: %w", err)
	}

	s.log.Debug().Str("run_id", id).Int("days", len(fc.Days)).Msg("Forecast stored")
	return &ForecastResult{RunID: id, Forecast: fc}, nil
}

// CaptureSnapshot pins today's seed
func (s *ForecastService) CaptureSnapshot(ctx context.Context) (*analysis.Snapshot, error) {
	in, err := s.input(ctx)
	if err != nil {
		return nil, err
	}
	return s.pipeline.CaptureSnapshot(ctx, in)
}

// ClearSnapshot empties the snapshot slot
func (s *ForecastService) ClearSnapshot(ctx context.Context) error {
	return s.pipeline.ClearSnapshot(ctx)
}

// PurgeStale drops a snapshot left over from an earlier day
func (s *ForecastService) PurgeStale(ctx context.Context) (bool, error) {
	removed, err := s.pipeline.PurgeStale(ctx)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info().Msg("Stale snapshot purged")
	}
	return removed, nil
}

// CloseDay marks day as finished so the next forecast seeds from it
func (s *ForecastService) CloseDay(ctx context.Context, day time.Time) error {
	today := analysis.Day(s.now())
	if analysis.Day(day).After(today) {
		return fmt.Errorf("closing %s: %w", analysis.DayKey(day), analysis.ErrInvalidInput)
	}
	if err := s.store.CloseDay(day); err != nil {
		return fmt.Errorf("closing day: %w", err)
	}
	s.log.Info().Str("date", analysis.DayKey(day)).Msg("Day closed")
	return nil
}

// Model exposes the validated load model
func (s *ForecastService) Model() *analysis.LoadModel {
	return s.pipeline.Model()
}

func (s *ForecastService) input(ctx context.Context) (analysis.ForecastInput, error) {
	records, err := s.store.ListAllRecords(ctx)
	if err != nil {
		return analysis.ForecastInput{}, fmt.Errorf("loading ledger: %w", err)
	}
	closed, err := s.store.IsDayClosed(s.now())
	if err != nil {
		return analysis.ForecastInput{}, fmt.Errorf("loading closed state: %w", err)
	}
	return analysis.ForecastInput{Records: records, TodayClosed: closed}, nil
}
