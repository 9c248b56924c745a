package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/ledger"
	"endurance-coach/internal/store"
)

// LedgerService applies form submissions and moves the ledger in and out of workbooks
type LedgerService struct {
	store *store.DB
	log   zerolog.Logger
	now   func() time.Time
}

// NewLedgerService creates a ledger service
func NewLedgerService(db *store.DB, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		store: db,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   time.Now,
	}
}

// Submit merges a form submission into its day's ledger row. An after-activity
// submission for today also closes the day.
func (s *LedgerService) Submit(ctx context.Context, sub ledger.Submission) (*ledger.Applied, error) {
	day, err := ledger.ParseDate(sub.Date)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.GetRecord(ctx, day)
	if errors.Is(err, store.ErrRecordNotFound) {
		rec = analysis.DailyRecord{Date: day, Phase: analysis.PhaseBuild}
	} else if err != nil {
		return nil, fmt.Errorf("loading %s: %w", analysis.DayKey(day), err)
	}

	applied, err := ledger.ApplySubmission(rec, sub, s.now())
	if err != nil {
		return nil, err
	}
	if len(applied.Ignored) > 0 {
		s.log.Warn().
			Str("kind", string(sub.Kind)).
			Strs("fields", applied.Ignored).
			Msg("Ignoring fields not accepted for this submission")
	}

	if err := s.store.UpsertRecord(ctx, applied.Record); err != nil {
		return nil, fmt.Errorf("saving %s: %w", analysis.DayKey(day), err)
	}
	if applied.ClosesDay {
		if err := s.store.CloseDay(day); err != nil {
			return nil, fmt.Errorf("closing day: %w", err)
		}
	}

	s.log.Info().
		Str("date", analysis.DayKey(day)).
		Str("kind", string(sub.Kind)).
		Int("updated", len(applied.Updated)).
		Bool("closes_day", applied.ClosesDay).
		Msg("Submission applied")
	return &applied, nil
}

// ImportWorkbook replaces the ledger rows for every dated row of the timeline sheet
func (s *LedgerService) ImportWorkbook(ctx context.Context, path, sheet string) (int, error) {
	records, err := ledger.ReadTimeline(path, sheet)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := s.store.UpsertRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("storing records: %w", err)
	}
	if err := s.store.SetSyncState(store.KeyLastImport, s.now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record import time")
	}

	s.log.Info().Str("path", path).Int("records", len(records)).Msg("Workbook imported")
	return len(records), nil
}

// ExportWorkbook writes the ledger to the timeline sheet and, when fc is set,
// the recommended plan to the plan sheet.
func (s *LedgerService) ExportWorkbook(ctx context.Context, path, timelineSheet, planSheet string, fc *analysis.Forecast) error {
	records, err := s.store.ListAllRecords(ctx)
	if err != nil {
		return fmt.Errorf("loading ledger: %w", err)
	}
	if err := ledger.WriteTimeline(path, timelineSheet, records); err != nil {
		return fmt.Errorf("writing timeline: %w", err)
	}
	if fc != nil {
		if err := ledger.WritePlan(path, planSheet, fc); err != nil {
			return fmt.Errorf("writing plan: %w", err)
		}
	}
	s.log.Info().Str("path", path).Int("records", len(records)).Msg("Workbook exported")
	return nil
}
