package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/store"
)

// ReviewService compares a stored forecast day with what the ledger says happened
type ReviewService struct {
	store *store.DB
	model *analysis.LoadModel
}

// NewReviewService creates a review service
func NewReviewService(db *store.DB, model *analysis.LoadModel) *ReviewService {
	return &ReviewService{store: db, model: model}
}

// Review returns the plan-versus-actual review for day. It fails with
// store.ErrForecastNotFound when no stored run covered day, and with
// analysis.ErrDataGap when the ledger cannot be replayed through day.
func (s *ReviewService) Review(ctx context.Context, day time.Time) (*analysis.Review, error) {
	day = analysis.Day(day)

	planned, err := s.store.PlannedDay(ctx, day)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListRecords(ctx, time.Time{}, day)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	states, err := analysis.Replay(records, s.model, day)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 || !analysis.SameDay(states[len(states)-1].Date, day) {
		return nil, fmt.Errorf("replaying through %s: %w", analysis.DayKey(day), analysis.ErrDataGap)
	}

	rec, err := s.store.GetRecord(ctx, day)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	review := analysis.ReviewDay(planned, states[len(states)-1], rec)
	return &review, nil
}
