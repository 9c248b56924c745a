package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/store"
	"endurance-coach/internal/strava"
)

// LoadLookbackDays is how far back synced activities may fill the ledger
const LoadLookbackDays = 42

// ActivitySource is the slice of the Strava client the sync needs
type ActivitySource interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	client  ActivitySource
	store   *store.DB
	hrZones analysis.HRZones
	log     zerolog.Logger
	now     func() time.Time
}

// NewSyncService creates a new sync service with the athlete's HR zones for TRIMP
func NewSyncService(client ActivitySource, db *store.DB, zones analysis.HRZones, log zerolog.Logger) *SyncService {
	return &SyncService{
		client:  client,
		store:   db,
		hrZones: zones,
		log:     log.With().Str("component", "sync").Logger(),
		now:     time.Now,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase     string // "activities", "loads"
	Total     int
	Completed int
	Error     error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	DaysFilled        int
	DaysKept          int
	Errors            []error
}

// SyncAll fetches new activities and folds their TRIMP into the ledger
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	if err := s.syncActivities(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	if err := s.applyLoads(ctx, progress, result); err != nil {
		return result, fmt.Errorf("applying loads: %w", err)
	}

	s.log.Info().
		Int("fetched", result.ActivitiesFetched).
		Int("stored", result.ActivitiesStored).
		Int("days_filled", result.DaysFilled).
		Int("errors", len(result.Errors)).
		Msg("Sync complete")
	return result, nil
}

// syncActivities fetches activities since the last sync and stores them
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	// Get last sync time
	lastSyncStr, _ := s.store.GetSyncState(store.KeyLastActivitySync)
	var after time.Time
	if lastSyncStr != "" {
		after, _ = time.Parse(time.RFC3339, lastSyncStr)
	}
	started := s.now()

	if progress != nil {
		progress <- SyncProgress{Phase: "activities"}
	}

	page := 1
	perPage := 100

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		activities, err := s.client.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(activities) == 0 {
			break
		}

		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			if err := s.store.UpsertActivity(ctx, convertActivity(a)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:     "activities",
				Total:     result.ActivitiesFetched,
				Completed: result.ActivitiesStored,
			}
		}

		if len(activities) < perPage {
			break // Last page
		}

		page++
	}

	// Update last sync time
	return s.store.SetSyncState(store.KeyLastActivitySync, started.UTC().Format(time.RFC3339))
}

// applyLoads writes each day's summed TRIMP as its actual load. Days that
// already carry a ledger load keep it.
func (s *SyncService) applyLoads(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	since := analysis.Day(s.now()).AddDate(0, 0, -LoadLookbackDays)
	activities, err := s.store.ListActivitiesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("listing activities: %w", err)
	}

	sessions := make([]analysis.SessionSummary, 0, len(activities))
	for _, a := range activities {
		sessions = append(sessions, analysis.SessionSummary{
			Start:      a.StartDateLocal,
			MovingTime: a.MovingTime,
			AverageHR:  a.AverageHeartrate,
		})
	}
	loads := analysis.SumDailyLoads(sessions, s.hrZones)

	for i, dl := range loads {
		if progress != nil {
			progress <- SyncProgress{Phase: "loads", Total: len(loads), Completed: i}
		}
		if dl.TRIMP <= 0 {
			continue
		}

		rec, err := s.store.GetRecord(ctx, dl.Date)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			rec = analysis.DailyRecord{Date: dl.Date, Phase: analysis.PhaseBuild}
		case err != nil:
			result.Errors = append(result.Errors, fmt.Errorf("loading %s: %w", analysis.DayKey(dl.Date), err))
			continue
		case rec.ActualLoad > 0:
			result.DaysKept++
			continue
		}

		rec.ActualLoad = dl.TRIMP
		if err := s.store.UpsertRecord(ctx, rec); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving %s: %w", analysis.DayKey(dl.Date), err))
			continue
		}
		result.DaysFilled++
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "loads", Total: len(loads), Completed: len(loads)}
	}
	return nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// convertActivity maps an API summary onto the stored activity row
func convertActivity(a strava.Activity) *store.Activity {
	return &store.Activity{
		ID:               a.ID,
		AthleteID:        a.Athlete.ID,
		Name:             a.Name,
		Type:             a.Type,
		StartDate:        a.StartDate,
		StartDateLocal:   a.StartDateLocal,
		Timezone:         a.Timezone,
		Distance:         a.Distance,
		MovingTime:       a.MovingTime,
		ElapsedTime:      a.ElapsedTime,
		AverageHeartrate: a.AverageHR(),
		MaxHeartrate:     a.MaxHR(),
		SufferScore:      a.Effort(),
		HasHeartrate:     a.HasHeartrate,
	}
}
