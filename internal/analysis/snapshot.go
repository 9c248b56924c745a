package analysis

import (
	"context"
	"time"
)

// SnapshotKey is the fixed identifier of the single snapshot slot.
const SnapshotKey = "forecast_seed"

// Snapshot pins the forecast seed for one calendar day so that repeated
// forecasts on that day start from the same state.
type Snapshot struct {
	ID              string    `json:"id" msgpack:"id"`
	CaptureDate     time.Time `json:"capture_date" msgpack:"capture_date"`
	SeedDate        time.Time `json:"seed_date" msgpack:"seed_date"`
	Seed            State     `json:"seed" msgpack:"seed"`
	HorizonIsClosed bool      `json:"horizon_is_closed" msgpack:"horizon_is_closed"`
	CreatedAt       time.Time `json:"created_at" msgpack:"created_at"`
}

// ValidOn reports whether the snapshot was captured on the same calendar date as now.
// CaptureDate is a UTC day boundary, so it is compared in UTC whatever zone a decoder
// handed back.
func (s Snapshot) ValidOn(now time.Time) bool {
	return DayKey(s.CaptureDate.UTC()) == DayKey(Day(now))
}

// Validate rejects snapshots whose content cannot seed a forecast.
func (s Snapshot) Validate() error {
	if s.CaptureDate.IsZero() {
		return missing("capture_date")
	}
	if !isFinite(s.Seed.Acute) || s.Seed.Acute < 0 {
		return invalid("seed.atl", s.Seed.Acute)
	}
	if !isFinite(s.Seed.Chronic) || s.Seed.Chronic < 0 {
		return invalid("seed.ctl", s.Seed.Chronic)
	}
	for _, v := range s.Seed.History {
		if !isFinite(v) || v < 0 {
			return invalid("seed.history", v)
		}
	}
	return nil
}

// SnapshotRepository stores the single snapshot slot.
// Get returns nil, nil when the slot is empty.
type SnapshotRepository interface {
	Get(ctx context.Context) (*Snapshot, error)
	Put(ctx context.Context, s Snapshot) error
	Clear(ctx context.Context) error
}
