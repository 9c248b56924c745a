package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/ledger"
	"endurance-coach/internal/store"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "endurance-coach",
	})
}

// handleForecast computes a forecast and stores it as the latest run
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	res, err := s.forecast.Forecast(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.forecast.CaptureSnapshot(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleClearSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.forecast.ClearSnapshot(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCloseDay accepts a date or "today"
func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	day, err := pathDate(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.forecast.CloseDay(r.Context(), day); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"closed": analysis.DayKey(day),
	})
}

// submissionResponse reports which fields a submission changed
type submissionResponse struct {
	Date      string   `json:"date"`
	Kind      string   `json:"kind"`
	Updated   []string `json:"updated"`
	Ignored   []string `json:"ignored,omitempty"`
	ClosedDay bool     `json:"closed_day"`
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	var sub ledger.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub.Kind = ledger.ParseKind(string(sub.Kind))

	applied, err := s.ledger.Submit(r.Context(), sub)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, submissionResponse{
		Date:      analysis.DayKey(applied.Record.Date),
		Kind:      string(sub.Kind),
		Updated:   applied.Updated,
		Ignored:   applied.Ignored,
		ClosedDay: applied.ClosesDay,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	day, err := pathDate(r)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	review, err := s.review.Review(r.Context(), day)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		*analysis.Review
		Significant bool `json:"significant"`
	}{review, review.Significant()})
}

func pathDate(r *http.Request) (time.Time, error) {
	raw := chi.URLParam(r, "date")
	if strings.EqualFold(raw, "today") {
		return analysis.Day(time.Now()), nil
	}
	return ledger.ParseDate(raw)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidValue),
		errors.Is(err, ledger.ErrNoDate),
		errors.Is(err, analysis.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrForecastNotFound),
		errors.Is(err, store.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrSnapshotLocked):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrDataGap):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure logs server-side failures and writes the mapped error
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("Request failed")
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
