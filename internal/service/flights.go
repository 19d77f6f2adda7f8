package service

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/scrapers/dronelogbook/paginate"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

const defaultHistoryDays = 30

// firstParam returns the first non-empty query value among names.
func firstParam(query url.Values, names ...string) string {
	for _, name := range names {
		if v := query.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// intParam parses an optional integer query value, "" gives fallback.
func intParam(value string, fallback int) (int, bool) {
	if value == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

type flightsResponse struct {
	Success bool `json:"success"`
	dronelogbook.FlightsResult
}

func (s *Service) flights(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(firstParam(r.URL.Query(), "range", "days", "period"), 0)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "range must be one of 0, 7, 30 or 90")
		return
	}
	rng, err := parse.ParseRange(days)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "range must be one of 0, 7, 30 or 90")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	result, err := sessionFrom(r.Context()).client.Flights(ctx, rng)
	if err != nil {
		s.writeError(w, report_service_flights, err, "No flight data found")
		return
	}
	writeJSON(w, http.StatusOK, flightsResponse{Success: true, FlightsResult: result})
}

type historyResponse struct {
	Success bool `json:"success"`
	paginate.Result
}

func (s *Service) flightHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	days, ok := intParam(query.Get("days"), defaultHistoryDays)
	if !ok || days < 0 {
		writeMessage(w, http.StatusBadRequest, "days must be a non-negative number")
		return
	}
	maxPages, ok := intParam(query.Get("maxPages"), 0)
	if !ok || maxPages < 0 {
		writeMessage(w, http.StatusBadRequest, "maxPages must be a non-negative number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	result := sessionFrom(r.Context()).client.FlightHistory(ctx, days, maxPages)
	// a run never fails, except that an expired session has to reach the
	// frontend so it can log in again
	if len(result.Flights) == 0 && errors.Is(result.Err, dronelogbook.ErrNotAuthenticated) {
		s.writeError(w, report_service_flights, result.Err, "")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Result: result})
}

type statisticsResponse struct {
	Success bool `json:"success"`
	dronelogbook.Statistics
}

func (s *Service) statistics(w http.ResponseWriter, r *http.Request) {
	periodDays, ok := intParam(firstParam(r.URL.Query(), "periodDays", "period"), 7)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "periodDays must be a number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	stats, err := sessionFrom(r.Context()).client.Statistics(ctx, periodDays)
	if err != nil {
		s.writeError(w, report_service_flights, err, "No statistics endpoint found")
		return
	}
	writeJSON(w, http.StatusOK, statisticsResponse{Success: true, Statistics: stats})
}
