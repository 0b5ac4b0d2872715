package api

import (
	"net/http"
	"strconv"
	"time"

	"garagebook/internal/metrics"
	"garagebook/internal/models"
)

// AvailabilityResponse lists the bookable slot start times for one date.
type AvailabilityResponse struct {
	GarageID int64    `json:"garage_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

// handleAvailability returns bookable slots for a garage and date.
// GET /api/availability?garage_id=1&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	garageID, err := queryInt64(r, "garage_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "garage_id is required")
		return
	}
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(models.DateFormat, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	available, err := s.slots.AvailableSlots(r.Context(), garageID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if available == nil {
		available = []string{}
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		GarageID: garageID,
		Date:     date,
		Slots:    available,
	})
}

// ScheduleResponse carries a garage's weekly schedule and exceptions in range.
type ScheduleResponse struct {
	GarageID   int64                      `json:"garage_id"`
	Weekly     []models.WeeklySchedule    `json:"weekly"`
	Exceptions []models.ScheduleException `json:"exceptions,omitempty"`
}

// handleSchedule reads or upserts the weekly schedule.
// GET  /api/schedule?garage_id=1&from=YYYY-MM-DD&to=YYYY-MM-DD
// POST /api/schedule  (upsert one weekday row)
func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule")
	switch r.Method {
	case http.MethodGet:
		s.handleGetSchedule(w, r)
	case http.MethodPost:
		s.handleUpsertSchedule(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	garageID, err := queryInt64(r, "garage_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "garage_id is required")
		return
	}

	weekly, err := s.db.ListWeeklySchedules(r.Context(), garageID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := ScheduleResponse{GarageID: garageID, Weekly: weekly}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from != "" && to != "" {
		exceptions, err := s.db.ListScheduleExceptions(r.Context(), garageID, from, to)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		resp.Exceptions = exceptions
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpsertScheduleRequest is the body for POST /api/schedule.
type UpsertScheduleRequest struct {
	GarageID     int64  `json:"garage_id"`
	DayOfWeek    int    `json:"day_of_week"`
	IsOpen       bool   `json:"is_open"`
	OpenTime     string `json:"open_time"`
	CloseTime    string `json:"close_time"`
	SlotDuration int    `json:"slot_duration"`
}

func (s *HTTPServer) handleUpsertSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpsertScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.db.UpsertWeeklySchedule(r.Context(), &models.WeeklySchedule{
		GarageID:     req.GarageID,
		DayOfWeek:    req.DayOfWeek,
		IsOpen:       req.IsOpen,
		OpenTime:     req.OpenTime,
		CloseTime:    req.CloseTime,
		SlotDuration: req.SlotDuration,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// A weekday change touches every future occurrence of that weekday; the
	// cache is not enumerable by weekday, so stale entries age out via TTL.
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt64(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
}
