package api

import (
	"net/http"

	"garagebook/internal/blocks"
	"garagebook/internal/metrics"
)

// BlockRequest is the body for POST/DELETE /api/blocks (single slot).
type BlockRequest struct {
	GarageID int64  `json:"garage_id"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Reason   string `json:"reason,omitempty"`
}

// handleBlocks manages single-slot blocks.
// GET    /api/blocks?garage_id=1&date=YYYY-MM-DD
// POST   /api/blocks   (block one slot)
// DELETE /api/blocks   (unblock one slot)
func (s *HTTPServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("blocks")
	switch r.Method {
	case http.MethodGet:
		s.handleListBlocks(w, r)
	case http.MethodPost:
		s.handleBlockSingle(w, r)
	case http.MethodDelete:
		s.handleUnblockSingle(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	garageID, err := queryInt64(r, "garage_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "garage_id is required")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	blockRows, err := s.db.ListBlocks(r.Context(), garageID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blockRows})
}

func (s *HTTPServer) handleBlockSingle(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.blocks.BlockSingle(r.Context(), req.GarageID, req.Date, req.TimeSlot, req.Reason); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleUnblockSingle(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.blocks.UnblockSingle(r.Context(), req.GarageID, req.Date, req.TimeSlot); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BulkBlockRequest is the body for POST /api/blocks/bulk.
type BulkBlockRequest struct {
	GarageID int64    `json:"garage_id"`
	FromDate string   `json:"from_date"`
	ToDate   string   `json:"to_date"`
	Weekdays []int    `json:"weekdays,omitempty"`
	Slots    []string `json:"slots,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Unblock  bool     `json:"unblock,omitempty"`
}

// handleBulkBlocks blocks or unblocks a date range, optionally filtered by
// weekday or explicit slot list. Partial failures come back as rejections.
func (s *HTTPServer) handleBulkBlocks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("blocks_bulk")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BulkBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rangeReq := blocks.RangeRequest{
		GarageID: req.GarageID,
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Weekdays: req.Weekdays,
		Slots:    req.Slots,
		Reason:   req.Reason,
	}

	var result *blocks.Result
	var err error
	if req.Unblock {
		result, err = s.blocks.UnblockRange(r.Context(), rangeReq)
	} else {
		result, err = s.blocks.BlockRange(r.Context(), rangeReq)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QuotaResponse reports a garage's remaining bookable capacity.
type QuotaResponse struct {
	GarageID  int64 `json:"garage_id"`
	Remaining int64 `json:"remaining"`
}

// handleQuota returns the garage's remaining confirmation quota.
// GET /api/quota?garage_id=1
func (s *HTTPServer) handleQuota(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quota")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.quota == nil {
		writeError(w, http.StatusNotFound, "quota is not enabled")
		return
	}

	garageID, err := queryInt64(r, "garage_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "garage_id is required")
		return
	}

	remaining, err := s.quota.Remaining(r.Context(), garageID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QuotaResponse{GarageID: garageID, Remaining: remaining})
}

// DateOverrideRequest is the body for POST /api/overrides.
type DateOverrideRequest struct {
	GarageID    int64  `json:"garage_id"`
	Date        string `json:"date"`
	IsAvailable bool   `json:"is_available"`
	Reason      string `json:"reason,omitempty"`
}

// handleDateOverride sets or clears a holiday override for one date.
// POST   /api/overrides  (set open or closed)
// DELETE /api/overrides  (clear; weekday schedule governs again)
func (s *HTTPServer) handleDateOverride(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("overrides")
	switch r.Method {
	case http.MethodPost:
		s.handleSetDateOverride(w, r)
	case http.MethodDelete:
		s.handleClearDateOverride(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSetDateOverride(w http.ResponseWriter, r *http.Request) {
	var req DateOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.blocks.SetDateOverride(r.Context(), req.GarageID, req.Date, req.IsAvailable, req.Reason); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ClearDateOverrideRequest is the body for DELETE /api/overrides.
type ClearDateOverrideRequest struct {
	GarageID int64  `json:"garage_id"`
	Date     string `json:"date"`
}

func (s *HTTPServer) handleClearDateOverride(w http.ResponseWriter, r *http.Request) {
	var req ClearDateOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.blocks.ClearDateOverride(r.Context(), req.GarageID, req.Date); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
