package api

import (
	"net/http"

	"garagebook/internal/metrics"
)

// CreateBookingRequest is the body for POST /api/bookings.
type CreateBookingRequest struct {
	GarageID   int64  `json:"garage_id"`
	Date       string `json:"date"`      // YYYY-MM-DD
	TimeSlot   string `json:"time_slot"` // HH:MM
	CustomerID int64  `json:"customer_id"`
	VehicleID  int64  `json:"vehicle_id"`
}

// handleBookings creates, looks up or lists bookings.
// POST /api/bookings
// GET  /api/bookings?reference=...                      (single, by reference)
// GET  /api/bookings?garage_id=1&date=...&time_slot=... (single, active at slot)
// GET  /api/bookings?garage_id=1&from=...&to=...  or  ?customer_id=7
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBooking(w, r)
	case http.MethodGet:
		s.handleListBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.GarageID == 0 || req.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "garage_id and customer_id are required")
		return
	}

	b, err := s.reservations.Reserve(r.Context(), req.GarageID, req.Date, req.TimeSlot, req.CustomerID, req.VehicleID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	if reference := r.URL.Query().Get("reference"); reference != "" {
		b, err := s.db.GetBookingByReference(r.Context(), reference)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}

	if customerID, err := queryInt64(r, "customer_id"); err == nil {
		bookings, err := s.db.ListBookingsByCustomer(r.Context(), customerID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	}

	garageID, err := queryInt64(r, "garage_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "garage_id, customer_id or reference is required")
		return
	}

	// Slot occupancy lookup: who holds this slot right now.
	if date, slot := r.URL.Query().Get("date"), r.URL.Query().Get("time_slot"); date != "" && slot != "" {
		b, err := s.db.GetActiveBookingAt(r.Context(), garageID, date, slot)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	bookings, err := s.db.ListBookingsByDateRange(r.Context(), garageID, from, to)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// CancelBookingRequest is the body for POST /api/bookings/cancel.
type CancelBookingRequest struct {
	BookingID   int64 `json:"booking_id"`
	RequesterID int64 `json:"requester_id"`
	Operator    bool  `json:"operator"`
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_cancel")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CancelBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.reservations.Cancel(r.Context(), req.BookingID, req.RequesterID, req.Operator); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RescheduleBookingRequest is the body for POST /api/bookings/reschedule.
type RescheduleBookingRequest struct {
	BookingID   int64  `json:"booking_id"`
	RequesterID int64  `json:"requester_id"`
	Operator    bool   `json:"operator"`
	Date        string `json:"date"`
	TimeSlot    string `json:"time_slot"`
}

func (s *HTTPServer) handleRescheduleBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_reschedule")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req RescheduleBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.reservations.Reschedule(r.Context(), req.BookingID, req.RequesterID, req.Operator, req.Date, req.TimeSlot)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BookingStatusRequest is the body for POST /api/bookings/status.
type BookingStatusRequest struct {
	BookingID int64  `json:"booking_id"`
	Action    string `json:"action"` // confirm, start, complete, no_show
}

func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_status")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BookingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	switch req.Action {
	case "confirm":
		err = s.reservations.Confirm(r.Context(), req.BookingID)
	case "start":
		err = s.reservations.Start(r.Context(), req.BookingID)
	case "complete":
		err = s.reservations.Complete(r.Context(), req.BookingID)
	case "no_show":
		err = s.reservations.MarkNoShow(r.Context(), req.BookingID)
	default:
		writeError(w, http.StatusBadRequest, "unknown action; expected confirm, start, complete or no_show")
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	b, err := s.db.GetBooking(r.Context(), req.BookingID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
