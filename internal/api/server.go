// Package api exposes the engine's operations over HTTP for the UI and admin
// layers. Availability queries return lists (possibly empty) and never raise
// conflicts; only mutating commands surface the error taxonomy.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"garagebook/internal/blocks"
	"garagebook/internal/booking"
	"garagebook/internal/database"
	"garagebook/internal/models"
)

// SlotsProvider answers availability queries. Satisfied by both the resolver
// and its cache wrapper.
type SlotsProvider interface {
	AvailableSlots(ctx context.Context, garageID int64, date string) ([]string, error)
}

// QuotaReader reports a garage's remaining bookable capacity, so operators can
// see exhaustion coming instead of discovering it on a failed confirmation.
type QuotaReader interface {
	Remaining(ctx context.Context, garageID int64) (int64, error)
}

// HTTPServer serves the booking engine API.
type HTTPServer struct {
	server       *http.Server
	db           *database.DB
	slots        SlotsProvider
	reservations *booking.Manager
	blocks       *blocks.Manager
	quota        QuotaReader
	apiKey       string
	limiter      *rate.Limiter
	logger       *zerolog.Logger
}

// Options configures the HTTP server.
type Options struct {
	Port      int
	APIKey    string
	RateLimit float64 // requests per second; 0 disables limiting
	RateBurst int
}

// NewHTTPServer wires handlers and middleware. quota may be nil when no quota
// backend is configured.
func NewHTTPServer(
	opts Options,
	db *database.DB,
	slotsProvider SlotsProvider,
	reservations *booking.Manager,
	blockManager *blocks.Manager,
	quota QuotaReader,
	logger *zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		db:           db,
		slots:        slotsProvider,
		reservations: reservations,
		blocks:       blockManager,
		quota:        quota,
		apiKey:       opts.APIKey,
		logger:       logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.withAuth(s.handleAvailability))
	mux.HandleFunc("/api/schedule", s.withAuth(s.handleSchedule))
	mux.HandleFunc("/api/bookings", s.withAuth(s.handleBookings))
	mux.HandleFunc("/api/bookings/cancel", s.withAuth(s.handleCancelBooking))
	mux.HandleFunc("/api/bookings/reschedule", s.withAuth(s.handleRescheduleBooking))
	mux.HandleFunc("/api/bookings/status", s.withAuth(s.handleBookingStatus))
	mux.HandleFunc("/api/blocks", s.withAuth(s.handleBlocks))
	mux.HandleFunc("/api/blocks/bulk", s.withAuth(s.handleBulkBlocks))
	mux.HandleFunc("/api/overrides", s.withAuth(s.handleDateOverride))
	mux.HandleFunc("/api/quota", s.withAuth(s.handleQuota))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Unknown storage
// failures stay generic internal errors and are never reported as success;
// ambiguity on a reservation commit fails closed.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case models.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrPastSlot):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrQuotaExhausted):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, models.ErrNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
