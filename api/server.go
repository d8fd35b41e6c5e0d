// Package api exposes a Depot over HTTP.
//
// Every /v1 route is scoped to the owner named in the X-Owner-Key header.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/depot"
)

// OwnerHeader carries the owner key a request is scoped to.
const OwnerHeader = "X-Owner-Key"

// Server is the Depot HTTP API server.
type Server struct {
	depot   *depot.Depot
	logger  *slog.Logger
	loc     *time.Location
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLocation sets the zone date-only delivery dates are read in. It should
// match the engine's location.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a new API server.
func NewServer(d *depot.Depot, opts ...Option) *Server {
	s := &Server{depot: d, logger: slog.Default(), loc: time.Local}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireOwner)

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", s.handleRegisterCustomer)
			r.Get("/", s.handleListCustomers)
			r.Get("/{customerID}", s.handleGetCustomer)
			r.Put("/{customerID}", s.handleUpdateCustomer)
			r.Delete("/{customerID}", s.handleDeleteCustomer)
			r.Post("/{customerID}/history/repair", s.handleRepairHistory)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", s.handleCreateBooking)
			r.Get("/", s.handleListBookings)
			r.Get("/{bookingID}", s.handleGetBooking)
			r.Patch("/{bookingID}", s.handleUpdateBooking)
			r.Delete("/{bookingID}", s.handleDeleteBooking)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", s.handleInventoryCounts)
			r.Post("/cylinders/add", s.handleAddCylinders)
			r.Post("/cylinders/remove", s.handleRemoveCylinders)
			r.Post("/cylinders/transition", s.handleTransitionCylinders)
		})

		r.Route("/stoves", func(r chi.Router) {
			r.Post("/", s.handleAddStoves)
			r.Get("/", s.handleListStoves)
			r.Post("/lend", s.handleLendStove)
			r.Post("/{stoveID}/return", s.handleReturnStove)
			r.Delete("/{stoveID}", s.handleRemoveStove)
		})

		r.Get("/lending-records", s.handleListLendingRecords)
		r.Post("/retention/sweep", s.handleRetentionSweep)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.depot.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireOwner scopes the request context to the X-Owner-Key header.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			writeError(w, depot.ErrMissingOwner)
			return
		}
		next.ServeHTTP(w, r.WithContext(depot.WithOwner(r.Context(), owner)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

// decode reads a JSON body, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &depot.ValidationError{Field: "body", Message: err.Error(), Err: depot.ErrInvalidInput}
	}
	return nil
}
