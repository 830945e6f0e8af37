// Package httpapi exposes the listing and auth services over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/obs"
)

// ReadyProbe reports whether backing storage is reachable. A nil probe is always ready.
type ReadyProbe func(ctx context.Context) error

// Options wires the API.
type Options struct {
	Auth    *auth.Service
	Listing *listing.Service
	Ready   ReadyProbe
	Version string

	CORSOrigins     []string
	RateLimitBurst  int
	RateLimitPerSec float64
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For is believed.
	TrustedProxies []string
	MaxBodyBytes   int64
}

// API is the HTTP layer.
type API struct {
	auth     *auth.Service
	tokens   *auth.TokenService
	listing  *listing.Service
	ready    ReadyProbe
	version  string
	opts     Options
	clientIP *ClientIP
	now      func() time.Time
}

func New(opts Options) (*API, error) {
	if opts.Auth == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if opts.Listing == nil {
		return nil, errors.New("httpapi: listing service is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	clientIP, err := NewClientIP(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	return &API{
		auth:     opts.Auth,
		tokens:   opts.Auth.Tokens(),
		listing:  opts.Listing,
		ready:    opts.Ready,
		version:  opts.Version,
		opts:     opts,
		clientIP: clientIP,
		now:      time.Now,
	}, nil
}

// Handler builds the router with the ambient middleware chain.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestID,
		Recover,
		Logging,
		obs.Instrument,
		SecurityHeaders,
		cors.Handler(cors.Options{
			AllowedOrigins: a.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         600,
		}),
		func(next http.Handler) http.Handler {
			return RateLimit(next, a.opts.RateLimitBurst, a.opts.RateLimitPerSec, a.clientIP.From)
		},
		func(next http.Handler) http.Handler {
			return MaxBodyBytes(next, a.opts.MaxBodyBytes)
		},
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", a.Health)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.Register)
			r.Post("/login", a.Login)
			r.With(a.protect, a.authorize(auth.ActionViewSelf)).Get("/me", a.Me)
		})
		r.With(a.protect, a.authorize(auth.ActionAssignRole)).Put("/users/{id}/role", a.AssignRole)

		r.Route("/mosques", func(r chi.Router) {
			r.Get("/", a.ListMosques)
			r.Get("/{id}", a.GetMosque)
			r.With(a.protect, a.authorize(auth.ActionCreateMosque)).Post("/", a.CreateMosque)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", a.ListEvents)
			r.Get("/{id}", a.GetEvent)
			r.With(a.protect, a.authorize(auth.ActionCreateEvent)).Post("/", a.CreateEvent)
			r.With(a.protect, a.authorize(auth.ActionUpdateEvent)).Put("/{id}", a.UpdateEvent)
			r.With(a.protect, a.authorize(auth.ActionDeleteEvent)).Delete("/{id}", a.DeleteEvent)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(a.protect, a.authorize(auth.ActionCreateBooking)).Post("/", a.CreateBooking)
			r.With(a.protect, a.authorize(auth.ActionListBookings)).Get("/mine", a.ListMyBookings)
			r.With(a.protect, a.authorize(auth.ActionCancelBooking)).Delete("/{id}", a.CancelBooking)
		})
	})
	return r
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is up and running!"))
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			obs.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
			return
		}
	}
	if err := a.tokens.Ready(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "reason": "JWT secret is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "version": a.version})
}
