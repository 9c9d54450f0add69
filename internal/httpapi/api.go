package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"posturewatch.org/internal/auth"
	"posturewatch.org/internal/obs"
	"posturewatch.org/internal/posture"
)

// ReadyProbe reports whether the service can serve traffic (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth    *auth.Manager
	posture *posture.Service

	rateBurst    int
	ratePerSec   int
	maxBodyBytes int64
}

// APIOption adjusts API construction.
type APIOption func(*API)

// WithRateLimit overrides the per-client request rate limit.
func WithRateLimit(perSec, burst int) APIOption {
	return func(a *API) {
		if perSec > 0 {
			a.ratePerSec = perSec
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithMaxBodyBytes overrides the request body size cap.
func WithMaxBodyBytes(n int64) APIOption {
	return func(a *API) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

func New(rp ReadyProbe, version string, authMgr *auth.Manager, postureSvc *posture.Service, opts ...APIOption) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		auth:         authMgr,
		posture:      postureSvc,
		rateBurst:    40,
		ratePerSec:   20,
		maxBodyBytes: 1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/auth/login", a.handleLogin)
	a.mux.HandleFunc("/auth/me", a.handleMe)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)

	// posture
	a.mux.HandleFunc("/pose/baseline", a.handleBaseline)
	a.mux.HandleFunc("/pose/sample", a.handleSample)
	a.mux.HandleFunc("/pose/stats", a.handleStats)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = a.withAuth(h)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
