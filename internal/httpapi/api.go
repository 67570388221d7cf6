package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tenauth.org/internal/identity"
	"tenauth.org/internal/obs"
)

// ReadyProbe reports whether the service can take traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the API dependencies.
type Config struct {
	Users     *identity.UserService
	Companies *identity.CompanyService
	Tokens    *identity.TokenIssuer
	Ready     ReadyProbe
	Version   string

	RateLimitBurst     int
	RateLimitPerSecond int
	MaxBodyBytes       int64
}

// API is the HTTP layer. It owns transport concerns only: routing,
// authentication, serialization and the mapping from service errors to
// status codes.
type API struct {
	users     *identity.UserService
	companies *identity.CompanyService
	tokens    *identity.TokenIssuer
	ready     ReadyProbe
	version   string
	router    chi.Router
}

func New(cfg Config) *API {
	a := &API{
		users:     cfg.Users,
		companies: cfg.Companies,
		tokens:    cfg.Tokens,
		ready:     cfg.Ready,
		version:   cfg.Version,
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, maxBody) })
	if cfg.RateLimitPerSecond > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = cfg.RateLimitPerSecond
		}
		r.Use(func(next http.Handler) http.Handler {
			return RateLimit(next, burst, cfg.RateLimitPerSecond)
		})
	}

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/v1/info", a.handleInfo)
	r.Handle("/metrics", obs.Handler())

	r.Post("/v1/auth/token", a.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(a.withAuth)

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/", a.handleListUsers)
			r.Post("/", a.handleCreateUser)
			r.Get("/me", a.handleMe)
			r.Get("/{id}", a.handleGetUser)
			r.Put("/{id}", a.handleEditUser)
			r.Post("/{id}/disable", a.handleDisableUser)
			r.Delete("/{id}", a.handleDeleteUser)
		})

		r.Route("/v1/companies", func(r chi.Router) {
			r.Get("/", a.handleListCompanies)
			r.Post("/", a.handleProvisionCompany)
			r.Get("/{id}", a.handleGetCompany)
			r.Put("/{id}", a.handleUpdateCompany)
			r.Delete("/{id}", a.handleDeleteCompany)
		})
	})

	a.router = r
	return a
}

// Handler returns the server handler wrapped with metrics.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tenauth-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tenauth-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
