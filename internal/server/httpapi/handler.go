// Package httpapi exposes the account and session operations over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

const healthCheckTimeout = 2 * time.Second

// Directory is the subset of the user directory the API drives.
type Directory interface {
	Authenticate(ctx context.Context, identifier, password string, method users.AuthMethod) (*users.AuthResult, error)
	New(ctx context.Context, in users.NewUser, password string) (*users.AddResult, error)
	Get(ctx context.Context, l users.Lookup) (*models.User, error)
	GetAll(ctx context.Context, role string) ([]models.PublicUser, error)
	Update(ctx context.Context, in users.UpdateUser) (*users.UpdateResult, error)
	Delete(ctx context.Context, l users.Lookup) (*users.DeleteResult, error)
	SendAskResetPassword(ctx context.Context, email string) error
	SendPasswordByEmail(ctx context.Context, email, password string) error
	ResetPassword(ctx context.Context, token, password string) (*users.UpdateResult, error)
	IsAdmin(ctx context.Context, accessToken string) (bool, error)
}

type TokenIssuer interface {
	GenerateToken(ctx context.Context, user *models.User) (*auth.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenSet, *models.User, error)
}

type SessionValidator interface {
	Validate(ctx context.Context, accessToken, xsrfToken string) (*models.User, *auth.Claims, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type EventRecorder interface {
	Record(ctx context.Context, eventType, message string)
}

type Options struct {
	CORSOrigins []string
	// Registry receives the HTTP collectors and backs /metrics. A fresh
	// registry is used when nil.
	Registry *prometheus.Registry
	Events   EventRecorder
}

// Handler routes the REST API, the session WebSocket, health and metrics.
type Handler struct {
	mux      *http.ServeMux
	dir      Directory
	tokens   TokenIssuer
	sessions SessionValidator
	health   Pinger
	events   EventRecorder
	log      logging.Logger
	origins  map[string]bool
	anyOrig  bool
	upgrader websocket.Upgrader
	metrics  *metrics
}

func NewHandler(dir Directory, tokens TokenIssuer, sessions SessionValidator, health Pinger, log logging.Logger, opts Options) *Handler {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	h := &Handler{
		mux:      http.NewServeMux(),
		dir:      dir,
		tokens:   tokens,
		sessions: sessions,
		health:   health,
		events:   opts.Events,
		log:      log.With("module", "httpapi"),
		origins:  make(map[string]bool, len(opts.CORSOrigins)),
		metrics:  newMetrics(reg),
	}
	for _, o := range opts.CORSOrigins {
		if o == "*" {
			h.anyOrig = true
		}
		h.origins[o] = true
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}

	h.routes(reg)
	return h
}

func (h *Handler) routes(reg *prometheus.Registry) {
	h.route("POST /api/users/signIn", h.signIn)
	h.route("GET /api/users/refreshToken", h.refreshToken)
	h.route("GET /api/users/getAuth", h.requireSession(h.getAuth))
	h.route("POST /api/users/askResetPassword", h.askResetPassword)
	h.route("PUT /api/users/resetPassword", h.resetPassword)

	h.route("POST /api/users", h.requireAdmin(h.createUser))
	h.route("GET /api/users", h.requireAdmin(h.listUsers))
	h.route("GET /api/users/{id}", h.requireAdmin(h.getUser))
	h.route("PUT /api/users/{id}", h.requireSession(h.updateUser))
	h.route("DELETE /api/users/{id}", h.requireAdmin(h.deleteUser))

	h.route("GET /api/ws", h.requireSession(h.sessionSocket))
	h.route("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func (h *Handler) route(pattern string, fn http.HandlerFunc) {
	h.mux.Handle(pattern, h.instrument(pattern, fn))
}

// ServeHTTP applies CORS before routing.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.cors(h.mux).ServeHTTP(w, r)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.log.Warn(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
