package httpapi

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/account"
	"chat-relay/domain/chat"
	"chat-relay/pipeline"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultLoginRateLimit = 10

type Dependencies struct {
	Log       *slog.Logger
	Pipeline  *pipeline.Pipeline
	Issuer    *auth.Issuer
	Registry  contract.IRegistry
	Websocket http.Handler
	// LoginRateLimit is the number of login attempts allowed per IP and per minute.
	LoginRateLimit int
}

type api struct {
	log      *slog.Logger
	pipeline *pipeline.Pipeline
	registry contract.IRegistry
}

// NewRouter mounts every route. It fails when the pipeline misses a handler
// for one of the requests the API sends.
func NewRouter(deps Dependencies) (http.Handler, error) {
	err := deps.Pipeline.Require(
		account.RegisterAccount{}, account.Login{}, account.RefreshSession{}, account.Logout{},
		chat.CreateChat{}, chat.AddMember{}, chat.CreateMessage{}, chat.ListMessages{},
	)
	if err != nil {
		return nil, fmt.Errorf("http api: %w", err)
	}
	limit := deps.LoginRateLimit
	if limit <= 0 {
		limit = defaultLoginRateLimit
	}

	a := &api{log: deps.Log, pipeline: deps.Pipeline, registry: deps.Registry}
	requireAuth := auth.Middleware(deps.Log, deps.Issuer)

	// 1. Global middlewares
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// 2. Operational endpoints
	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())
	if deps.Websocket != nil {
		r.With(requireAuth).Handle("/ws", deps.Websocket)
	}

	// 3. Public API, then routes behind a valid access token
	r.Route("/api", func(r chi.Router) {
		r.Post("/accounts", a.registerAccount)
		r.With(loginRateLimit(limit)).Post("/sessions", a.login)
		r.Post("/sessions/refresh", a.refreshSession)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Delete("/sessions", a.logout)
			r.Post("/chats", a.createChat)
			r.Post("/chats/{chatID}/members", a.addMember)
			r.Post("/chats/{chatID}/messages", a.createMessage)
			r.Get("/chats/{chatID}/messages", a.listMessages)
		})
	})
	return r, nil
}

// loginRateLimit throttles login attempts per client IP.
func loginRateLimit(limit int) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
		}),
	)
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if a.registry != nil {
		body["connections"] = a.registry.Count()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
