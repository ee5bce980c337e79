package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/auth"
	"github.com/gokatarajesh/partyquiz/internal/config"
	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/leaderboard"
	"github.com/gokatarajesh/partyquiz/internal/logging"
	"github.com/gokatarajesh/partyquiz/internal/question"
)

// NewUpgrader builds the WebSocket upgrader. Requests without an Origin header,
// same-host requests and the configured origins are accepted; "*" accepts all.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Handlers groups everything the router mounts. Leaderboard may be nil when
// Redis is not configured.
type Handlers struct {
	Game        *game.HTTPHandlers
	GameWS      http.HandlerFunc
	Questions   *question.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	Auth        *auth.HTTPHandlers
	AuthSvc     *auth.Service
}

// Dependencies are pinged by /v1/ping; either may be nil.
type Dependencies struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// NewHTTPServer wires every route behind the CORS middleware.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, logger, deps, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the handler tree.
func NewRouter(cfg *config.App, logger zerolog.Logger, deps Dependencies, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDependencies(ctx, deps); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h.GameWS != nil {
		mux.HandleFunc("GET /ws", h.GameWS)
	}

	if h.Game != nil {
		mux.HandleFunc("GET /v1/time", h.Game.ServerTime)
		mux.HandleFunc("GET /v1/sessions", h.Game.ListSessions)
		mux.HandleFunc("GET /v1/sessions/{id}", h.Game.GetSession)
		mux.HandleFunc("DELETE /v1/sessions/{id}", h.Game.DeleteSession)
		mux.HandleFunc("GET /v1/sessions/{id}/leaderboard", h.Game.Leaderboard)
		mux.HandleFunc("GET /v1/sessions/{id}/qr", h.Game.QRCode)
		mux.HandleFunc("GET /v1/codes/{code}", h.Game.ResolveCode)
	}

	var admin func(http.Handler) http.Handler
	if h.AuthSvc != nil {
		admin = auth.RequireAdmin(h.AuthSvc, logger)
	}

	if h.Auth != nil && admin != nil {
		mux.HandleFunc("POST /v1/auth/login", h.Auth.Login)
		mux.Handle("GET /v1/auth/verify", admin(http.HandlerFunc(h.Auth.Verify)))
	}

	if h.Questions != nil && admin != nil {
		guard := func(fn http.HandlerFunc) http.Handler { return admin(fn) }
		mux.Handle("GET /v1/questions", guard(h.Questions.List))
		mux.Handle("POST /v1/questions", guard(h.Questions.Create))
		mux.Handle("PUT /v1/questions/{id}", guard(h.Questions.Update))
		mux.Handle("DELETE /v1/questions/{id}", guard(h.Questions.Delete))
		mux.Handle("POST /v1/questions/import", guard(h.Questions.Import))
		mux.Handle("POST /v1/questions/import/csv", guard(h.Questions.ImportCSV))
		mux.Handle("POST /v1/questions/import/{provider}", guard(h.Questions.ImportExternal))
		mux.Handle("GET /v1/questions/export", guard(h.Questions.Export))
	}

	if h.Leaderboard != nil {
		mux.HandleFunc("GET /v1/leaderboards/{window}", h.Leaderboard.HandleGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})
	return c.Handler(logging.Middleware(logger)(mux))
}

func pingDependencies(ctx context.Context, deps Dependencies) error {
	if deps.Pool != nil {
		if err := deps.Pool.Ping(ctx); err != nil {
			return err
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
