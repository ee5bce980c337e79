package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/auth"
	"github.com/gokatarajesh/partyquiz/internal/auth/jwt"
	"github.com/gokatarajesh/partyquiz/internal/config"
	"github.com/gokatarajesh/partyquiz/internal/db/queries"
	"github.com/gokatarajesh/partyquiz/internal/db/repository"
	"github.com/gokatarajesh/partyquiz/internal/game"
	"github.com/gokatarajesh/partyquiz/internal/leaderboard"
	"github.com/gokatarajesh/partyquiz/internal/logging"
	"github.com/gokatarajesh/partyquiz/internal/question"
	"github.com/gokatarajesh/partyquiz/internal/question/external"
	"github.com/gokatarajesh/partyquiz/internal/server"
	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool   *pgxpool.Pool
	redis  *redis.Client
	http   *http.Server
	timers *game.Timers

	lbBroadcaster  *leaderboard.Broadcaster
	snapshotWorker *leaderboard.SnapshotWorker
	bgCancels      []context.CancelFunc
}

// New bootstraps the logger, optional Postgres and Redis, and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	return build(ctx, cfg, logging.New(cfg.Name, cfg.Env, cfg.LogLevel), prometheus.DefaultRegisterer)
}

func build(ctx context.Context, cfg *config.App, logger zerolog.Logger, reg prometheus.Registerer) (*Application, error) {
	logger.Info().Msg("starting application bootstrap")

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		bgCancels: make([]context.CancelFunc, 0, 2),
	}

	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
	} else {
		logger.Warn().Msg("PG_HOST not set; question bank kept in memory")
	}

	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; hall of fame and session tracking disabled")
	}

	clock := clockwork.NewRealClock()

	// Question bank
	questionSvc, err := a.buildQuestionService(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	// Hall of fame
	var (
		recorder       game.ResultRecorder
		lbHTTPHandler  *leaderboard.HTTPHandler
		snapshots      leaderboard.SnapshotStore
		leaderboardSvc *leaderboard.Service
	)
	wsHub := ws.NewHub(logger)
	if a.redis != nil && cfg.Leaderboard.Enabled {
		leaderboardSvc = leaderboard.NewService(a.redis, logger, leaderboard.ServiceOptions{
			PubSubChannel:    cfg.Leaderboard.PubSubChannel,
			SnapshotTopLimit: cfg.Leaderboard.SnapshotTopN,
			Clock:            clock,
		})
		recorder = leaderboardSvc
		if a.pool != nil {
			snapshots = repository.NewSnapshotRepository(queries.New(a.pool))
		}
		lbHTTPHandler = leaderboard.NewHTTPHandler(leaderboardSvc, snapshots, logger)
		a.lbBroadcaster = leaderboard.NewBroadcaster(a.redis, wsHub, cfg.Leaderboard.PubSubChannel, ws.TopicDisplays, logger)
		if snapshots != nil && cfg.Leaderboard.SnapshotInterval > 0 {
			a.snapshotWorker = leaderboard.NewSnapshotWorker(
				leaderboardSvc,
				snapshots,
				cfg.Leaderboard.SnapshotInterval,
				cfg.Leaderboard.SnapshotTopN,
				logger,
			)
		}
	}

	// Sessions
	var tracker game.Tracker
	if a.redis != nil {
		tracker = game.NewRedisTracker(a.redis, cfg.Redis.Prefix, cfg.Game.SessionTTL)
	}
	store := game.NewStore(tracker, logger)
	gameSvc := game.NewService(store, questionSvc, recorder, game.NewMetrics(reg), game.ServiceOptions{
		DefaultTimeLimit: cfg.Game.DefaultTimeLimit,
		GraceWindow:      cfg.Game.GraceWindow,
		MaxNameLength:    cfg.Game.MaxNameLength,
		Clock:            clock,
	}, logger)

	a.timers = game.NewTimers(clock, logger)
	gameWSHandler := game.NewHandler(gameSvc, wsHub, a.timers, server.NewUpgrader(cfg.CORS.AllowedOrigins), game.HandlerOptions{
		ContextDuration:   cfg.Game.ContextDuration,
		DoublePointsIntro: cfg.Game.DoublePointsIntro,
		RevealDelay:       cfg.Game.RevealDelay,
		QuestionSlack:     cfg.Game.QuestionSlack,
	}, logger)

	// Admin gate
	authSvc, err := auth.NewService(auth.ServiceOptions{
		AdminPassword: cfg.Security.AdminPassword,
		TokenConfig: jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			TTL:    cfg.Security.TokenTTL,
			Issuer: cfg.Name,
		},
	}, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.http = server.NewHTTPServer(cfg, logger, server.Dependencies{Pool: a.pool, Redis: a.redis}, server.Handlers{
		Game:        game.NewHTTPHandlers(gameSvc, cfg.PublicURL, logger),
		GameWS:      gameWSHandler.HandleWebSocket,
		Questions:   question.NewHTTPHandler(questionSvc, logger),
		Leaderboard: lbHTTPHandler,
		Auth:        auth.NewHTTPHandlers(authSvc, logger),
		AuthSvc:     authSvc,
	})

	return a, nil
}

func (a *Application) buildQuestionService(ctx context.Context) (*question.Service, error) {
	seed := question.Samples()
	if path := a.cfg.Questions.SeedFile; path != "" {
		loaded, err := question.LoadSeed(path)
		if err != nil {
			return nil, err
		}
		seed = loaded
		a.logger.Info().Str("path", path).Int("count", len(seed)).Msg("question seed loaded")
	}

	var repo question.Repository
	if a.pool != nil {
		pgRepo := repository.NewQuestionRepository(queries.New(a.pool))
		existing, err := pgRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			if err := pgRepo.Create(ctx, seed...); err != nil {
				return nil, fmt.Errorf("seed question bank: %w", err)
			}
			a.logger.Info().Int("count", len(seed)).Msg("empty question bank seeded")
		}
		repo = pgRepo
	} else {
		repo = question.NewMemoryRepository(seed)
	}

	var cache question.BankCache
	if a.redis != nil {
		cache = question.NewCache(a.redis, a.cfg.Redis.Prefix, a.cfg.Questions.CacheTTL)
	}

	httpClient := &http.Client{Timeout: a.cfg.Questions.ExternalTimeout}
	return question.NewService(
		repo,
		cache,
		external.NewOpenTDBClient(a.cfg.Questions.OpenTDBURL, httpClient),
		external.NewTriviaAPIClient(a.cfg.Questions.TriviaAPIURL, a.cfg.Questions.TriviaAPIKey, httpClient),
		a.logger,
	), nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		a.close()
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.close()
	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) close() {
	for _, cancel := range a.bgCancels {
		cancel()
	}
	if a.timers != nil {
		a.timers.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}

	if a.snapshotWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.snapshotWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard snapshot worker stopped")
			}
		}()
	}
}
