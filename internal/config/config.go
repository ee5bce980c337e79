package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"partyquiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	PublicURL               string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Game        Game
	Postgres    Postgres
	Redis       Redis
	Security    Security
	Leaderboard Leaderboard
	Questions   Questions
	CORS        CORS
}

// Game groups gameplay defaults.
type Game struct {
	DefaultTimeLimit  int           `env:"GAME_DEFAULT_TIME_LIMIT" envDefault:"20"`
	GraceWindow       time.Duration `env:"GAME_GRACE_WINDOW" envDefault:"2s"`
	ContextDuration   time.Duration `env:"GAME_CONTEXT_DURATION" envDefault:"3s"`
	DoublePointsIntro time.Duration `env:"GAME_DOUBLE_POINTS_INTRO" envDefault:"3s"`
	RevealDelay       time.Duration `env:"GAME_REVEAL_DELAY" envDefault:"1500ms"`
	QuestionSlack     time.Duration `env:"GAME_QUESTION_SLACK" envDefault:"1s"`
	MaxNameLength     int           `env:"GAME_MAX_NAME_LENGTH" envDefault:"30"`
	SessionTTL        time.Duration `env:"GAME_SESSION_TTL" envDefault:"6h"`
}

// Postgres captures connection info for the SQL database. An empty host keeps
// the question bank in memory.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:"partyquiz"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// Enabled reports whether a database is configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

// DSN builds a key/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds cache and pub/sub configuration. An empty address disables the
// session tracker, the question cache and the hall of fame.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	Prefix   string `env:"REDIS_KEY_PREFIX" envDefault:"partyquiz"`
}

// Enabled reports whether Redis is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Security stores secrets for the admin gate. Without an admin password the
// question bank cannot be managed over HTTP.
type Security struct {
	JWTSecret     string        `env:"JWT_SECRET" envDefault:""`
	AdminPassword string        `env:"ADMIN_PASSWORD" envDefault:""`
	TokenTTL      time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
}

// Leaderboard governs the hall of fame.
type Leaderboard struct {
	Enabled          bool          `env:"LEADERBOARD_ENABLED" envDefault:"true"`
	PubSubChannel    string        `env:"LEADERBOARD_CHANNEL" envDefault:"lb:updates"`
	SnapshotInterval time.Duration `env:"LEADERBOARD_SNAPSHOT_INTERVAL" envDefault:"5m"`
	SnapshotTopN     int           `env:"LEADERBOARD_SNAPSHOT_TOP" envDefault:"50"`
}

// Questions configures where the bank comes from.
type Questions struct {
	SeedFile        string        `env:"QUESTIONS_SEED_FILE" envDefault:""`
	CacheTTL        time.Duration `env:"QUESTIONS_CACHE_TTL" envDefault:"5m"`
	OpenTDBURL      string        `env:"OPENTDB_BASE_URL" envDefault:"https://opentdb.com"`
	TriviaAPIURL    string        `env:"TRIVIA_API_BASE_URL" envDefault:"https://the-trivia-api.com/v2"`
	TriviaAPIKey    string        `env:"TRIVIA_API_KEY" envDefault:""`
	ExternalTimeout time.Duration `env:"QUESTIONS_EXTERNAL_TIMEOUT" envDefault:"5s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization,X-Admin-Token,X-Host-Key"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	if c.Game.DefaultTimeLimit < 5 || c.Game.DefaultTimeLimit > 120 {
		return fmt.Errorf("GAME_DEFAULT_TIME_LIMIT must be between 5 and 120, got %d", c.Game.DefaultTimeLimit)
	}
	if c.Game.GraceWindow < 0 {
		return fmt.Errorf("GAME_GRACE_WINDOW must not be negative")
	}
	if c.Security.AdminPassword != "" && c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ADMIN_PASSWORD is set")
	}
	return nil
}
