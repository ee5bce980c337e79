package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// Supported leaderboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowMonthly = "monthly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowMonthly, WindowAllTime}

// updateTopN bounds the entries pushed to displays after each game.
const updateTopN = 10

// Entry is one player's aggregate across finished games in a window.
type Entry struct {
	PlayerKey     string  `json:"player_key"`
	DisplayName   string  `json:"display_name"`
	Score         int     `json:"score"`
	Wins          int     `json:"wins"`
	Games         int     `json:"games"`
	Accuracy      float64 `json:"accuracy"`
	CorrectTotal  int     `json:"-"`
	QuestionTotal int     `json:"-"`
}

// RecordRequest is one player's result from a finished session. Players have
// no accounts, so PlayerKey is the normalized display name.
type RecordRequest struct {
	PlayerKey     string
	DisplayName   string
	Score         int
	CorrectCount  int
	QuestionCount int
	Won           bool
	SessionID     string
	Windows       []string
	Eligible      bool
}

// ServiceOptions configures leaderboard service behavior. Zero values fall
// back to the defaults below.
type ServiceOptions struct {
	TopN             int
	PubSubChannel    string
	Windows          []string
	RedisKeyPrefix   string
	SnapshotTopLimit int
	Clock            clockwork.Clock
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.TopN <= 0 {
		o.TopN = 50
	}
	if o.PubSubChannel == "" {
		o.PubSubChannel = "lb:updates"
	}
	if len(o.Windows) == 0 {
		o.Windows = defaultWindows
	}
	if o.RedisKeyPrefix == "" {
		o.RedisKeyPrefix = "lb"
	}
	if o.SnapshotTopLimit <= 0 {
		o.SnapshotTopLimit = 100
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Service keeps the hall of fame in Redis sorted sets and emits updates over Pub/Sub.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	opts   ServiceOptions
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	return &Service{
		redis:  redis,
		logger: logger.With().Str("component", "leaderboard").Logger(),
		opts:   opts.withDefaults(),
	}
}

// Windows returns the windows results are recorded into.
func (s *Service) Windows() []string {
	return s.opts.Windows
}

// RecordResult adds a finished game to every applicable window.
func (s *Service) RecordResult(ctx context.Context, req RecordRequest) error {
	if !req.Eligible {
		return nil
	}
	key := normalizeKey(req.PlayerKey)
	if key == "" {
		key = normalizeKey(req.DisplayName)
	}
	if key == "" {
		return nil
	}

	windows := req.Windows
	if len(windows) == 0 {
		windows = s.opts.Windows
	}

	won := 0
	if req.Won {
		won = 1
	}
	delta := playerMeta{
		DisplayName: req.DisplayName,
		Wins:        won,
		Games:       1,
		Correct:     req.CorrectCount,
		Questions:   req.QuestionCount,
	}

	now := s.opts.Clock.Now()
	for _, window := range windows {
		if err := s.updateWindow(ctx, window, now, key, req.Score, delta); err != nil {
			return err
		}
	}

	go s.publishUpdate(context.Background(), req.SessionID, windows)
	return nil
}

// Top retrieves the top entries of the current period of a window. Player
// metadata for the whole page is fetched in one pipeline.
func (s *Service) Top(ctx context.Context, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.opts.TopN {
		limit = s.opts.TopN
	}

	zKey := s.leaderboardKey(window, s.opts.Clock.Now())
	ranked, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(ranked) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	metas := make([]*redis.MapStringStringCmd, len(ranked))
	for i, z := range ranked {
		member, _ := z.Member.(string)
		metas[i] = pipe.HGetAll(ctx, s.metaKey(zKey, member))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("fetch leaderboard metadata: %w", err)
	}

	entries := make([]Entry, 0, len(ranked))
	for i, z := range ranked {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var meta playerMeta
		if err := metas[i].Scan(&meta); err != nil {
			s.logger.Warn().Err(err).Str("player_key", member).Msg("failed to read leaderboard metadata")
			continue
		}
		entries = append(entries, meta.entry(member, int(z.Score)))
	}
	return entries, nil
}

// SnapshotTop returns the configured snapshot size for persistence jobs.
func (s *Service) SnapshotTop(ctx context.Context, window string) ([]Entry, error) {
	return s.Top(ctx, window, s.opts.SnapshotTopLimit)
}

func (s *Service) updateWindow(ctx context.Context, window string, now time.Time, player string, score int, delta playerMeta) error {
	zKey := s.leaderboardKey(window, now)
	metaKey := s.metaKey(zKey, player)

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, zKey, float64(score), player)
	pipe.HIncrBy(ctx, metaKey, "wins", int64(delta.Wins))
	pipe.HIncrBy(ctx, metaKey, "games", int64(delta.Games))
	pipe.HIncrBy(ctx, metaKey, "correct", int64(delta.Correct))
	pipe.HIncrBy(ctx, metaKey, "questions", int64(delta.Questions))
	pipe.HSet(ctx, metaKey, "display_name", delta.DisplayName)
	if ttl := windowTTL(window); ttl > 0 {
		pipe.Expire(ctx, zKey, ttl)
		pipe.Expire(ctx, metaKey, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard window %s: %w", window, err)
	}
	return nil
}

func (s *Service) publishUpdate(ctx context.Context, sessionID string, windows []string) {
	for _, window := range windows {
		entries, err := s.Top(ctx, window, updateTopN)
		if err != nil {
			s.logger.Warn().Err(err).Str("window", window).Msg("failed to collect leaderboard update")
			continue
		}
		if len(entries) == 0 {
			continue
		}

		payload := ws.LeaderboardUpdatePayload{
			Window:    window,
			SessionID: sessionID,
			Top:       wireEntries(entries),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
			continue
		}
		if err := s.redis.Publish(ctx, s.opts.PubSubChannel, data).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
		}
	}
}

// leaderboardKey names the sorted set of the period containing now, so daily,
// weekly and monthly boards roll over on their own.
func (s *Service) leaderboardKey(window string, now time.Time) string {
	return s.opts.RedisKeyPrefix + ":" + windowPeriod(window, now.UTC())
}

func (s *Service) metaKey(zKey, playerKey string) string {
	return zKey + ":meta:" + playerKey
}

func windowPeriod(window string, t time.Time) string {
	switch window {
	case WindowDaily:
		return window + ":" + t.Format("2006-01-02")
	case WindowWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%s:%d-W%02d", window, year, week)
	case WindowMonthly:
		return window + ":" + t.Format("2006-01")
	default:
		return window
	}
}

func windowTTL(window string) time.Duration {
	switch window {
	case WindowDaily:
		return 48 * time.Hour
	case WindowWeekly:
		return 14 * 24 * time.Hour
	case WindowMonthly:
		return 62 * 24 * time.Hour
	default:
		return 0
	}
}

// IsValidWindow reports whether window names a supported leaderboard.
func IsValidWindow(window string) bool {
	switch window {
	case WindowDaily, WindowWeekly, WindowMonthly, WindowAllTime:
		return true
	default:
		return false
	}
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
