package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/partyquiz/internal/game/scoring"
	"github.com/gokatarajesh/partyquiz/internal/leaderboard"
)

// ResultRecorder receives per-player results once a game ends.
type ResultRecorder interface {
	RecordResult(ctx context.Context, req leaderboard.RecordRequest) error
}

// QuestionSource supplies the default question set when a host brings none.
type QuestionSource interface {
	Questions(ctx context.Context) ([]Question, error)
}

// ServiceOptions configures the game service.
type ServiceOptions struct {
	DefaultTimeLimit int
	GraceWindow      time.Duration
	MaxNameLength    int
	Scoring          scoring.ScoringConfig
	Clock            clockwork.Clock
	Pick             func(n int) int
}

// Service is the entry point for every session operation. Each call locks
// exactly one session, so sessions never block each other.
type Service struct {
	store    *Store
	engine   *scoring.Engine
	opts     ServiceOptions
	source   QuestionSource
	recorder ResultRecorder
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewService constructs the game service. source, recorder and metrics may be nil.
func NewService(store *Store, source QuestionSource, recorder ResultRecorder, metrics *Metrics, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	cfg := opts.Scoring
	if cfg == (scoring.ScoringConfig{}) {
		cfg = scoring.DefaultScoringConfig()
	}
	return &Service{
		store:    store,
		engine:   scoring.NewEngine(cfg),
		opts:     opts,
		source:   source,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.With().Str("component", "game_service").Logger(),
	}
}

// CreatedSession is handed to the host once; the host key is never shown again.
type CreatedSession struct {
	SessionID string `json:"session_id"`
	HostKey   string `json:"host_key"`
	JoinCode  string `json:"join_code"`
}

// Lobby is a snapshot of a session and its roster.
type Lobby struct {
	Info    SessionInfo     `json:"session"`
	Players []PlayerSummary `json:"players"`
}

// JoinResult is returned to a player admitted to a lobby.
type JoinResult struct {
	Player  Player          `json:"player"`
	Players []PlayerSummary `json:"players"`
}

// ReconnectResult restores a player's view after a dropped connection.
type ReconnectResult struct {
	Player          Player          `json:"player"`
	Phase           Phase           `json:"phase"`
	Question        *PlayerQuestion `json:"question,omitempty"`
	ServerTime      int64           `json:"server_time"`
	TimerStartedAt  *int64          `json:"timer_started_at,omitempty"`
	TimerDuration   int             `json:"timer_duration,omitempty"`
	AlreadyAnswered bool            `json:"already_answered"`
}

// QuestionStart holds the three audience views of a question going live.
type QuestionStart struct {
	Phase        Phase           `json:"phase"`
	Display      DisplayQuestion `json:"display"`
	Host         HostQuestion    `json:"host"`
	Player       *PlayerQuestion `json:"player,omitempty"`
	TotalPlayers int             `json:"total_players"`
	ServerTime   int64           `json:"server_time"`
}

// AdvanceResult carries either the next question or, when the game ran out
// of questions, the final stats.
type AdvanceResult struct {
	Start *QuestionStart `json:"start,omitempty"`
	Stats *FinalStats    `json:"stats,omitempty"`
}

// Upcoming describes what the next advance would select.
type Upcoming struct {
	Index          int  `json:"index"`
	IsDoublePoints bool `json:"is_double_points"`
	Ends           bool `json:"ends"`
}

// AnswerResult is the outcome of an accepted answer.
type AnswerResult struct {
	Feedback Feedback       `json:"feedback"`
	Progress AnswerProgress `json:"progress"`
	Alert    *StreakAlert   `json:"alert,omitempty"`
}

// RevealResult wraps a reveal for broadcasting.
type RevealResult struct {
	Reveal         Reveal `json:"reveal"`
	IsLastQuestion bool   `json:"is_last_question"`
}

// LeaderboardResult wraps the in-game standings.
type LeaderboardResult struct {
	Entries        []LeaderboardEntry `json:"leaderboard"`
	IsLastQuestion bool               `json:"is_last_question"`
}

// ResumeResult carries the re-anchored timer after a pause.
type ResumeResult struct {
	Remaining      time.Duration `json:"-"`
	ServerTime     int64         `json:"server_time"`
	TimerStartedAt int64         `json:"timer_started_at"`
	TimerDuration  int           `json:"timer_duration"`
}

// ServerTime returns the authoritative clock in epoch milliseconds.
func (s *Service) ServerTime() int64 {
	return s.opts.Clock.Now().UnixMilli()
}

// CreateSession builds a new session. With no questions it falls back to the
// question source.
func (s *Service) CreateSession(ctx context.Context, questions []Question, defaultTimeLimit int) (*CreatedSession, error) {
	if len(questions) == 0 && s.source != nil {
		qs, err := s.source.Questions(ctx)
		if err != nil {
			return nil, fmt.Errorf("load default questions: %w", err)
		}
		questions = qs
	}
	if defaultTimeLimit <= 0 {
		defaultTimeLimit = s.opts.DefaultTimeLimit
	}

	sess, err := NewSession(questions, SessionOptions{
		DefaultTimeLimit: defaultTimeLimit,
		GraceWindow:      s.opts.GraceWindow,
		MaxNameLength:    s.opts.MaxNameLength,
		Clock:            s.opts.Clock,
		Scoring:          s.engine,
		Pick:             s.opts.Pick,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctx, sess); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	s.metrics.sessionCreated()

	s.logger.Info().
		Str("session_id", sess.ID()).
		Str("join_code", sess.JoinCode()).
		Int("questions", len(questions)).
		Msg("session created")

	return &CreatedSession{SessionID: sess.ID(), HostKey: sess.HostKey(), JoinCode: sess.JoinCode()}, nil
}

// DeleteSession drops a session; only its host may do so.
func (s *Service) DeleteSession(ctx context.Context, sessionID, hostKey string) error {
	if err := s.withHost(sessionID, hostKey, func(*Session) error { return nil }); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.sessionDeleted()
	s.logger.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// Info returns the public summary of a session.
func (s *Service) Info(sessionID string) (SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(sessionID, func(sess *Session) error {
		info = sess.info()
		return nil
	})
	return info, err
}

// ResolveCode maps a join code to its session summary.
func (s *Service) ResolveCode(code string) (SessionInfo, error) {
	sess, err := s.store.GetByCode(code)
	if err != nil {
		return SessionInfo{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.info(), nil
}

// ResolveSessionID accepts either a session id or a join code.
func (s *Service) ResolveSessionID(idOrCode string) (string, error) {
	if _, err := s.store.Get(idOrCode); err == nil {
		return idOrCode, nil
	}
	sess, err := s.store.GetByCode(idOrCode)
	if err != nil {
		return "", err
	}
	return sess.ID(), nil
}

// ListSessions returns summaries of every live session, oldest first.
func (s *Service) ListSessions() []SessionInfo {
	sessions := s.store.List()
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		out = append(out, sess.info())
		sess.mu.Unlock()
	}
	return out
}

// HostLobby authorizes the host and returns the session snapshot.
func (s *Service) HostLobby(sessionID, hostKey string) (*Lobby, error) {
	var lobby *Lobby
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		lobby = &Lobby{Info: sess.info(), Players: sess.playerList()}
		return nil
	})
	return lobby, err
}

// DisplayLobby returns the snapshot a display needs after attaching.
func (s *Service) DisplayLobby(sessionID string) (*Lobby, error) {
	var lobby *Lobby
	err := s.withSession(sessionID, func(sess *Session) error {
		lobby = &Lobby{Info: sess.info(), Players: sess.playerList()}
		return nil
	})
	return lobby, err
}

// AddPlayer admits a player to the lobby. Rejoining with an existing name
// returns the original player.
func (s *Service) AddPlayer(ctx context.Context, sessionID, name string) (*JoinResult, error) {
	var res *JoinResult
	err := s.withSession(sessionID, func(sess *Session) error {
		before := len(sess.players)
		p, err := sess.addPlayer(name)
		if err != nil {
			return err
		}
		if len(sess.players) > before {
			s.metrics.playerJoined()
		}
		res = &JoinResult{Player: *p, Players: sess.playerList()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.store.Touch(ctx, sessionID)
	s.logger.Debug().Str("session_id", sessionID).Str("player_id", res.Player.ID).Msg("player joined")
	return res, nil
}

// ReconnectPlayer marks a player connected and rebuilds their view.
func (s *Service) ReconnectPlayer(sessionID, playerID string) (*ReconnectResult, error) {
	var res *ReconnectResult
	err := s.withSession(sessionID, func(sess *Session) error {
		p, err := sess.reconnectPlayer(playerID)
		if err != nil {
			return err
		}
		res = &ReconnectResult{
			Player:     *p,
			Phase:      sess.phase,
			ServerTime: sess.now().UnixMilli(),
		}
		if sess.phase == PhaseQuestion {
			q, err := sess.questionForPlayer()
			if err != nil {
				return err
			}
			res.Question = q
			res.TimerDuration = sess.timerDuration
			if sess.timerStartedAt != nil {
				started := sess.timerStartedAt.UnixMilli()
				res.TimerStartedAt = &started
			}
			res.AlreadyAnswered = sess.hasAnswer(playerID, sess.currentIndex)
		}
		return nil
	})
	return res, err
}

// DisconnectPlayer flags a player as offline; their record stays.
func (s *Service) DisconnectPlayer(sessionID, playerID string) error {
	return s.withSession(sessionID, func(sess *Session) error {
		return sess.disconnectPlayer(playerID)
	})
}

// KickPlayer removes a player and returns the remaining roster.
func (s *Service) KickPlayer(sessionID, hostKey, playerID string) ([]PlayerSummary, error) {
	var players []PlayerSummary
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		if err := sess.kickPlayer(playerID); err != nil {
			return err
		}
		players = sess.playerList()
		return nil
	})
	if err == nil {
		s.logger.Info().Str("session_id", sessionID).Str("player_id", playerID).Msg("player kicked")
	}
	return players, err
}

// StartGame checks the lobby can start; the first advance follows.
func (s *Service) StartGame(sessionID, hostKey string) error {
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		return sess.start()
	})
	if err == nil {
		s.logger.Info().Str("session_id", sessionID).Msg("game started")
	}
	return err
}

// Upcoming reports what the next advance would select.
func (s *Service) Upcoming(sessionID, hostKey string) (Upcoming, error) {
	var up Upcoming
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		if sess.phase == PhaseEnd {
			return ErrInvalidTransition
		}
		up.Index, up.IsDoublePoints, up.Ends = sess.peekNext()
		return nil
	})
	return up, err
}

// AdvanceQuestion moves the host's session to the next question.
func (s *Service) AdvanceQuestion(ctx context.Context, sessionID, hostKey string) (*AdvanceResult, error) {
	if err := s.withHost(sessionID, hostKey, func(*Session) error { return nil }); err != nil {
		return nil, err
	}
	return s.advance(ctx, sessionID)
}

func (s *Service) advance(ctx context.Context, sessionID string) (*AdvanceResult, error) {
	var (
		res     *AdvanceResult
		records []leaderboard.RecordRequest
	)
	err := s.withSession(sessionID, func(sess *Session) error {
		view, err := sess.advance()
		if err != nil {
			return err
		}
		if view == nil {
			stats := sess.finalStats()
			records = s.collectResults(sess)
			res = &AdvanceResult{Stats: &stats}
			return nil
		}
		res = &AdvanceResult{Start: s.questionStart(sess)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.store.Touch(ctx, sessionID)
	s.record(ctx, sessionID, records)
	return res, nil
}

// StartQuestionTimer ends a CONTEXT intro and opens the answer window.
func (s *Service) StartQuestionTimer(sessionID string) (*QuestionStart, error) {
	var start *QuestionStart
	err := s.withSession(sessionID, func(sess *Session) error {
		if err := sess.startQuestionTimer(); err != nil {
			return err
		}
		start = s.questionStart(sess)
		return nil
	})
	return start, err
}

// QuestionForPlayer returns the phone view of the live question.
func (s *Service) QuestionForPlayer(sessionID string) (*PlayerQuestion, error) {
	var q *PlayerQuestion
	err := s.withSession(sessionID, func(sess *Session) error {
		var err error
		q, err = sess.questionForPlayer()
		return err
	})
	return q, err
}

// SubmitAnswer scores a player's answer for the current question.
func (s *Service) SubmitAnswer(sessionID, playerID, answer string) (*AnswerResult, error) {
	opt, err := ParseOption(answer)
	if err != nil {
		s.metrics.answer("rejected")
		return nil, err
	}
	var res *AnswerResult
	err = s.withSession(sessionID, func(sess *Session) error {
		fb, alert, err := sess.submitAnswer(playerID, opt)
		if err != nil {
			return err
		}
		res = &AnswerResult{Feedback: *fb, Progress: sess.progress(), Alert: alert}
		return nil
	})
	switch {
	case err != nil:
		s.metrics.answer("rejected")
		return nil, err
	case res.Feedback.Correct:
		s.metrics.answer("correct")
	default:
		s.metrics.answer("incorrect")
	}
	return res, nil
}

// EndQuestion back-fills timeout records and reports how many were added. It
// is legal in any phase; outside a live question there is nothing to fill.
func (s *Service) EndQuestion(sessionID string) (int, error) {
	var added int
	err := s.withSession(sessionID, func(sess *Session) error {
		if sess.phase != PhaseQuestion && sess.phase != PhaseContext {
			return nil
		}
		added = sess.endQuestion()
		return nil
	})
	return added, err
}

// expireQuestion closes an unpaused QUESTION whose timer ran out.
func (s *Service) expireQuestion(sessionID string) (int, error) {
	index := -1
	err := s.withSession(sessionID, func(sess *Session) error {
		if sess.phase != PhaseQuestion || sess.paused {
			return ErrInvalidTransition
		}
		sess.endQuestion()
		index = sess.currentIndex
		return nil
	})
	return index, err
}

// Reveal shows the answer of the current question.
func (s *Service) Reveal(sessionID, hostKey string) (*RevealResult, error) {
	if err := s.withHost(sessionID, hostKey, func(*Session) error { return nil }); err != nil {
		return nil, err
	}
	return s.reveal(sessionID, false)
}

// reveal shows the current answer. With liveOnly set it only acts on a
// QUESTION still in progress, so a timed reveal racing a host reveal is a no-op.
func (s *Service) reveal(sessionID string, liveOnly bool) (*RevealResult, error) {
	var res *RevealResult
	err := s.withSession(sessionID, func(sess *Session) error {
		if liveOnly && sess.phase != PhaseQuestion {
			return ErrInvalidTransition
		}
		r, err := sess.reveal()
		if err != nil {
			return err
		}
		res = &RevealResult{Reveal: *r, IsLastQuestion: sess.isLastQuestion()}
		return nil
	})
	return res, err
}

// ShowLeaderboard moves to LEADERBOARD and remembers ranks for movement arrows.
func (s *Service) ShowLeaderboard(sessionID, hostKey string) (*LeaderboardResult, error) {
	var res *LeaderboardResult
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		entries, err := sess.showLeaderboard()
		if err != nil {
			return err
		}
		res = &LeaderboardResult{Entries: entries, IsLastQuestion: sess.isLastQuestion()}
		return nil
	})
	return res, err
}

// EndGame finishes the session early or at the final leaderboard.
func (s *Service) EndGame(ctx context.Context, sessionID, hostKey string) (*FinalStats, error) {
	var (
		stats   *FinalStats
		records []leaderboard.RecordRequest
	)
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		stats = sess.endGame()
		records = s.collectResults(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, sessionID, records)
	return stats, nil
}

// PauseGame freezes the question clock and returns the time left.
func (s *Service) PauseGame(sessionID, hostKey string) (time.Duration, error) {
	var remaining time.Duration
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		var err error
		remaining, err = sess.pause()
		return err
	})
	return remaining, err
}

// ResumeGame re-anchors the question clock so the remaining time is preserved.
func (s *Service) ResumeGame(sessionID, hostKey string) (*ResumeResult, error) {
	var res *ResumeResult
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		remaining, err := sess.resume()
		if err != nil {
			return err
		}
		res = &ResumeResult{
			Remaining:      remaining,
			ServerTime:     sess.now().UnixMilli(),
			TimerStartedAt: sess.timerStartedAt.UnixMilli(),
			TimerDuration:  sess.timerDuration,
		}
		return nil
	})
	return res, err
}

// RestartGame returns the session to an empty lobby with the same questions.
func (s *Service) RestartGame(sessionID, hostKey string) error {
	err := s.withHost(sessionID, hostKey, func(sess *Session) error {
		sess.restart()
		return nil
	})
	if err == nil {
		s.logger.Info().Str("session_id", sessionID).Msg("game restarted")
	}
	return err
}

// Leaderboard returns the current standings without changing phase.
func (s *Service) Leaderboard(sessionID string) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := s.withSession(sessionID, func(sess *Session) error {
		entries = sess.leaderboard()
		return nil
	})
	return entries, err
}

// Players returns the roster in join order.
func (s *Service) Players(sessionID string) ([]PlayerSummary, error) {
	var players []PlayerSummary
	err := s.withSession(sessionID, func(sess *Session) error {
		players = sess.playerList()
		return nil
	})
	return players, err
}

// Phase returns the current phase of a session.
func (s *Service) Phase(sessionID string) (Phase, error) {
	var phase Phase
	err := s.withSession(sessionID, func(sess *Session) error {
		phase = sess.phase
		return nil
	})
	return phase, err
}

// Remaining returns the time left on the question clock.
func (s *Service) Remaining(sessionID string) (time.Duration, error) {
	var d time.Duration
	err := s.withSession(sessionID, func(sess *Session) error {
		d = sess.remaining()
		return nil
	})
	return d, err
}

func (s *Service) questionStart(sess *Session) *QuestionStart {
	start := &QuestionStart{
		Phase:        sess.phase,
		Display:      sess.displayQuestion(),
		Host:         sess.hostQuestion(),
		TotalPlayers: len(sess.players),
		ServerTime:   sess.now().UnixMilli(),
	}
	if q, err := sess.questionForPlayer(); err == nil {
		start.Player = q
	}
	return start
}

// collectResults builds hall-of-fame records the first time a session ends.
func (s *Service) collectResults(sess *Session) []leaderboard.RecordRequest {
	if sess.recorded {
		return nil
	}
	sess.recorded = true
	s.metrics.gameCompleted()

	entries := sess.leaderboard()
	records := make([]leaderboard.RecordRequest, 0, len(entries))
	for _, e := range entries {
		p := sess.players[e.PlayerID]
		records = append(records, leaderboard.RecordRequest{
			PlayerKey:     strings.ToLower(p.Name),
			DisplayName:   p.Name,
			Score:         p.Score,
			CorrectCount:  p.CorrectCount,
			QuestionCount: len(sess.questions),
			Won:           e.Rank == 1,
			SessionID:     sess.id,
			Eligible:      p.AnsweredCount > 0,
		})
	}
	return records
}

func (s *Service) record(ctx context.Context, sessionID string, records []leaderboard.RecordRequest) {
	if records == nil {
		return
	}
	s.logger.Info().Str("session_id", sessionID).Int("players", len(records)).Msg("game finished")
	if s.recorder == nil {
		return
	}
	for _, r := range records {
		if err := s.recorder.RecordResult(ctx, r); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Str("player", r.DisplayName).Msg("failed to record result")
		}
	}
}

func (s *Service) withSession(sessionID string, fn func(*Session) error) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

func (s *Service) withHost(sessionID, hostKey string, fn func(*Session) error) error {
	return s.withSession(sessionID, func(sess *Session) error {
		if !sess.authorize(hostKey) {
			return ErrUnauthorized
		}
		return fn(sess)
	})
}
