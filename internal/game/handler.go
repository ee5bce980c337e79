package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/partyquiz/pkg/http/errors"
	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// HandlerOptions controls the pacing of the automatic game flow.
type HandlerOptions struct {
	ContextDuration   time.Duration // context scene before the question opens
	DoublePointsIntro time.Duration // announcement before a double-points question
	RevealDelay       time.Duration // gap between question end and reveal
	QuestionSlack     time.Duration // added to the time limit before auto-ending
}

func (o HandlerOptions) withDefaults() HandlerOptions {
	if o.ContextDuration <= 0 {
		o.ContextDuration = 3 * time.Second
	}
	if o.DoublePointsIntro <= 0 {
		o.DoublePointsIntro = 3 * time.Second
	}
	if o.RevealDelay <= 0 {
		o.RevealDelay = 1500 * time.Millisecond
	}
	if o.QuestionSlack <= 0 {
		o.QuestionSlack = time.Second
	}
	return o
}

// Connection roles.
const (
	roleHost    = "host"
	roleDisplay = "display"
	rolePlayer  = "player"
)

// client is the per-socket binding to a session.
type client struct {
	connID string

	mu        sync.Mutex
	role      string
	sessionID string
	playerID  string
}

func (c *client) bind(role, sessionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
	c.sessionID = sessionID
	c.playerID = playerID
}

func (c *client) binding() (role, sessionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role, c.sessionID, c.playerID
}

// Handler routes realtime messages between host, display and player sockets.
type Handler struct {
	service  *Service
	hub      *ws.Hub
	timers   *Timers
	upgrader websocket.Upgrader
	opts     HandlerOptions
	logger   zerolog.Logger
}

// NewHandler creates the realtime game handler.
func NewHandler(service *Service, hub *ws.Hub, timers *Timers, upgrader websocket.Upgrader, opts HandlerOptions, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		timers:   timers,
		upgrader: upgrader,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "game_ws").Logger(),
	}
}

// HandleWebSocket upgrades the request and serves the socket until it closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.HandleConnection(conn)
}

// HandleConnection processes a new WebSocket connection.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	c := &client{connID: uuid.NewString()}
	wsConn := ws.NewConnection(c.connID, conn, h.logger)
	h.hub.Register(wsConn)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), c, msg)
	})

	h.disconnect(c)
	h.hub.Unregister(c.connID)
}

func (h *Handler) disconnect(c *client) {
	role, sessionID, playerID := c.binding()
	if role != rolePlayer {
		return
	}
	if err := h.service.DisconnectPlayer(sessionID, playerID); err != nil {
		return
	}
	h.logger.Debug().Str("session_id", sessionID).Str("player_id", playerID).Msg("player disconnected")
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, c *client, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeHostCreate:
		return h.handleHostCreate(ctx, c, msg)
	case ws.TypeHostReconnect:
		return h.handleHostReconnect(c, msg)
	case ws.TypeDisplayJoin:
		return h.handleDisplayJoin(c, msg)
	case ws.TypePlayerJoin:
		return h.handlePlayerJoin(ctx, c, msg)
	case ws.TypePlayerReconnect:
		return h.handlePlayerReconnect(c, msg)
	case ws.TypePlayerAnswer:
		return h.handlePlayerAnswer(c, msg)
	case ws.TypeHostStart:
		return h.handleHostStart(ctx, c, msg)
	case ws.TypeHostNext:
		return h.handleHostNext(ctx, c, msg)
	case ws.TypeHostReveal:
		return h.handleHostReveal(c, msg)
	case ws.TypeHostLeaderboard:
		return h.handleHostLeaderboard(c, msg)
	case ws.TypeHostEnd:
		return h.handleHostEnd(ctx, c, msg)
	case ws.TypeHostPause:
		return h.handleHostPause(c, msg)
	case ws.TypeHostResume:
		return h.handleHostResume(c, msg)
	case ws.TypeHostKick:
		return h.handleHostKick(c, msg)
	case ws.TypeHostRestart:
		return h.handleHostRestart(c, msg)
	case ws.TypeTimeSync:
		return h.reply(c, msg.RequestID, ws.TimeSyncPayload{ServerTime: h.service.ServerTime()})
	default:
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleHostCreate(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.HostCreatePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid host:create payload")
		}
	}

	questions := make([]Question, 0, len(req.Questions))
	for i, qp := range req.Questions {
		q, err := questionFromPayload(qp)
		if err != nil {
			return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidQuestion, fmt.Sprintf("question %d: %v", i, err))
		}
		questions = append(questions, q)
	}

	created, err := h.service.CreateSession(ctx, questions, req.DefaultTimeLimit)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}

	h.attachHost(c, created.SessionID)
	return h.reply(c, msg.RequestID, created)
}

func (h *Handler) handleHostReconnect(c *client, msg ws.Message) error {
	var req ws.HostCommandPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid host:reconnect payload")
	}
	lobby, err := h.service.HostLobby(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.attachHost(c, req.SessionID)
	return h.reply(c, msg.RequestID, lobby)
}

func (h *Handler) handleDisplayJoin(c *client, msg ws.Message) error {
	var req ws.DisplayJoinPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid display:join payload")
	}
	sessionID, err := h.resolve(req.SessionID, req.JoinCode)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	lobby, err := h.service.DisplayLobby(sessionID)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}

	c.bind(roleDisplay, sessionID, "")
	h.hub.Join(sessionTopic(sessionID), c.connID)
	h.hub.Join(displayTopic(sessionID), c.connID)
	h.hub.Join(ws.TopicDisplays, c.connID)
	return h.reply(c, msg.RequestID, lobby)
}

func (h *Handler) handlePlayerJoin(ctx context.Context, c *client, msg ws.Message) error {
	var req ws.PlayerJoinPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid player:join payload")
	}
	sessionID, err := h.resolve(req.SessionID, req.JoinCode)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	res, err := h.service.AddPlayer(ctx, sessionID, req.Name)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}

	h.attachPlayer(c, sessionID, res.Player.ID)
	h.emit(sessionTopic(sessionID), ws.TypePlayerJoined, ws.PlayerJoinedPayload{
		Player:      ws.PlayerInfo{ID: res.Player.ID, Name: res.Player.Name},
		PlayerCount: len(res.Players),
		Players:     res.Players,
	})
	return h.reply(c, msg.RequestID, map[string]string{
		"player_id":   res.Player.ID,
		"session_id":  sessionID,
		"player_name": res.Player.Name,
	})
}

func (h *Handler) handlePlayerReconnect(c *client, msg ws.Message) error {
	var req ws.PlayerReconnectPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid player:reconnect payload")
	}
	res, err := h.service.ReconnectPlayer(req.SessionID, req.PlayerID)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.attachPlayer(c, req.SessionID, req.PlayerID)
	return h.reply(c, msg.RequestID, res)
}

func (h *Handler) handlePlayerAnswer(c *client, msg ws.Message) error {
	role, sessionID, playerID := c.binding()
	if role != rolePlayer {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeNotJoined, "Join a session before answering")
	}
	var req ws.PlayerAnswerPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid player:answer payload")
	}

	res, err := h.service.SubmitAnswer(sessionID, playerID, req.Answer)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	if err := h.reply(c, msg.RequestID, res.Feedback); err != nil {
		return err
	}

	update := ws.AnswerUpdatePayload{
		AnsweredCount: res.Progress.AnsweredCount,
		TotalPlayers:  res.Progress.TotalPlayers,
	}
	h.emit(hostTopic(sessionID), ws.TypeAnswerUpdate, update)
	h.emit(displayTopic(sessionID), ws.TypeAnswerUpdate, update)
	if res.Alert != nil {
		h.emit(displayTopic(sessionID), ws.TypeStreakAlert, res.Alert)
	}
	return nil
}

func (h *Handler) handleHostStart(ctx context.Context, c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	if err := h.service.StartGame(req.SessionID, req.HostKey); err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	return h.next(ctx, c, msg.RequestID, req)
}

func (h *Handler) handleHostNext(ctx context.Context, c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	return h.next(ctx, c, msg.RequestID, req)
}

func (h *Handler) handleHostReveal(c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	res, err := h.service.Reveal(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.timers.Cancel(req.SessionID)
	h.emit(sessionTopic(req.SessionID), ws.TypeReveal, ws.RevealPayload{Reveal: res.Reveal, IsLastQuestion: res.IsLastQuestion})
	return h.reply(c, msg.RequestID, map[string]bool{"is_last_question": res.IsLastQuestion})
}

func (h *Handler) handleHostLeaderboard(c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	res, err := h.service.ShowLeaderboard(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.emit(sessionTopic(req.SessionID), ws.TypeLeaderboard, ws.GameLeaderboardPayload{Leaderboard: res.Entries, IsLastQuestion: res.IsLastQuestion})
	return h.reply(c, msg.RequestID, nil)
}

func (h *Handler) handleHostEnd(ctx context.Context, c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	stats, err := h.service.EndGame(ctx, req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.timers.Cancel(req.SessionID)
	h.emit(sessionTopic(req.SessionID), ws.TypeEnd, ws.EndPayload{Stats: stats})
	return h.reply(c, msg.RequestID, nil)
}

func (h *Handler) handleHostPause(c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	remaining, err := h.service.PauseGame(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.timers.Cancel(req.SessionID)
	h.emit(sessionTopic(req.SessionID), ws.TypePaused, ws.PausedPayload{RemainingMs: remaining.Milliseconds()})
	return h.reply(c, msg.RequestID, nil)
}

func (h *Handler) handleHostResume(c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	res, err := h.service.ResumeGame(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.emit(sessionTopic(req.SessionID), ws.TypeResumed, ws.ResumedPayload{
		ServerTime:     res.ServerTime,
		TimerStartedAt: res.TimerStartedAt,
		TimerDuration:  res.TimerDuration,
	})
	h.scheduleQuestionEnd(req.SessionID, res.Remaining+h.opts.QuestionSlack)
	return h.reply(c, msg.RequestID, nil)
}

func (h *Handler) handleHostKick(c *client, msg ws.Message) error {
	var req ws.HostKickPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid host:kick payload")
	}
	players, err := h.service.KickPlayer(req.SessionID, req.HostKey, req.PlayerID)
	if err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}

	h.emit(playerTopic(req.PlayerID), ws.TypeKicked, ws.KickedPayload{Reason: "removed by host"})
	h.hub.Evict(playerTopic(req.PlayerID), sessionTopic(req.SessionID), playersTopic(req.SessionID))
	h.emit(sessionTopic(req.SessionID), ws.TypePlayerLeft, ws.PlayerLeftPayload{
		PlayerID:    req.PlayerID,
		PlayerCount: len(players),
		Players:     players,
	})
	return h.reply(c, msg.RequestID, nil)
}

func (h *Handler) handleHostRestart(c *client, msg ws.Message) error {
	req, ok, err := h.hostCommand(c, msg)
	if !ok {
		return err
	}
	if err := h.service.RestartGame(req.SessionID, req.HostKey); err != nil {
		return h.sendFailure(c, msg.RequestID, err)
	}
	h.timers.Cancel(req.SessionID)

	h.emit(playersTopic(req.SessionID), ws.TypeRestarted, nil)
	h.hub.Evict(playersTopic(req.SessionID), sessionTopic(req.SessionID), playersTopic(req.SessionID))
	h.emit(displayTopic(req.SessionID), ws.TypeRestarted, nil)
	h.emit(hostTopic(req.SessionID), ws.TypeHostRestarted, ws.HostRestartedPayload{
		PlayerCount: 0,
		Players:     []PlayerSummary{},
	})
	return h.reply(c, msg.RequestID, nil)
}

// hostCommand decodes a host command payload. A malformed payload is answered
// with an error frame and ok is false; err is the result of that send.
func (h *Handler) hostCommand(c *client, msg ws.Message) (req ws.HostCommandPayload, ok bool, err error) {
	if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil || req.SessionID == "" {
		return req, false, h.sendError(c, msg.RequestID, httperrors.ErrCodeInvalidPayload, fmt.Sprintf("Invalid %s payload", msg.Type))
	}
	return req, true, nil
}

func (h *Handler) resolve(sessionID, joinCode string) (string, error) {
	if sessionID != "" {
		return h.service.ResolveSessionID(sessionID)
	}
	if joinCode != "" {
		return h.service.ResolveSessionID(joinCode)
	}
	return "", ErrSessionNotFound
}

func (h *Handler) attachHost(c *client, sessionID string) {
	c.bind(roleHost, sessionID, "")
	h.hub.Join(sessionTopic(sessionID), c.connID)
	h.hub.Join(hostTopic(sessionID), c.connID)
}

func (h *Handler) attachPlayer(c *client, sessionID, playerID string) {
	c.bind(rolePlayer, sessionID, playerID)
	h.hub.Join(sessionTopic(sessionID), c.connID)
	h.hub.Join(playersTopic(sessionID), c.connID)
	h.hub.Join(playerTopic(playerID), c.connID)
}

func (h *Handler) emit(topic, msgType string, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("failed to encode message")
		return
	}
	if err := h.hub.Broadcast(topic, msg); err != nil {
		h.logger.Debug().Err(err).Str("topic", topic).Str("type", msgType).Msg("broadcast incomplete")
	}
}

func (h *Handler) reply(c *client, requestID string, data interface{}) error {
	msg, err := ws.NewMessage(ws.TypeAck, ws.AckPayload{OK: true, Data: data})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return h.hub.SendTo(c.connID, msg)
}

func (h *Handler) sendError(c *client, requestID, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return h.hub.SendTo(c.connID, msg)
}

func (h *Handler) sendFailure(c *client, requestID string, err error) error {
	_, code := classify(err)
	return h.sendError(c, requestID, code, err.Error())
}

// classify maps a game error to an HTTP status and a wire error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, httperrors.ErrCodeUnauthorized
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound
	case errors.Is(err, ErrPlayerNotFound):
		return http.StatusNotFound, httperrors.ErrCodePlayerNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict, httperrors.ErrCodeInvalidTransition
	case errors.Is(err, ErrDuplicateSubmission):
		return http.StatusConflict, httperrors.ErrCodeDuplicateSubmission
	case errors.Is(err, ErrAnswerWindowClosed):
		return http.StatusConflict, httperrors.ErrCodeAnswerWindowClosed
	case errors.Is(err, ErrNoQuestions):
		return http.StatusConflict, httperrors.ErrCodeNoQuestions
	case errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidName
	case errors.Is(err, ErrInvalidOption):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidOption
	case errors.Is(err, ErrInvalidQuestion):
		return http.StatusBadRequest, httperrors.ErrCodeInvalidQuestion
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError
	}
}

func questionFromPayload(qp ws.QuestionPayload) (Question, error) {
	if len(qp.Options) != len(Options) {
		return Question{}, fmt.Errorf("%w: exactly %d options are required", ErrInvalidQuestion, len(Options))
	}
	correct, err := ParseOption(qp.Correct)
	if err != nil {
		return Question{}, fmt.Errorf("%w: correct must be one of A, B, C, D", ErrInvalidQuestion)
	}
	q := Question{
		ID:        uuid.NewString(),
		Context:   qp.Context,
		Text:      qp.Text,
		Correct:   correct,
		Category:  qp.Category,
		TimeLimit: qp.TimeLimit,
	}
	copy(q.Options[:], qp.Options)
	return q, q.Validate()
}

func sessionTopic(id string) string { return "session:" + id }
func hostTopic(id string) string { return "host:" + id }
func displayTopic(id string) string { return "display:" + id }
func playersTopic(id string) string { return "players:" + id }
func playerTopic(pid string) string { return "player:" + pid }
