package game

import (
	"context"
	"time"

	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// next advances the session, announcing a double-points question first when
// one comes up.
func (h *Handler) next(ctx context.Context, c *client, requestID string, req ws.HostCommandPayload) error {
	up, err := h.service.Upcoming(req.SessionID, req.HostKey)
	if err != nil {
		return h.sendFailure(c, requestID, err)
	}
	h.timers.Cancel(req.SessionID)

	if up.IsDoublePoints && !up.Ends {
		h.emit(sessionTopic(req.SessionID), ws.TypeDoublePoints, ws.DoublePointsPayload{
			QuestionIndex: up.Index,
			DurationMs:    int(h.opts.DoublePointsIntro.Milliseconds()),
		})
		sessionID := req.SessionID
		h.timers.Schedule(sessionID, h.opts.DoublePointsIntro, func() {
			h.advance(context.Background(), sessionID)
		})
		return h.reply(c, requestID, up)
	}

	h.advance(ctx, req.SessionID)
	return h.reply(c, requestID, up)
}

// advance moves to the next question and drives the context scene, or ends
// the game when no question is left.
func (h *Handler) advance(ctx context.Context, sessionID string) {
	res, err := h.service.advance(ctx, sessionID)
	if err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("advance failed")
		return
	}
	if res.Stats != nil {
		h.timers.Cancel(sessionID)
		h.emit(sessionTopic(sessionID), ws.TypeEnd, ws.EndPayload{Stats: res.Stats})
		return
	}

	start := res.Start
	if start.Phase != PhaseContext {
		h.emitQuestion(sessionID, start)
		return
	}

	duration := int(h.opts.ContextDuration.Milliseconds())
	h.emit(displayTopic(sessionID), ws.TypeContext, ws.ContextPayload{
		Context:        start.Display.Context,
		Index:          start.Display.Index,
		TotalQuestions: start.Display.TotalQuestions,
		DurationMs:     duration,
	})
	h.emit(hostTopic(sessionID), ws.TypeContext, ws.ContextPayload{
		Context:    start.Display.Context,
		Index:      start.Display.Index,
		DurationMs: duration,
	})
	h.timers.Schedule(sessionID, h.opts.ContextDuration, func() {
		qs, err := h.service.StartQuestionTimer(sessionID)
		if err != nil {
			// host already moved on
			return
		}
		h.emitQuestion(sessionID, qs)
	})
}

// emitQuestion sends each audience its view and arms the question timeout.
func (h *Handler) emitQuestion(sessionID string, start *QuestionStart) {
	h.emit(displayTopic(sessionID), ws.TypeQuestionStart, ws.QuestionStartPayload{
		Question:     start.Display,
		ServerTime:   start.ServerTime,
		TotalPlayers: start.TotalPlayers,
	})
	h.emit(hostTopic(sessionID), ws.TypeQuestionStart, ws.QuestionStartPayload{
		Question:     start.Host,
		ServerTime:   start.ServerTime,
		TotalPlayers: start.TotalPlayers,
	})
	if start.Player != nil {
		h.emit(playersTopic(sessionID), ws.TypeQuestionStart, ws.QuestionStartPayload{
			Question:   start.Player,
			ServerTime: start.ServerTime,
		})
	}

	limit := time.Duration(start.Display.TimeLimit) * time.Second
	h.scheduleQuestionEnd(sessionID, limit+h.opts.QuestionSlack)
}

func (h *Handler) scheduleQuestionEnd(sessionID string, d time.Duration) {
	h.timers.Schedule(sessionID, d, func() {
		h.closeQuestion(sessionID)
	})
}

// closeQuestion times out the live question and reveals it after a short pause.
func (h *Handler) closeQuestion(sessionID string) {
	index, err := h.service.expireQuestion(sessionID)
	if err != nil {
		return
	}
	h.emit(sessionTopic(sessionID), ws.TypeQuestionEnd, ws.QuestionEndPayload{QuestionIndex: index})

	h.timers.Schedule(sessionID, h.opts.RevealDelay, func() {
		res, err := h.service.reveal(sessionID, true)
		if err != nil {
			return
		}
		h.emit(sessionTopic(sessionID), ws.TypeReveal, ws.RevealPayload{
			Reveal:         res.Reveal,
			IsLastQuestion: res.IsLastQuestion,
		})
	})
}
