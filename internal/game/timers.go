package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Timers keeps at most one pending phase timeout per session.
// Scheduling replaces whatever was pending; a replaced or cancelled timer never fires its callback.
type Timers struct {
	clock  clockwork.Clock
	logger zerolog.Logger

	mu     sync.Mutex
	active map[string]*pendingTimer
}

type pendingTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// NewTimers creates a timer coordinator on the given clock.
func NewTimers(clock clockwork.Clock, logger zerolog.Logger) *Timers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timers{
		clock:  clock,
		logger: logger.With().Str("component", "session_timers").Logger(),
		active: make(map[string]*pendingTimer),
	}
}

// Schedule runs fn after d unless it is replaced or cancelled first.
func (t *Timers) Schedule(sessionID string, d time.Duration, fn func()) {
	p := &pendingTimer{
		timer:  t.clock.NewTimer(d),
		cancel: make(chan struct{}),
	}

	t.mu.Lock()
	if existing, ok := t.active[sessionID]; ok {
		existing.stop()
		t.logger.Debug().Str("session_id", sessionID).Msg("replaced pending timer")
	}
	t.active[sessionID] = p
	t.mu.Unlock()

	go func() {
		select {
		case <-p.timer.Chan():
			t.mu.Lock()
			if t.active[sessionID] != p {
				t.mu.Unlock()
				return
			}
			delete(t.active, sessionID)
			t.mu.Unlock()
			fn()
		case <-p.cancel:
		}
	}()
}

// Cancel drops the pending timer of a session, reporting whether one existed.
func (t *Timers) Cancel(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.active[sessionID]
	if !ok {
		return false
	}
	p.stop()
	delete(t.active, sessionID)
	return true
}

// Pending reports whether a session has a scheduled timer.
func (t *Timers) Pending(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[sessionID]
	return ok
}

// Stop cancels every pending timer.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.active {
		p.stop()
		delete(t.active, id)
	}
}

func (p *pendingTimer) stop() {
	if !p.timer.Stop() {
		select {
		case <-p.timer.Chan():
		default:
		}
	}
	close(p.cancel)
}
