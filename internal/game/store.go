package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Join codes skip ambiguous characters: 0, O, 1, I, L.
const (
	codeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength      = 4
	codeMaxAttempts = 16
)

// Tracker mirrors session liveness to an external system. Failures are logged, never fatal.
type Tracker interface {
	Track(ctx context.Context, info SessionInfo) error
	Touch(ctx context.Context, sessionID string) error
	Forget(ctx context.Context, sessionID string) error
}

// Store is the process-local registry of live sessions, keyed by id and join code.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	codes    map[string]string // join code -> session id
	tracker  Tracker
	logger   zerolog.Logger
}

// NewStore creates an empty registry. tracker may be nil.
func NewStore(tracker Tracker, logger zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		codes:    make(map[string]string),
		tracker:  tracker,
		logger:   logger.With().Str("component", "session_store").Logger(),
	}
}

// Add registers a session and assigns it a unique join code.
func (st *Store) Add(ctx context.Context, s *Session) error {
	st.mu.Lock()
	code, err := st.uniqueCode()
	if err != nil {
		st.mu.Unlock()
		return err
	}
	s.joinCode = code
	st.sessions[s.id] = s
	st.codes[code] = s.id
	st.mu.Unlock()

	if st.tracker != nil {
		s.mu.Lock()
		info := s.info()
		s.mu.Unlock()
		if err := st.tracker.Track(ctx, info); err != nil {
			st.logger.Warn().Err(err).Str("session_id", s.id).Msg("session tracking failed")
		}
	}
	return nil
}

// Get returns a session by id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetByCode resolves a join code, case-insensitively.
func (st *Store) GetByCode(code string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session and frees its join code.
func (st *Store) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	delete(st.codes, s.joinCode)
	st.mu.Unlock()

	if st.tracker != nil {
		if err := st.tracker.Forget(ctx, id); err != nil {
			st.logger.Warn().Err(err).Str("session_id", id).Msg("session untracking failed")
		}
	}
	return nil
}

// Touch refreshes the external liveness marker of a session.
func (st *Store) Touch(ctx context.Context, id string) {
	if st.tracker == nil {
		return
	}
	if err := st.tracker.Touch(ctx, id); err != nil {
		st.logger.Debug().Err(err).Str("session_id", id).Msg("session touch failed")
	}
}

// List returns all sessions, oldest first.
func (st *Store) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	return out
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) uniqueCode() (string, error) {
	for i := 0; i < codeMaxAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		if _, taken := st.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate join code: no free code after %d attempts", codeMaxAttempts)
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
