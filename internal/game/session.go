package game

import (
	"crypto/subtle"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/gokatarajesh/partyquiz/internal/game/scoring"
)

const (
	defaultTimeLimitSeconds  = 30
	defaultGraceWindow       = 2 * time.Second
	defaultMaxNameLength     = 30
	doublePointsMinQuestions = 3
)

// SessionOptions configures a new session. Zero values fall back to defaults.
type SessionOptions struct {
	DefaultTimeLimit int           // seconds
	GraceWindow      time.Duration // lateness tolerated past the visible timer
	MaxNameLength    int
	Clock            clockwork.Clock
	Scoring          *scoring.Engine
	// Pick returns an index in [0, n); used for the double-points draw.
	Pick func(n int) int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.DefaultTimeLimit <= 0 {
		o.DefaultTimeLimit = defaultTimeLimitSeconds
	}
	if o.GraceWindow < 0 {
		o.GraceWindow = 0
	} else if o.GraceWindow == 0 {
		o.GraceWindow = defaultGraceWindow
	}
	if o.MaxNameLength <= 0 {
		o.MaxNameLength = defaultMaxNameLength
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Scoring == nil {
		o.Scoring = scoring.NewEngine(scoring.DefaultScoringConfig())
	}
	if o.Pick == nil {
		o.Pick = rand.Intn
	}
	return o
}

// Session is one live run of a quiz. All unexported methods assume mu is held.
type Session struct {
	mu sync.Mutex

	id       string
	hostKey  string
	joinCode string

	questions         []Question
	currentIndex      int
	phase             Phase
	doublePointsIndex int
	defaultTimeLimit  int

	timerStartedAt  *time.Time
	timerDuration   int // seconds; 0 when no question is timed
	paused          bool
	pausedRemaining *time.Duration

	players       map[string]*Player
	answers       []PlayerAnswer
	streakAlerts  []StreakAlert
	previousRanks map[string]int
	createdAt     time.Time

	joinSeq  int
	recorded bool // final results handed to the hall of fame
	opts     SessionOptions
}

// NewSession validates the question list and builds a session in LOBBY.
func NewSession(questions []Question, opts SessionOptions) (*Session, error) {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	opts = opts.withDefaults()

	qs := make([]Question, len(questions))
	copy(qs, questions)

	s := &Session{
		id:               uuid.NewString(),
		hostKey:          uuid.NewString(),
		questions:        qs,
		currentIndex:     -1,
		phase:            PhaseLobby,
		defaultTimeLimit: opts.DefaultTimeLimit,
		players:          make(map[string]*Player),
		previousRanks:    make(map[string]int),
		createdAt:        opts.Clock.Now(),
		opts:             opts,
	}
	s.doublePointsIndex = s.drawDoublePoints()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// HostKey returns the capability token for privileged operations.
func (s *Session) HostKey() string { return s.hostKey }

// JoinCode returns the short human code players type to join.
func (s *Session) JoinCode() string { return s.joinCode }

func (s *Session) authorize(key string) bool {
	return subtle.ConstantTimeCompare([]byte(s.hostKey), []byte(key)) == 1
}

func (s *Session) drawDoublePoints() int {
	if len(s.questions) < doublePointsMinQuestions {
		return -1
	}
	return s.opts.Pick(len(s.questions))
}

func (s *Session) addPlayer(raw string) (*Player, error) {
	if s.phase != PhaseLobby {
		return nil, ErrInvalidTransition
	}
	name := sanitizeName(raw, s.opts.MaxNameLength)
	if name == "" {
		return nil, ErrInvalidName
	}

	for _, p := range s.players {
		if strings.EqualFold(p.Name, name) {
			p.Connected = true
			return p, nil
		}
	}

	s.joinSeq++
	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		SessionID: s.id,
		Connected: true,
		joinSeq:   s.joinSeq,
	}
	s.players[p.ID] = p
	return p, nil
}

func (s *Session) reconnectPlayer(playerID string) (*Player, error) {
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.Connected = true
	return p, nil
}

func (s *Session) disconnectPlayer(playerID string) error {
	p, ok := s.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	p.Connected = false
	return nil
}

func (s *Session) kickPlayer(playerID string) error {
	if _, ok := s.players[playerID]; !ok {
		return ErrPlayerNotFound
	}
	delete(s.players, playerID)
	delete(s.previousRanks, playerID)
	return nil
}

func (s *Session) start() error {
	if s.phase != PhaseLobby {
		return ErrInvalidTransition
	}
	if len(s.questions) == 0 {
		return ErrNoQuestions
	}
	s.currentIndex = -1
	return nil
}

// advance moves to the next question. A nil view with a nil error means the game is over.
func (s *Session) advance() (*DisplayQuestion, error) {
	if s.phase == PhaseEnd {
		return nil, ErrInvalidTransition
	}
	if s.phase == PhaseQuestion || s.phase == PhaseContext {
		s.endQuestion()
	}

	s.currentIndex++
	if s.currentIndex >= len(s.questions) {
		s.currentIndex = len(s.questions)
		s.phase = PhaseEnd
		s.clearTimer()
		return nil, nil
	}

	q := s.questions[s.currentIndex]
	s.streakAlerts = nil
	s.timerDuration = s.timeLimitFor(q)
	s.paused = false
	s.pausedRemaining = nil

	if q.HasContext() {
		s.phase = PhaseContext
		s.timerStartedAt = nil
	} else {
		s.phase = PhaseQuestion
		s.anchorTimer()
	}

	view := s.displayQuestion()
	return &view, nil
}

// peekNext reports what the next advance would select.
func (s *Session) peekNext() (index int, double bool, ends bool) {
	index = s.currentIndex + 1
	return index, index == s.doublePointsIndex, index >= len(s.questions)
}

func (s *Session) startQuestionTimer() error {
	if s.phase != PhaseContext {
		return ErrInvalidTransition
	}
	s.phase = PhaseQuestion
	s.anchorTimer()
	return nil
}

func (s *Session) submitAnswer(playerID string, answer Option) (*Feedback, *StreakAlert, error) {
	if s.phase != PhaseQuestion {
		return nil, nil, ErrInvalidTransition
	}
	if answer.Index() < 0 {
		return nil, nil, ErrInvalidOption
	}
	player, ok := s.players[playerID]
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	qi := s.currentIndex
	if s.hasAnswer(playerID, qi) {
		return nil, nil, ErrDuplicateSubmission
	}
	if s.timerStartedAt == nil || s.timerDuration == 0 {
		return nil, nil, ErrAnswerWindowClosed
	}

	// While paused the clock is frozen at the pause instant.
	limit := time.Duration(s.timerDuration) * time.Second
	elapsed := limit - s.remaining()
	if elapsed > limit+s.opts.GraceWindow {
		return nil, nil, ErrAnswerWindowClosed
	}
	responseMs := clampDuration(elapsed, 0, limit).Milliseconds()

	q := s.questions[qi]
	correct := answer == q.Correct
	streak := 0
	if correct {
		streak = player.Streak + 1
	}
	res := s.opts.Scoring.CalculateScore(scoring.Input{
		Correct:      correct,
		ResponseTime: time.Duration(responseMs) * time.Millisecond,
		TimeLimit:    limit,
		Double:       qi == s.doublePointsIndex,
		StreakAfter:  streak,
	})

	player.Streak = streak
	var alert *StreakAlert
	if correct {
		if streak > player.BestStreak {
			player.BestStreak = streak
		}
		player.CorrectCount++
		if player.FastestCorrectTime == nil || responseMs < *player.FastestCorrectTime {
			fastest := responseMs
			player.FastestCorrectTime = &fastest
		}
		if res.StreakBonus {
			a := StreakAlert{PlayerName: player.Name, Streak: streak}
			s.streakAlerts = append(s.streakAlerts, a)
			alert = &a
		}
	}
	player.Score += res.Points
	player.AnsweredCount++
	player.TotalResponseTime += responseMs

	selected := answer
	s.answers = append(s.answers, PlayerAnswer{
		PlayerID:      playerID,
		QuestionIndex: qi,
		Answer:        &selected,
		TimeMs:        responseMs,
		Points:        res.Points,
		Correct:       correct,
	})

	return &Feedback{
		Correct:       correct,
		CorrectAnswer: q.Correct,
		PointsGained:  res.Points,
		TotalScore:    player.Score,
		Rank:          s.rankOf(playerID),
		Streak:        player.Streak,
		StreakBonus:   res.StreakBonus,
	}, alert, nil
}

// endQuestion back-fills a timeout record for every player without one and
// returns how many were added.
func (s *Session) endQuestion() int {
	qi := s.currentIndex
	if qi < 0 || qi >= len(s.questions) {
		return 0
	}
	added := 0
	for _, p := range s.orderedPlayers() {
		if s.hasAnswer(p.ID, qi) {
			continue
		}
		p.Streak = 0
		s.answers = append(s.answers, PlayerAnswer{
			PlayerID:      p.ID,
			QuestionIndex: qi,
		})
		added++
	}
	return added
}

func (s *Session) reveal() (*Reveal, error) {
	switch s.phase {
	case PhaseContext, PhaseQuestion, PhaseReveal:
	default:
		return nil, ErrInvalidTransition
	}
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		return nil, ErrInvalidTransition
	}

	s.endQuestion()
	s.phase = PhaseReveal
	s.paused = false
	s.pausedRemaining = nil

	r := s.buildReveal()
	return &r, nil
}

func (s *Session) showLeaderboard() ([]LeaderboardEntry, error) {
	if s.phase != PhaseReveal && s.phase != PhaseLeaderboard {
		return nil, ErrInvalidTransition
	}
	entries := s.leaderboard()
	s.phase = PhaseLeaderboard
	s.saveRanks(entries)
	return entries, nil
}

func (s *Session) endGame() *FinalStats {
	if s.phase == PhaseQuestion || s.phase == PhaseContext {
		s.endQuestion()
	}
	s.phase = PhaseEnd
	s.clearTimer()
	stats := s.finalStats()
	return &stats
}

func (s *Session) pause() (time.Duration, error) {
	if s.phase != PhaseQuestion || s.paused || s.timerStartedAt == nil {
		return 0, ErrInvalidTransition
	}
	remaining := s.remaining()
	if remaining < 0 {
		remaining = 0
	}
	s.pausedRemaining = &remaining
	s.paused = true
	return remaining, nil
}

func (s *Session) resume() (time.Duration, error) {
	if s.phase != PhaseQuestion || !s.paused || s.pausedRemaining == nil {
		return 0, ErrInvalidTransition
	}
	remaining := *s.pausedRemaining
	duration := time.Duration(s.timerDuration) * time.Second
	startedAt := s.now().Add(-(duration - remaining))
	s.timerStartedAt = &startedAt
	s.paused = false
	s.pausedRemaining = nil
	return remaining, nil
}

func (s *Session) restart() {
	s.currentIndex = -1
	s.phase = PhaseLobby
	s.clearTimer()
	s.answers = nil
	s.streakAlerts = nil
	s.previousRanks = make(map[string]int)
	s.players = make(map[string]*Player)
	s.joinSeq = 0
	s.recorded = false
	if len(s.questions) >= doublePointsMinQuestions {
		s.doublePointsIndex = s.drawDoublePoints()
	}
}

// remaining is the time left on the current question clock.
func (s *Session) remaining() time.Duration {
	if s.paused && s.pausedRemaining != nil {
		return *s.pausedRemaining
	}
	if s.timerStartedAt == nil {
		return 0
	}
	duration := time.Duration(s.timerDuration) * time.Second
	return duration - s.now().Sub(*s.timerStartedAt)
}

func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:                   s.id,
		JoinCode:             s.joinCode,
		Phase:                s.phase,
		CurrentQuestionIndex: s.currentIndex,
		TotalQuestions:       len(s.questions),
		PlayerCount:          len(s.players),
		Paused:               s.paused,
		CreatedAt:            s.createdAt,
	}
}

func (s *Session) isLastQuestion() bool {
	return s.currentIndex >= len(s.questions)-1
}

func (s *Session) hasAnswer(playerID string, questionIndex int) bool {
	for _, a := range s.answers {
		if a.PlayerID == playerID && a.QuestionIndex == questionIndex {
			return true
		}
	}
	return false
}

func (s *Session) answeredCount(questionIndex int) int {
	n := 0
	for _, a := range s.answers {
		if a.QuestionIndex == questionIndex {
			n++
		}
	}
	return n
}

func (s *Session) orderedPlayers() []*Player {
	players := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].joinSeq < players[j].joinSeq })
	return players
}

func (s *Session) timeLimitFor(q Question) int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return s.defaultTimeLimit
}

func (s *Session) anchorTimer() {
	now := s.now()
	s.timerStartedAt = &now
}

func (s *Session) clearTimer() {
	s.timerStartedAt = nil
	s.timerDuration = 0
	s.paused = false
	s.pausedRemaining = nil
}

func (s *Session) now() time.Time {
	return s.opts.Clock.Now()
}

var nameReplacer = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")

func sanitizeName(raw string, max int) string {
	name := strings.TrimSpace(nameReplacer.Replace(raw))
	if runes := []rune(name); len(runes) > max {
		name = string(runes[:max])
	}
	return name
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
