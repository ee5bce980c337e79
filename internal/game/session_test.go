package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

func sampleQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			ID:      fmt.Sprintf("q%d", i),
			Text:    fmt.Sprintf("Question %d?", i),
			Options: [4]string{"one", "two", "three", "four"},
			Correct: OptionB,
		}
	}
	return qs
}

// noDouble pins the double-points draw outside the question range.
func noDouble(int) int { return 99 }

func newTestSession(t *testing.T, questions []Question, pick func(int) int) (*Session, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	if pick == nil {
		pick = noDouble
	}
	s, err := NewSession(questions, SessionOptions{Clock: clock, Pick: pick})
	require.NoError(t, err)
	return s, clock
}

func addPlayers(t *testing.T, s *Session, names ...string) []*Player {
	t.Helper()
	players := make([]*Player, len(names))
	for i, name := range names {
		p, err := s.addPlayer(name)
		require.NoError(t, err)
		players[i] = p
	}
	return players
}

func TestNewSession_RejectsInvalidQuestion(t *testing.T) {
	qs := sampleQuestions(2)
	qs[1].Options[2] = "  "

	_, err := NewSession(qs, SessionOptions{})
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestNewSession_InitialState(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(3), func(int) int { return 2 })

	assert.Equal(t, PhaseLobby, s.phase)
	assert.Equal(t, -1, s.currentIndex)
	assert.Equal(t, 2, s.doublePointsIndex)
	assert.NotEmpty(t, s.ID())
	assert.NotEqual(t, s.ID(), s.HostKey())
	assert.Equal(t, defaultTimeLimitSeconds, s.defaultTimeLimit)
}

func TestNewSession_NoDoublePointsBelowThreeQuestions(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(2), func(int) int { return 0 })
	assert.Equal(t, -1, s.doublePointsIndex)
}

func TestAuthorize(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	assert.True(t, s.authorize(s.HostKey()))
	assert.False(t, s.authorize("nope"))
	assert.False(t, s.authorize(""))
}

func TestAddPlayer(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)

	p, err := s.addPlayer("  <b>Sara</b> ")
	require.NoError(t, err)
	assert.Equal(t, "bSara/b", p.Name)
	assert.True(t, p.Connected)
	assert.Equal(t, s.ID(), p.SessionID)

	again, err := s.addPlayer("bsara/B")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID, "same name rejoins the existing player")
	assert.Len(t, s.players, 1)

	_, err = s.addPlayer(` <>&"' `)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAddPlayer_TruncatesLongNames(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	p, err := s.addPlayer("ابتسامةابتسامةابتسامةابتسامةابتسامة")
	require.NoError(t, err)
	assert.Len(t, []rune(p.Name), defaultMaxNameLength)
}

func TestAddPlayer_OnlyInLobby(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	require.NoError(t, s.start())
	_, err := s.advance()
	require.NoError(t, err)

	_, err = s.addPlayer("Late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReconnectAndDisconnect(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	p := addPlayers(t, s, "Omar")[0]

	require.NoError(t, s.disconnectPlayer(p.ID))
	assert.False(t, s.players[p.ID].Connected)

	got, err := s.reconnectPlayer(p.ID)
	require.NoError(t, err)
	assert.True(t, got.Connected)

	_, err = s.reconnectPlayer("ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.ErrorIs(t, s.disconnectPlayer("ghost"), ErrPlayerNotFound)
}

func TestKickPlayer(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	p := addPlayers(t, s, "Omar", "Lina")[0]

	require.NoError(t, s.kickPlayer(p.ID))
	assert.Len(t, s.players, 1)
	assert.ErrorIs(t, s.kickPlayer(p.ID), ErrPlayerNotFound)
}

func TestStart(t *testing.T) {
	empty, _ := newTestSession(t, nil, nil)
	assert.ErrorIs(t, empty.start(), ErrNoQuestions)

	s, _ := newTestSession(t, sampleQuestions(2), nil)
	require.NoError(t, s.start())
	_, err := s.advance()
	require.NoError(t, err)
	assert.ErrorIs(t, s.start(), ErrInvalidTransition)
}

func TestAdvance_WalksQuestionsThenEnds(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(2), nil)

	view, err := s.advance()
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 0, view.Index)
	assert.Equal(t, PhaseQuestion, s.phase)
	assert.Equal(t, 2, view.TotalQuestions)
	assert.Equal(t, defaultTimeLimitSeconds, view.TimeLimit)
	assert.NotNil(t, s.timerStartedAt)

	view, err = s.advance()
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 1, s.currentIndex)

	view, err = s.advance()
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Equal(t, PhaseEnd, s.phase)
	assert.Equal(t, 2, s.currentIndex)
	assert.Nil(t, s.timerStartedAt)

	_, err = s.advance()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 2, s.currentIndex)
}

func TestAdvance_BackfillsSkippedQuestion(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(2), nil)
	p := addPlayers(t, s, "Omar")[0]
	p.Streak = 2

	_, err := s.advance()
	require.NoError(t, err)
	_, err = s.advance()
	require.NoError(t, err)

	require.Len(t, s.answers, 1)
	assert.Nil(t, s.answers[0].Answer)
	assert.Equal(t, 0, s.answers[0].QuestionIndex)
	assert.Equal(t, 0, p.Streak)
}

func TestAdvance_ContextQuestion(t *testing.T) {
	qs := sampleQuestions(1)
	qs[0].Context = "In 1969 a rocket left Florida..."
	qs[0].TimeLimit = 10
	s, clock := newTestSession(t, qs, nil)
	p := addPlayers(t, s, "Omar")[0]

	view, err := s.advance()
	require.NoError(t, err)
	assert.Equal(t, PhaseContext, s.phase)
	assert.Equal(t, qs[0].Context, view.Context)
	assert.Nil(t, s.timerStartedAt)

	_, _, err = s.submitAnswer(p.ID, OptionB)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	clock.Advance(3 * time.Second)
	require.NoError(t, s.startQuestionTimer())
	assert.Equal(t, PhaseQuestion, s.phase)
	require.NotNil(t, s.timerStartedAt)
	assert.Equal(t, clock.Now(), *s.timerStartedAt)
	assert.Equal(t, 10, s.timerDuration)

	assert.ErrorIs(t, s.startQuestionTimer(), ErrInvalidTransition)
}

func TestSubmitAnswer_Scoring(t *testing.T) {
	s, clock := newTestSession(t, sampleQuestions(2), nil)
	players := addPlayers(t, s, "Fast", "Slow", "Wrong")
	_, err := s.advance()
	require.NoError(t, err)

	fb, alert, err := s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.True(t, fb.Correct)
	assert.Equal(t, 1300, fb.PointsGained)
	assert.Equal(t, 1, fb.Rank)
	assert.Equal(t, 1, fb.Streak)

	clock.Advance(15 * time.Second)
	fb, _, err = s.submitAnswer(players[1].ID, OptionB)
	require.NoError(t, err)
	assert.Equal(t, 1150, fb.PointsGained)
	assert.Equal(t, 2, fb.Rank)

	fb, _, err = s.submitAnswer(players[2].ID, OptionA)
	require.NoError(t, err)
	assert.False(t, fb.Correct)
	assert.Equal(t, OptionB, fb.CorrectAnswer)
	assert.Equal(t, 0, fb.PointsGained)
	assert.Equal(t, 3, fb.Rank)
	assert.Equal(t, 1, players[2].AnsweredCount)
	assert.Equal(t, int64(15000), players[2].TotalResponseTime)

	require.NotNil(t, players[1].FastestCorrectTime)
	assert.Equal(t, int64(15000), *players[1].FastestCorrectTime)
	assert.Equal(t, 3, s.answeredCount(0))
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	p := addPlayers(t, s, "Omar")[0]

	_, _, err := s.submitAnswer(p.ID, OptionA)
	assert.ErrorIs(t, err, ErrInvalidTransition, "no question in lobby")

	_, err = s.advance()
	require.NoError(t, err)

	_, _, err = s.submitAnswer("ghost", OptionA)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, _, err = s.submitAnswer(p.ID, Option("E"))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, _, err = s.submitAnswer(p.ID, OptionA)
	require.NoError(t, err)
	score := p.Score

	_, _, err = s.submitAnswer(p.ID, OptionB)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.True(t, IsRejectedAnswer(err))
	assert.Equal(t, score, p.Score)
	assert.Len(t, s.answers, 1)
}

func TestSubmitAnswer_GraceWindow(t *testing.T) {
	s, clock := newTestSession(t, sampleQuestions(1), nil)
	players := addPlayers(t, s, "Edge", "Late")
	_, err := s.advance()
	require.NoError(t, err)

	clock.Advance(32 * time.Second)
	fb, _, err := s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err, "limit plus grace is inclusive")
	assert.Equal(t, 1000, fb.PointsGained, "response time is clamped to the limit")
	assert.Equal(t, int64(30000), s.answers[0].TimeMs)

	clock.Advance(time.Millisecond)
	_, _, err = s.submitAnswer(players[1].ID, OptionB)
	assert.ErrorIs(t, err, ErrAnswerWindowClosed)
	assert.True(t, IsRejectedAnswer(err))
}

func TestSubmitAnswer_StreakBonus(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(4), nil)
	p := addPlayers(t, s, "Omar")[0]

	var (
		last  *Feedback
		alert *StreakAlert
		err   error
	)
	for i := 0; i < 3; i++ {
		_, err = s.advance()
		require.NoError(t, err)
		last, alert, err = s.submitAnswer(p.ID, OptionB)
		require.NoError(t, err)
	}

	assert.True(t, last.StreakBonus)
	assert.Equal(t, 1800, last.PointsGained)
	require.NotNil(t, alert)
	assert.Equal(t, StreakAlert{PlayerName: "Omar", Streak: 3}, *alert)
	assert.Equal(t, 3, p.BestStreak)
	assert.Equal(t, 1300+1300+1800, p.Score)

	_, err = s.advance()
	require.NoError(t, err)
	assert.Empty(t, s.streakAlerts, "alerts are per question")
	fb, _, err := s.submitAnswer(p.ID, OptionC)
	require.NoError(t, err)
	assert.Equal(t, 0, fb.Streak)
	assert.Equal(t, 3, p.BestStreak)
}

func TestSubmitAnswer_DoublePoints(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(3), func(int) int { return 1 })
	p := addPlayers(t, s, "Omar")[0]

	view, err := s.advance()
	require.NoError(t, err)
	assert.False(t, view.IsDoublePoints)
	_, _, err = s.submitAnswer(p.ID, OptionB)
	require.NoError(t, err)

	view, err = s.advance()
	require.NoError(t, err)
	assert.True(t, view.IsDoublePoints)
	fb, _, err := s.submitAnswer(p.ID, OptionB)
	require.NoError(t, err)
	assert.Equal(t, 2600, fb.PointsGained)
}

func TestEndQuestion_BackfillsEveryPlayer(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	players := addPlayers(t, s, "A", "B", "C")
	require.NoError(t, s.disconnectPlayer(players[2].ID))
	_, err := s.advance()
	require.NoError(t, err)

	_, _, err = s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err)
	players[1].Streak = 4

	assert.Equal(t, 2, s.endQuestion())
	assert.Equal(t, 0, s.endQuestion(), "second call adds nothing")
	assert.Equal(t, 0, players[1].Streak)
	assert.Equal(t, 1, players[0].Streak)
	assert.Equal(t, 3, s.answeredCount(0))

	_, _, err = s.submitAnswer(players[1].ID, OptionB)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestReveal(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(2), nil)

	_, err := s.reveal()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	players := addPlayers(t, s, "A", "B", "C", "D")
	_, err = s.advance()
	require.NoError(t, err)
	for i, opt := range []Option{OptionB, OptionB, OptionA} {
		_, _, err := s.submitAnswer(players[i].ID, opt)
		require.NoError(t, err)
	}

	r, err := s.reveal()
	require.NoError(t, err)
	assert.Equal(t, PhaseReveal, s.phase)
	assert.Equal(t, OptionB, r.Correct)
	assert.Equal(t, map[Option]int{OptionA: 1, OptionB: 2, OptionC: 0, OptionD: 0}, r.Distribution)
	assert.Equal(t, map[Option]int{OptionA: 25, OptionB: 50, OptionC: 0, OptionD: 0}, r.Percentages)
	assert.Len(t, r.TopFastest, 2)
	assert.Len(t, r.Leaderboard, 4)
	assert.False(t, s.isLastQuestion())

	_, err = s.reveal()
	assert.NoError(t, err, "reveal may repeat")
}

func TestShowLeaderboard_TracksPreviousRanks(t *testing.T) {
	s, clock := newTestSession(t, sampleQuestions(2), nil)
	players := addPlayers(t, s, "A", "B")

	_, err := s.showLeaderboard()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.advance()
	require.NoError(t, err)
	clock.Advance(15 * time.Second)
	_, _, err = s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err)
	_, err = s.reveal()
	require.NoError(t, err)

	entries, err := s.showLeaderboard()
	require.NoError(t, err)
	assert.Equal(t, PhaseLeaderboard, s.phase)
	assert.Equal(t, "A", entries[0].Name)
	assert.Nil(t, entries[0].PreviousRank)

	_, err = s.advance()
	require.NoError(t, err)
	_, _, err = s.submitAnswer(players[1].ID, OptionB)
	require.NoError(t, err)
	_, err = s.reveal()
	require.NoError(t, err)

	entries, err = s.showLeaderboard()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Name)
	require.NotNil(t, entries[0].PreviousRank)
	assert.Equal(t, 2, *entries[0].PreviousRank)
	assert.Equal(t, 1, *entries[1].PreviousRank)
	assert.Equal(t, 1, s.previousRanks[players[1].ID])
}

func TestLeaderboard_TiesFollowJoinOrder(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	addPlayers(t, s, "Zed", "Amy", "Bob")

	entries := s.leaderboard()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"Zed", "Amy", "Bob"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
}

func TestPauseResume_PreservesRemaining(t *testing.T) {
	s, clock := newTestSession(t, sampleQuestions(1), nil)
	players := addPlayers(t, s, "Omar", "Lena")

	_, err := s.pause()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.advance()
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	remaining, err := s.pause()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, remaining)

	_, err = s.pause()
	assert.ErrorIs(t, err, ErrInvalidTransition, "already paused")

	clock.Advance(time.Minute)
	assert.Equal(t, 20*time.Second, s.remaining())

	// answers still land while paused, timed at the pause instant
	fb, _, err := s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err)
	assert.Equal(t, 1200, fb.PointsGained)
	assert.Equal(t, int64(10000), s.answers[0].TimeMs)

	remaining, err = s.resume()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, remaining)
	assert.Equal(t, 20*time.Second, s.remaining())
	assert.Equal(t, clock.Now().Add(-10*time.Second), *s.timerStartedAt)

	_, err = s.resume()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	fb, _, err = s.submitAnswer(players[1].ID, OptionB)
	require.NoError(t, err)
	assert.Equal(t, 1200, fb.PointsGained)
}

func TestEndGame(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(3), nil)
	players := addPlayers(t, s, "A", "B")
	_, err := s.advance()
	require.NoError(t, err)
	_, _, err = s.submitAnswer(players[0].ID, OptionB)
	require.NoError(t, err)

	stats := s.endGame()
	assert.Equal(t, PhaseEnd, s.phase)
	assert.Equal(t, 2, s.answeredCount(0), "live question is back-filled")
	require.NotNil(t, stats.Winner)
	assert.Equal(t, "A", stats.Winner.Name)
	assert.Equal(t, 3, stats.TotalQuestions)
	assert.Equal(t, 0, stats.ParticipationRate)

	_, err = s.advance()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRestart(t *testing.T) {
	s, _ := newTestSession(t, sampleQuestions(3), nil)
	addPlayers(t, s, "A", "B")
	_, err := s.advance()
	require.NoError(t, err)
	s.endGame()
	s.recorded = true

	s.restart()
	assert.Equal(t, PhaseLobby, s.phase)
	assert.Equal(t, -1, s.currentIndex)
	assert.Empty(t, s.players)
	assert.Empty(t, s.answers)
	assert.False(t, s.recorded)
	assert.Len(t, s.questions, 3)

	_, err = s.addPlayer("C")
	assert.NoError(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sara", "Sara"},
		{"  Tom  ", "Tom"},
		{"<script>", "script"},
		{`O'Neil & "Co"`, "ONeil  Co"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in, 30), tt.in)
	}
	assert.Equal(t, "abc", sanitizeName("abcdef", 3))
}
