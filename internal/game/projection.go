package game

import (
	"math"
	"sort"
)

// DisplayQuestion is what the big screen shows: no options, no answer key.
type DisplayQuestion struct {
	Index          int    `json:"index"`
	Context        string `json:"context,omitempty"`
	Text           string `json:"text"`
	TotalQuestions int    `json:"total_questions"`
	TimeLimit      int    `json:"time_limit"`
	IsDoublePoints bool   `json:"is_double_points"`
}

// HostQuestion adds the answer key and live progress for the host console.
type HostQuestion struct {
	DisplayQuestion
	Options       [4]string `json:"options"`
	Correct       Option    `json:"correct"`
	AnsweredCount int       `json:"answered_count"`
	TotalPlayers  int       `json:"total_players"`
}

// PlayerQuestion is the phone view; never carries the answer key.
type PlayerQuestion struct {
	Index          int       `json:"index"`
	Text           string    `json:"text"`
	Options        [4]string `json:"options"`
	TotalQuestions int       `json:"total_questions"`
	TimeLimit      int       `json:"time_limit"`
	IsDoublePoints bool      `json:"is_double_points"`
}

// Feedback is returned to a player whose answer was accepted.
type Feedback struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer Option `json:"correct_answer"`
	PointsGained  int    `json:"points_gained"`
	TotalScore    int    `json:"total_score"`
	Rank          int    `json:"rank"`
	Streak        int    `json:"streak"`
	StreakBonus   bool   `json:"streak_bonus"`
}

// AnswerProgress is the live answered counter shown to host and display.
type AnswerProgress struct {
	AnsweredCount int `json:"answered_count"`
	TotalPlayers  int `json:"total_players"`
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Rank         int    `json:"rank"`
	PreviousRank *int   `json:"previous_rank"`
	Streak       int    `json:"streak"`
}

// FastestAnswer is a public entry of the reveal's fastest-correct list.
type FastestAnswer struct {
	Name   string `json:"name"`
	TimeMs int64  `json:"time_ms"`
}

// Reveal aggregates one question's results for every audience.
type Reveal struct {
	QuestionIndex  int                `json:"question_index"`
	Correct        Option             `json:"correct"`
	Options        [4]string          `json:"options"`
	Distribution   map[Option]int     `json:"distribution"`
	Percentages    map[Option]int     `json:"percentages"`
	TopFastest     []FastestAnswer    `json:"top_fastest"`
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	IsDoublePoints bool               `json:"is_double_points"`
	StreakPlayers  []StreakAlert      `json:"streak_players"`
}

// FastestCorrect is the quickest correct answer of the whole game.
type FastestCorrect struct {
	PlayerName    string `json:"player_name"`
	TimeMs        int64  `json:"time_ms"`
	QuestionIndex int    `json:"question_index"`
}

// BestStreak is the longest streak any player reached.
type BestStreak struct {
	PlayerName   string `json:"player_name"`
	StreakLength int    `json:"streak_length"`
}

// HardestQuestion is the question with the lowest correct percentage.
type HardestQuestion struct {
	QuestionIndex  int    `json:"question_index"`
	QuestionText   string `json:"question_text"`
	CorrectPercent int    `json:"correct_percent"`
}

// FinalStats is computed once when the game ends.
type FinalStats struct {
	FastestCorrect    *FastestCorrect    `json:"fastest_correct"`
	BestStreak        *BestStreak        `json:"best_streak"`
	HardestQuestion   *HardestQuestion   `json:"hardest_question"`
	AvgResponseTime   int64              `json:"avg_response_time_ms"`
	ParticipationRate int                `json:"participation_rate"`
	TotalPlayers      int                `json:"total_players"`
	TotalQuestions    int                `json:"total_questions"`
	Winner            *LeaderboardEntry  `json:"winner"`
	Podium            []LeaderboardEntry `json:"podium"`
	FullLeaderboard   []LeaderboardEntry `json:"full_leaderboard"`
}

const (
	revealLeaderboardSize = 5
	revealFastestSize     = 3
	podiumSize            = 3
)

// leaderboard ranks players by score; ties go to the earlier joiner, then by name.
func (s *Session) leaderboard() []LeaderboardEntry {
	players := s.orderedPlayers()
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		if players[i].joinSeq != players[j].joinSeq {
			return players[i].joinSeq < players[j].joinSeq
		}
		return players[i].Name < players[j].Name
	})

	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
			Rank:     i + 1,
			Streak:   p.Streak,
		}
		if prev, ok := s.previousRanks[p.ID]; ok {
			prev := prev
			entries[i].PreviousRank = &prev
		}
	}
	return entries
}

func (s *Session) saveRanks(entries []LeaderboardEntry) {
	s.previousRanks = make(map[string]int, len(entries))
	for _, e := range entries {
		s.previousRanks[e.PlayerID] = e.Rank
	}
}

func (s *Session) rankOf(playerID string) int {
	for _, e := range s.leaderboard() {
		if e.PlayerID == playerID {
			return e.Rank
		}
	}
	return len(s.players)
}

func (s *Session) playerList() []PlayerSummary {
	players := s.orderedPlayers()
	list := make([]PlayerSummary, len(players))
	for i, p := range players {
		list[i] = PlayerSummary{ID: p.ID, Name: p.Name, Connected: p.Connected}
	}
	return list
}

func (s *Session) displayQuestion() DisplayQuestion {
	q := s.questions[s.currentIndex]
	return DisplayQuestion{
		Index:          s.currentIndex,
		Context:        q.Context,
		Text:           q.Text,
		TotalQuestions: len(s.questions),
		TimeLimit:      s.timeLimitFor(q),
		IsDoublePoints: s.currentIndex == s.doublePointsIndex,
	}
}

func (s *Session) hostQuestion() HostQuestion {
	q := s.questions[s.currentIndex]
	return HostQuestion{
		DisplayQuestion: s.displayQuestion(),
		Options:         q.Options,
		Correct:         q.Correct,
		AnsweredCount:   s.answeredCount(s.currentIndex),
		TotalPlayers:    len(s.players),
	}
}

func (s *Session) questionForPlayer() (*PlayerQuestion, error) {
	if s.phase != PhaseQuestion {
		return nil, ErrInvalidTransition
	}
	q := s.questions[s.currentIndex]
	return &PlayerQuestion{
		Index:          s.currentIndex,
		Text:           q.Text,
		Options:        q.Options,
		TotalQuestions: len(s.questions),
		TimeLimit:      s.timeLimitFor(q),
		IsDoublePoints: s.currentIndex == s.doublePointsIndex,
	}, nil
}

func (s *Session) progress() AnswerProgress {
	return AnswerProgress{
		AnsweredCount: s.answeredCount(s.currentIndex),
		TotalPlayers:  len(s.players),
	}
}

func (s *Session) buildReveal() Reveal {
	qi := s.currentIndex
	q := s.questions[qi]

	dist := map[Option]int{OptionA: 0, OptionB: 0, OptionC: 0, OptionD: 0}
	var records []PlayerAnswer
	for _, a := range s.answers {
		if a.QuestionIndex != qi {
			continue
		}
		records = append(records, a)
		if a.Answer != nil {
			dist[*a.Answer]++
		}
	}

	total := len(records)
	if total == 0 {
		total = 1
	}
	pct := make(map[Option]int, len(dist))
	for opt, n := range dist {
		pct[opt] = percent(n, total)
	}

	var correct []PlayerAnswer
	for _, a := range records {
		if a.Correct {
			correct = append(correct, a)
		}
	}
	sort.SliceStable(correct, func(i, j int) bool { return correct[i].TimeMs < correct[j].TimeMs })
	if len(correct) > revealFastestSize {
		correct = correct[:revealFastestSize]
	}
	fastest := make([]FastestAnswer, len(correct))
	for i, a := range correct {
		fastest[i] = FastestAnswer{Name: s.playerName(a.PlayerID), TimeMs: a.TimeMs}
	}

	lb := s.leaderboard()
	if len(lb) > revealLeaderboardSize {
		lb = lb[:revealLeaderboardSize]
	}

	streaks := make([]StreakAlert, len(s.streakAlerts))
	copy(streaks, s.streakAlerts)

	return Reveal{
		QuestionIndex:  qi,
		Correct:        q.Correct,
		Options:        q.Options,
		Distribution:   dist,
		Percentages:    pct,
		TopFastest:     fastest,
		Leaderboard:    lb,
		IsDoublePoints: qi == s.doublePointsIndex,
		StreakPlayers:  streaks,
	}
}

func (s *Session) finalStats() FinalStats {
	players := s.orderedPlayers()
	stats := FinalStats{
		TotalPlayers:   len(players),
		TotalQuestions: len(s.questions),
	}

	var fastest *PlayerAnswer
	var answeredSum int64
	answered := 0
	for i := range s.answers {
		a := &s.answers[i]
		if a.Correct && (fastest == nil || a.TimeMs < fastest.TimeMs) {
			fastest = a
		}
		if a.Answer != nil {
			answeredSum += a.TimeMs
			answered++
		}
	}
	if fastest != nil {
		stats.FastestCorrect = &FastestCorrect{
			PlayerName:    s.playerName(fastest.PlayerID),
			TimeMs:        fastest.TimeMs,
			QuestionIndex: fastest.QuestionIndex,
		}
	}
	if answered > 0 {
		stats.AvgResponseTime = int64(math.Round(float64(answeredSum) / float64(answered)))
	}

	var best *Player
	for _, p := range players {
		if best == nil || p.BestStreak > best.BestStreak {
			best = p
		}
	}
	if best != nil && best.BestStreak > 0 {
		stats.BestStreak = &BestStreak{PlayerName: best.Name, StreakLength: best.BestStreak}
	}

	stats.HardestQuestion = s.hardestQuestion()

	if len(players) > 0 {
		half := float64(len(s.questions)) * 0.5
		engaged := 0
		for _, p := range players {
			if float64(p.AnsweredCount) >= half {
				engaged++
			}
		}
		stats.ParticipationRate = percent(engaged, len(players))
	}

	lb := s.leaderboard()
	stats.FullLeaderboard = lb
	stats.Podium = lb
	if len(lb) > podiumSize {
		stats.Podium = lb[:podiumSize]
	}
	if len(lb) > 0 {
		winner := lb[0]
		stats.Winner = &winner
	}
	return stats
}

// hardestQuestion only considers questions that have answer records; the
// lowest index wins ties.
func (s *Session) hardestQuestion() *HardestQuestion {
	totals := make([]int, len(s.questions))
	corrects := make([]int, len(s.questions))
	for _, a := range s.answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(s.questions) {
			continue
		}
		totals[a.QuestionIndex]++
		if a.Correct {
			corrects[a.QuestionIndex]++
		}
	}

	hardest := -1
	lowest := math.Inf(1)
	for i := range s.questions {
		if totals[i] == 0 {
			continue
		}
		pct := float64(corrects[i]) / float64(totals[i]) * 100
		if pct < lowest {
			lowest = pct
			hardest = i
		}
	}
	if hardest < 0 {
		return nil
	}
	return &HardestQuestion{
		QuestionIndex:  hardest,
		QuestionText:   s.questions[hardest].Text,
		CorrectPercent: int(math.Round(lowest)),
	}
}

func (s *Session) playerName(playerID string) string {
	if p, ok := s.players[playerID]; ok {
		return p.Name
	}
	return "Unknown"
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
