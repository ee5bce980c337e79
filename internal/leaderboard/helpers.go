package leaderboard

import ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"

// playerMeta is the per-window hash stored next to each sorted set member.
type playerMeta struct {
	DisplayName string `redis:"display_name"`
	Wins        int    `redis:"wins"`
	Games       int    `redis:"games"`
	Correct     int    `redis:"correct"`
	Questions   int    `redis:"questions"`
}

func (m playerMeta) entry(player string, score int) Entry {
	e := Entry{
		PlayerKey:     player,
		DisplayName:   m.DisplayName,
		Score:         score,
		Wins:          m.Wins,
		Games:         m.Games,
		CorrectTotal:  m.Correct,
		QuestionTotal: m.Questions,
	}
	if e.DisplayName == "" {
		e.DisplayName = player
	}
	if e.QuestionTotal > 0 {
		e.Accuracy = float64(e.CorrectTotal) / float64(e.QuestionTotal)
	}
	return e
}

// wireEntries ranks entries from 1 in the order given.
func wireEntries(entries []Entry) []ws.LeaderboardEntry {
	out := make([]ws.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, ws.LeaderboardEntry{
			Rank:        i + 1,
			PlayerKey:   e.PlayerKey,
			DisplayName: e.DisplayName,
			Score:       e.Score,
			Wins:        e.Wins,
			Games:       e.Games,
			Accuracy:    e.Accuracy,
		})
	}
	return out
}
