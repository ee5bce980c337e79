package queries

import "time"

type Question struct {
	ID        string
	Position  int64
	Context   string
	Text      string
	Options   []string
	Correct   string
	Category  string
	TimeLimit int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type LeaderboardSnapshot struct {
	ID          int64
	Window      string
	GeneratedAt time.Time
	Entries     []byte
	SourceHash  string
}
