package queries

import (
	"context"
	"time"
)

const insertLeaderboardSnapshot = `INSERT INTO leaderboard_snapshots (window_name, generated_at, entries, source_hash)
VALUES ($1, $2, $3, $4)`

type InsertLeaderboardSnapshotParams struct {
	Window      string
	GeneratedAt time.Time
	Entries     []byte
	SourceHash  string
}

func (q *Queries) InsertLeaderboardSnapshot(ctx context.Context, p InsertLeaderboardSnapshotParams) error {
	_, err := q.db.Exec(ctx, insertLeaderboardSnapshot, p.Window, p.GeneratedAt, p.Entries, p.SourceHash)
	return err
}

const latestLeaderboardSnapshot = `SELECT id, window_name, generated_at, entries, source_hash
FROM leaderboard_snapshots
WHERE window_name = $1
ORDER BY generated_at DESC
LIMIT 1`

func (q *Queries) LatestLeaderboardSnapshot(ctx context.Context, window string) (LeaderboardSnapshot, error) {
	var s LeaderboardSnapshot
	err := q.db.QueryRow(ctx, latestLeaderboardSnapshot, window).
		Scan(&s.ID, &s.Window, &s.GeneratedAt, &s.Entries, &s.SourceHash)
	return s, err
}
