package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/partyquiz/internal/db/queries"
	"github.com/gokatarajesh/partyquiz/internal/leaderboard"
)

type snapshotStore interface {
	InsertLeaderboardSnapshot(ctx context.Context, params queries.InsertLeaderboardSnapshotParams) error
	LatestLeaderboardSnapshot(ctx context.Context, window string) (queries.LeaderboardSnapshot, error)
}

// SnapshotRepository persists hall-of-fame snapshots.
type SnapshotRepository struct {
	store snapshotStore
}

var _ leaderboard.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(store snapshotStore) *SnapshotRepository {
	return &SnapshotRepository{store: store}
}

func (r *SnapshotRepository) InsertSnapshot(ctx context.Context, snap leaderboard.Snapshot) error {
	return r.store.InsertLeaderboardSnapshot(ctx, queries.InsertLeaderboardSnapshotParams{
		Window:      snap.Window,
		GeneratedAt: snap.GeneratedAt,
		Entries:     snap.Entries,
		SourceHash:  snap.SourceHash,
	})
}

func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, window string) (*leaderboard.Snapshot, error) {
	row, err := r.store.LatestLeaderboardSnapshot(ctx, window)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, leaderboard.ErrNoSnapshot
		}
		return nil, err
	}
	return &leaderboard.Snapshot{
		Window:      row.Window,
		GeneratedAt: row.GeneratedAt,
		Entries:     row.Entries,
		SourceHash:  row.SourceHash,
	}, nil
}
