package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/partyquiz/pkg/http/ws"
)

// ErrNoSnapshot is returned when a window has never been persisted.
var ErrNoSnapshot = errors.New("leaderboard snapshot not found")

// Snapshot is a persisted copy of a window's top entries.
type Snapshot struct {
	Window      string
	GeneratedAt time.Time
	Entries     json.RawMessage
	SourceHash  string
}

// SnapshotStore persists leaderboard snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap Snapshot) error
	LatestSnapshot(ctx context.Context, window string) (*Snapshot, error)
}

// SnapshotWorker periodically persists Redis leaderboards into Postgres.
type SnapshotWorker struct {
	svc      *Service
	store    SnapshotStore
	logger   zerolog.Logger
	interval time.Duration
	topN     int

	lastHash map[string]string
}

func NewSnapshotWorker(svc *Service, store SnapshotStore, interval time.Duration, topN int, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 50
	}
	return &SnapshotWorker{
		svc:      svc,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     topN,
		lastHash: make(map[string]string),
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.store == nil {
		return nil
	}

	ticker := w.svc.opts.Clock.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	for _, window := range w.svc.Windows() {
		if err := w.snapshotWindow(ctx, window); err != nil {
			w.logger.Warn().Err(err).Str("window", window).Msg("snapshot failed")
		}
	}
}

func (w *SnapshotWorker) snapshotWindow(ctx context.Context, window string) error {
	entries, err := w.svc.Top(ctx, window, w.topN)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	wsEntries := wireEntries(entries)
	data, err := json.Marshal(wsEntries)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if w.lastHash[window] == hash {
		return nil
	}

	now := w.svc.opts.Clock.Now().UTC()
	if err := w.store.InsertSnapshot(ctx, Snapshot{
		Window:      window,
		GeneratedAt: now,
		Entries:     data,
		SourceHash:  hash,
	}); err != nil {
		return err
	}
	w.lastHash[window] = hash

	w.logger.Info().
		Str("window", window).
		Int("entries", len(wsEntries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")

	return nil
}

// decodeSnapshot returns at most limit entries of a persisted snapshot.
func decodeSnapshot(snap *Snapshot, limit int) ([]ws.LeaderboardEntry, error) {
	var entries []ws.LeaderboardEntry
	if err := json.Unmarshal(snap.Entries, &entries); err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
