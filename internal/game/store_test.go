package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTracker(t *testing.T) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTracker(client, "pq", time.Hour), mr
}

func TestStore_AddAssignsJoinCode(t *testing.T) {
	st := NewStore(nil, zerolog.Nop())
	s, _ := newTestSession(t, sampleQuestions(1), nil)

	require.NoError(t, st.Add(context.Background(), s))
	code := s.JoinCode()
	assert.Len(t, code, codeLength)
	for _, r := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
	}

	got, err := st.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	byCode, err := st.GetByCode(" " + strings.ToLower(code) + " ")
	require.NoError(t, err)
	assert.Same(t, s, byCode)
	assert.Equal(t, 1, st.Len())
}

func TestStore_UniqueCodes(t *testing.T) {
	st := NewStore(nil, zerolog.Nop())
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s, _ := newTestSession(t, sampleQuestions(1), nil)
		require.NoError(t, st.Add(context.Background(), s))
		assert.False(t, seen[s.JoinCode()])
		seen[s.JoinCode()] = true
	}
}

func TestStore_Delete(t *testing.T) {
	st := NewStore(nil, zerolog.Nop())
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	require.NoError(t, st.Add(context.Background(), s))

	require.NoError(t, st.Delete(context.Background(), s.ID()))
	_, err := st.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.GetByCode(s.JoinCode())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, st.Delete(context.Background(), s.ID()), ErrSessionNotFound)
}

func TestStore_ListOldestFirst(t *testing.T) {
	st := NewStore(nil, zerolog.Nop())
	first, clock := newTestSession(t, sampleQuestions(1), nil)
	clock.Advance(time.Minute)
	second, err := NewSession(sampleQuestions(1), SessionOptions{Clock: clock})
	require.NoError(t, err)

	require.NoError(t, st.Add(context.Background(), second))
	require.NoError(t, st.Add(context.Background(), first))

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID(), list[0].ID())
	assert.Equal(t, second.ID(), list[1].ID())
}

func TestStore_TracksInRedis(t *testing.T) {
	tracker, mr := newRedisTracker(t)
	st := NewStore(tracker, zerolog.Nop())
	s, _ := newTestSession(t, sampleQuestions(1), nil)
	ctx := context.Background()

	require.NoError(t, st.Add(ctx, s))
	key := "pq:session:" + s.ID()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, s.JoinCode(), mr.HGet(key, "join_code"))
	assert.Equal(t, time.Hour, mr.TTL(key))
	members, err := mr.Members("pq:sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID()}, members)

	mr.FastForward(30 * time.Minute)
	st.Touch(ctx, s.ID())
	assert.Equal(t, time.Hour, mr.TTL(key))

	require.NoError(t, st.Delete(ctx, s.ID()))
	assert.False(t, mr.Exists(key))
	members, _ = mr.Members("pq:sessions")
	assert.Empty(t, members)
}

func TestStore_TrackerFailureIsNotFatal(t *testing.T) {
	tracker, mr := newRedisTracker(t)
	mr.Close()
	st := NewStore(tracker, zerolog.Nop())
	s, _ := newTestSession(t, sampleQuestions(1), nil)

	require.NoError(t, st.Add(context.Background(), s))
	_, err := st.Get(s.ID())
	assert.NoError(t, err)
}

func TestRedisTracker_Defaults(t *testing.T) {
	tr := NewRedisTracker(nil, "", 0)
	assert.Equal(t, "partyquiz", tr.prefix)
	assert.Equal(t, defaultTrackerTTL, tr.ttl)
	assert.Equal(t, "partyquiz:session:abc", tr.sessionKey("abc"))
}
