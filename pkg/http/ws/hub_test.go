package ws

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubServer registers every upgraded socket under the id given in the query.
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConnection(r.URL.Query().Get("id"), conn, zerolog.Nop())
		hub.Register(c)
		go c.WritePump()
		c.ReadPump(func(Message) error { return nil })
		hub.Unregister(c.ID())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool {
		return hub.SendTo(id, Message{Type: "noop"}) == nil
	}, time.Second, 5*time.Millisecond)
	return conn
}

// next skips noop messages and returns the first real one.
func next(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != "noop" {
			return msg
		}
	}
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		assert.Equal(t, "noop", msg.Type, "unexpected message")
	}
}

func TestHub_BroadcastReachesTopicMembers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := hubServer(t, hub)
	a := dial(t, hub, srv, "a")
	b := dial(t, hub, srv, "b")

	hub.Join("session:1", "a")
	hub.Join("players:1", "b")

	msg, err := NewMessage(TypeQuestionEnd, QuestionEndPayload{QuestionIndex: 2})
	require.NoError(t, err)
	require.NoError(t, hub.Broadcast("session:1", msg))

	got := next(t, a)
	assert.Equal(t, TypeQuestionEnd, got.Type)
	assert.JSONEq(t, `{"question_index":2}`, string(got.Payload))
	assertSilent(t, b)
}

func TestHub_BroadcastExcept(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := hubServer(t, hub)
	host := dial(t, hub, srv, "host")
	player := dial(t, hub, srv, "player")

	hub.Join("session:1", "host")
	hub.Join("session:1", "player")
	hub.Join("players:1", "player")

	require.NoError(t, hub.BroadcastExcept("session:1", "players:1", Message{Type: TypeAnswerUpdate}))
	assert.Equal(t, TypeAnswerUpdate, next(t, host).Type)
	assertSilent(t, player)
}

func TestHub_Evict(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Join("player:p1", "c1")
	hub.Join("session:1", "c1")
	hub.Join("players:1", "c1")
	hub.Join("session:1", "host")

	evicted := hub.Evict("player:p1", "session:1", "players:1")
	assert.Equal(t, []string{"c1"}, evicted)
	assert.Equal(t, []string{"host"}, hub.Members("session:1"))
	assert.Empty(t, hub.Members("players:1"))
	assert.Equal(t, []string{"c1"}, hub.Members("player:p1"))
}

func TestHub_LeaveAndMembers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Join("session:1", "a")
	hub.Join("session:1", "b")

	members := hub.Members("session:1")
	sort.Strings(members)
	assert.Equal(t, []string{"a", "b"}, members)

	hub.Leave("session:1", "a")
	assert.Equal(t, []string{"b"}, hub.Members("session:1"))
	hub.Leave("session:1", "b")
	assert.Empty(t, hub.Members("session:1"))
}

func TestHub_UnregisterDropsMemberships(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := hubServer(t, hub)
	dial(t, hub, srv, "a")
	hub.Join("session:1", "a")
	hub.Join("display:1", "a")

	hub.Unregister("a")
	assert.Empty(t, hub.Members("session:1"))
	assert.Empty(t, hub.Members("display:1"))
	assert.ErrorIs(t, hub.SendTo("a", Message{Type: TypeAck}), ErrConnectionNotFound)
}

func TestHub_BroadcastAll(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := hubServer(t, hub)
	a := dial(t, hub, srv, "a")
	b := dial(t, hub, srv, "b")

	msg, err := NewMessage(TypeLeaderboardUpdate, LeaderboardUpdatePayload{Window: "daily"})
	require.NoError(t, err)
	require.NoError(t, hub.BroadcastAll(msg))

	assert.Equal(t, TypeLeaderboardUpdate, next(t, a).Type)
	assert.Equal(t, TypeLeaderboardUpdate, next(t, b).Type)
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeKicked, KickedPayload{Reason: "removed by host"})
	require.NoError(t, err)
	assert.Equal(t, TypeKicked, msg.Type)
	assert.JSONEq(t, `{"reason":"removed by host"}`, string(msg.Payload))

	empty, err := NewMessage(TypeRestarted, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeRestarted, empty.Type)
}
