package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeHostCreate      = "host:create"
	TypeHostReconnect   = "host:reconnect"
	TypeHostStart       = "host:start"
	TypeHostNext        = "host:next"
	TypeHostReveal      = "host:reveal"
	TypeHostLeaderboard = "host:leaderboard"
	TypeHostEnd         = "host:end"
	TypeHostPause       = "host:pause"
	TypeHostResume      = "host:resume"
	TypeHostKick        = "host:kick"
	TypeHostRestart     = "host:restart"
	TypeDisplayJoin     = "display:join"
	TypePlayerJoin      = "player:join"
	TypePlayerReconnect = "player:reconnect"
	TypePlayerAnswer    = "player:answer"
	TypeTimeSync        = "time:sync"

	// Server -> Client
	TypeAck               = "ack"
	TypeError             = "error"
	TypePlayerJoined      = "game:playerJoined"
	TypePlayerLeft        = "game:playerLeft"
	TypeDoublePoints      = "game:doublePoints"
	TypeContext           = "game:context"
	TypeQuestionStart     = "game:questionStart"
	TypeAnswerUpdate      = "game:answerUpdate"
	TypeStreakAlert       = "game:streakAlert"
	TypeQuestionEnd       = "game:questionEnd"
	TypeReveal            = "game:reveal"
	TypeLeaderboard       = "game:leaderboard"
	TypeEnd               = "game:end"
	TypePaused            = "game:paused"
	TypeResumed           = "game:resumed"
	TypeKicked            = "game:kicked"
	TypeRestarted         = "game:restarted"
	TypeHostRestarted     = "game:hostRestarted"
	TypeLeaderboardUpdate = "leaderboard_update"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into an envelope.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return msg, err
	}
	msg.Payload = data
	return msg, nil
}

// Client Messages (incoming)

type QuestionPayload struct {
	Context   string   `json:"context,omitempty"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Correct   string   `json:"correct"`
	Category  string   `json:"category,omitempty"`
	TimeLimit int      `json:"time_limit,omitempty"`
}

type HostCreatePayload struct {
	Questions        []QuestionPayload `json:"questions,omitempty"`
	DefaultTimeLimit int               `json:"default_time_limit,omitempty"`
}

// HostCommandPayload authenticates every host:* command after create.
type HostCommandPayload struct {
	SessionID string `json:"session_id"`
	HostKey   string `json:"host_key"`
}

type HostKickPayload struct {
	SessionID string `json:"session_id"`
	HostKey   string `json:"host_key"`
	PlayerID  string `json:"player_id"`
}

// DisplayJoinPayload accepts either a session id or a join code.
type DisplayJoinPayload struct {
	SessionID string `json:"session_id,omitempty"`
	JoinCode  string `json:"join_code,omitempty"`
}

type PlayerJoinPayload struct {
	SessionID string `json:"session_id,omitempty"`
	JoinCode  string `json:"join_code,omitempty"`
	Name      string `json:"name"`
}

type PlayerReconnectPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

type PlayerAnswerPayload struct {
	Answer string `json:"answer"`
}

// Server Messages (outgoing)

type AckPayload struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerJoinedPayload struct {
	Player      PlayerInfo  `json:"player"`
	PlayerCount int         `json:"player_count"`
	Players     interface{} `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID    string      `json:"player_id"`
	PlayerCount int         `json:"player_count"`
	Players     interface{} `json:"players"`
}

type DoublePointsPayload struct {
	QuestionIndex int `json:"question_index"`
	DurationMs    int `json:"duration_ms"`
}

type ContextPayload struct {
	Context        string `json:"context"`
	Index          int    `json:"index"`
	TotalQuestions int    `json:"total_questions,omitempty"`
	DurationMs     int    `json:"duration_ms"`
}

type QuestionStartPayload struct {
	Question     interface{} `json:"question"`
	ServerTime   int64       `json:"server_time"`
	TotalPlayers int         `json:"total_players,omitempty"`
}

type AnswerUpdatePayload struct {
	AnsweredCount int `json:"answered_count"`
	TotalPlayers  int `json:"total_players"`
}

type QuestionEndPayload struct {
	QuestionIndex int `json:"question_index"`
}

type RevealPayload struct {
	Reveal         interface{} `json:"reveal"`
	IsLastQuestion bool        `json:"is_last_question"`
}

type GameLeaderboardPayload struct {
	Leaderboard    interface{} `json:"leaderboard"`
	IsLastQuestion bool        `json:"is_last_question"`
}

type EndPayload struct {
	Stats interface{} `json:"stats"`
}

type PausedPayload struct {
	RemainingMs int64 `json:"remaining_ms"`
}

type ResumedPayload struct {
	ServerTime     int64 `json:"server_time"`
	TimerStartedAt int64 `json:"timer_started_at"`
	TimerDuration  int   `json:"timer_duration"`
}

type KickedPayload struct {
	Reason string `json:"reason"`
}

type HostRestartedPayload struct {
	PlayerCount int         `json:"player_count"`
	Players     interface{} `json:"players"`
}

type TimeSyncPayload struct {
	ServerTime int64 `json:"server_time"`
}

type LeaderboardUpdatePayload struct {
	Window    string             `json:"window"`
	Top       []LeaderboardEntry `json:"top"`
	SessionID string             `json:"session_id"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	PlayerKey   string  `json:"player_key"`
	DisplayName string  `json:"display_name"`
	Score       int     `json:"score"`
	Wins        int     `json:"wins"`
	Games       int     `json:"games"`
	Accuracy    float64 `json:"accuracy"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
