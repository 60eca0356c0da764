package ws

import (
	"encoding/json"
	"errors"

	"trivia/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoin           MessageType = "join"
	MsgStartGame      MessageType = "start_game"
	MsgCreateQuestion MessageType = "create_question"
	MsgSubmitAnswer   MessageType = "submit_answer"
	MsgEndRound       MessageType = "end_round"
	MsgKick           MessageType = "kick"
	MsgPing           MessageType = "ping"
)

// Server → Client message types. Room-scoped events are delivered as
// domain.Event values and keep their domain type names on the wire.
const (
	MsgAck  MessageType = "ack"
	MsgPong MessageType = "pong"
)

// ClientMessage represents a message from client to server. Seq, when set,
// is echoed back on the acknowledgement so the client can match request to
// response.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckMessage is the acknowledgement sent for every request-style message.
type AckMessage struct {
	Type    MessageType `json:"type"`
	Seq     int64       `json:"seq,omitempty"`
	OK      bool        `json:"ok"`
	ConnID  string      `json:"connId,omitempty"` // set on a successful join
	Code    string      `json:"code,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Client message payloads

// JoinPayload is the payload for the join message.
type JoinPayload struct {
	Name       string `json:"name" validate:"required,max=32"`
	ClaimOwner bool   `json:"claimOwner"`
}

// CreateQuestionPayload is the payload for the create_question message.
type CreateQuestionPayload struct {
	Prompt         string   `json:"prompt" validate:"required"`
	Options        []string `json:"options" validate:"min=2,max=8,dive,required"`
	CorrectIndexes []int    `json:"correctIndexes" validate:"min=1"`
	Duration       int      `json:"duration"`
	Points         int      `json:"points"`
}

// SubmitAnswerPayload is the payload for the submit_answer message.
type SubmitAnswerPayload struct {
	Selections []int `json:"selections"`
}

// KickPayload is the payload for the kick message.
type KickPayload struct {
	TargetID string `json:"targetId" validate:"required"`
}

// Error codes
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodeRoomNotFound       = "ROOM_NOT_FOUND"
	ErrCodeNameTaken          = "NAME_TAKEN"
	ErrCodeGameAlreadyStarted = "GAME_ALREADY_STARTED"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeRoundActive        = "ROUND_ALREADY_ACTIVE"
	ErrCodeNoActiveRound      = "NO_ACTIVE_ROUND"
	ErrCodeAlreadyAnswered    = "ALREADY_ANSWERED"
	ErrCodePlayerNotFound     = "PLAYER_NOT_FOUND"
	ErrCodeKickSelf           = "KICK_SELF"
	ErrCodeInvalidQuestion    = "INVALID_QUESTION"
	ErrCodeEmptyName          = "EMPTY_NAME"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// errorCode maps a domain error to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, domain.ErrNameTaken):
		return ErrCodeNameTaken
	case errors.Is(err, domain.ErrGameAlreadyStarted):
		return ErrCodeGameAlreadyStarted
	case errors.Is(err, domain.ErrNotOwner):
		return ErrCodeNotOwner
	case errors.Is(err, domain.ErrRoundAlreadyActive):
		return ErrCodeRoundActive
	case errors.Is(err, domain.ErrNoActiveRound):
		return ErrCodeNoActiveRound
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return ErrCodeAlreadyAnswered
	case errors.Is(err, domain.ErrPlayerNotFound):
		return ErrCodePlayerNotFound
	case errors.Is(err, domain.ErrKickSelf):
		return ErrCodeKickSelf
	case errors.Is(err, domain.ErrInvalidQuestion):
		return ErrCodeInvalidQuestion
	case errors.Is(err, domain.ErrEmptyName):
		return ErrCodeEmptyName
	default:
		return ErrCodeInternalError
	}
}
