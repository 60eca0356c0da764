package domain

import "time"

// EventType represents the type of room-scoped event.
type EventType string

const (
	EventPlayerList      EventType = "playerList"
	EventGoToGamePage    EventType = "goToGamePage"
	EventQuestionStarted EventType = "questionStarted"
	EventQuestionEnded   EventType = "questionEnded"
	EventLeaderboard     EventType = "leaderboard"
	EventRoomClosed      EventType = "roomClosed"
	EventKicked          EventType = "kicked"
	EventPlayerAnswered  EventType = "playerAnswered"
)

// Event is a room-scoped event fanned out to joined connections. TargetID,
// when set, restricts delivery to a single connection (kicked notices, the
// owner-only playerAnswered signal).
type Event struct {
	Type      EventType   `json:"type"`
	RoomCode  string      `json:"roomCode"`
	TargetID  string      `json:"-"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a room-wide event.
func NewEvent(eventType EventType, roomCode string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewTargetedEvent creates an event delivered to a single connection.
func NewTargetedEvent(eventType EventType, roomCode, targetID string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		RoomCode:  roomCode,
		TargetID:  targetID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// PlayerListPayload is sent whenever the membership or owner changes.
type PlayerListPayload struct {
	Players []PlayerInfo `json:"players"`
	Owner   string       `json:"owner"`
}

// QuestionStartedPayload announces a round. It never carries the answer key.
type QuestionStartedPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
}

// QuestionEndedPayload carries grading results once a round is over.
type QuestionEndedPayload struct {
	Results        []PlayerResult `json:"results"`
	CorrectIndexes []int          `json:"correctIndexes"`
}

// LeaderboardPayload lists players sorted by descending score.
type LeaderboardPayload struct {
	Players []PlayerInfo `json:"players"`
}

// PlayerAnsweredPayload tells the owner a player has answered, without
// revealing correctness.
type PlayerAnsweredPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
