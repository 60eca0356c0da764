package domain

import "time"

// Player represents a participant in a room. The connection ID changes across
// reconnects; the display name is the durable identity within one room.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewPlayer creates a new player with the given connection ID and display name.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Score:    0,
		JoinedAt: time.Now(),
	}
}

// Award adds points to the player's score. Score never decreases.
func (p *Player) Award(points int) {
	if points > 0 {
		p.Score += points
	}
}

// PlayerInfo is the wire view of a player.
type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ToInfo converts a Player to its wire view.
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:    p.ID,
		Name:  p.Name,
		Score: p.Score,
	}
}
