package domain

import (
	"slices"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Room represents one trivia session keyed by a unique code. It owns the
// player set, the owner identity and at most one active question round.
// Room is not safe for concurrent use; callers serialize access per room.
type Room struct {
	Code         string
	OwnerName    string // display name given at creation, claimed on first owner join
	OwnerID      string // connection ID of the owner, empty until claimed
	Started      bool
	CurrentRound *Round
	CreatedAt    time.Time

	players map[string]*Player // connection ID -> player
	order   []string           // connection IDs in join order

	// Removed owner awaiting reconnection during the grace window.
	pendingOwner       *Player
	pendingOwnerConnID string

	lastToken int64
}

// NewRoom creates an empty room. Ownership is claimed on the first join that
// asks for it, not at creation, because the creator's connection ID is not
// known at HTTP-request time.
func NewRoom(code, ownerName string) *Room {
	return &Room{
		Code:      code,
		OwnerName: ownerName,
		players:   make(map[string]*Player),
		CreatedAt: time.Now(),
	}
}

// Join adds a player before the game starts, or remaps an existing player's
// connection ID after it has started. Display names are unique pre-start and
// are the reconnection identity post-start. Score survives reconnection.
func (r *Room) Join(connID, name string, claimOwner bool) (*Player, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	if r.pendingOwner != nil && r.pendingOwner.Name == name {
		return r.restorePendingOwner(connID, claimOwner), nil
	}

	if existing := r.playerByName(name); existing != nil {
		if !r.Started {
			return nil, ErrNameTaken
		}
		return r.remap(existing, connID, claimOwner), nil
	}

	if r.Started {
		return nil, ErrGameAlreadyStarted
	}

	player := NewPlayer(connID, name)
	r.players[connID] = player
	r.order = append(r.order, connID)
	if claimOwner && r.OwnerID == "" {
		r.OwnerID = connID
	}

	return player, nil
}

// remap moves a player's record to a new connection ID, keeping score, join
// order position and any submission already made in the current round.
func (r *Room) remap(player *Player, connID string, claimOwner bool) *Player {
	oldID := player.ID
	delete(r.players, oldID)
	player.ID = connID
	r.players[connID] = player

	for i, id := range r.order {
		if id == oldID {
			r.order[i] = connID
			break
		}
	}

	if r.CurrentRound != nil {
		r.CurrentRound.Remap(oldID, connID)
	}
	if claimOwner && r.OwnerID == oldID {
		r.OwnerID = connID
	}

	return player
}

func (r *Room) restorePendingOwner(connID string, claimOwner bool) *Player {
	player := r.pendingOwner
	oldID := r.pendingOwnerConnID
	r.pendingOwner = nil
	r.pendingOwnerConnID = ""

	player.ID = connID
	r.players[connID] = player
	r.order = append(r.order, connID)

	if r.CurrentRound != nil {
		r.CurrentRound.Remap(oldID, connID)
	}
	if claimOwner && r.OwnerID == "" {
		r.OwnerID = connID
	}

	return player
}

// CanJoin reports whether a join with the given display name would be
// accepted right now, without mutating anything. Used by the pre-join check
// so clients can fail fast before opening a realtime connection.
func (r *Room) CanJoin(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if r.pendingOwner != nil && r.pendingOwner.Name == name {
		return nil
	}
	if r.playerByName(name) != nil {
		if !r.Started {
			return ErrNameTaken
		}
		return nil
	}
	if r.Started {
		return ErrGameAlreadyStarted
	}
	return nil
}

// RemovePlayer removes the player under the given connection ID. When the
// removed player is the owner, the record is stashed so a reconnection within
// the grace window can restore it, and ownership is left unassigned.
func (r *Room) RemovePlayer(connID string) (player *Player, wasOwner bool) {
	player, ok := r.players[connID]
	if !ok {
		return nil, false
	}

	delete(r.players, connID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == connID })

	if r.OwnerID == connID {
		r.OwnerID = ""
		r.pendingOwner = player
		r.pendingOwnerConnID = connID
		return player, true
	}

	return player, false
}

// ClearPendingOwner drops the stashed owner record once the grace window has
// elapsed without a reconnection.
func (r *Room) ClearPendingOwner() {
	r.pendingOwner = nil
	r.pendingOwnerConnID = ""
}

// HasOwner returns true once ownership has been claimed.
func (r *Room) HasOwner() bool {
	return r.OwnerID != ""
}

// IsOwner checks whether the given connection ID currently holds ownership.
func (r *Room) IsOwner(connID string) bool {
	return r.OwnerID != "" && r.OwnerID == connID
}

// Player returns the player under the given connection ID.
func (r *Room) Player(connID string) (*Player, bool) {
	player, ok := r.players[connID]
	return player, ok
}

func (r *Room) playerByName(name string) *Player {
	for _, id := range r.order {
		if p := r.players[id]; p.Name == name {
			return p
		}
	}
	return nil
}

// HasName reports whether a display name is present in the room.
func (r *Room) HasName(name string) bool {
	return r.playerByName(name) != nil
}

// PlayerCount returns the number of joined players.
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// Players returns all players in join order.
func (r *Room) Players() []PlayerInfo {
	return lo.Map(r.order, func(id string, _ int) PlayerInfo {
		return r.players[id].ToInfo()
	})
}

// Leaderboard returns players sorted by descending score, stable with
// respect to join order for equal scores.
func (r *Room) Leaderboard() []PlayerInfo {
	board := r.Players()
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board
}

// Start marks the room as started. The transition is one-way; a second call
// reports false so callers can treat it as a no-op.
func (r *Room) Start() bool {
	if r.Started {
		return false
	}
	r.Started = true
	return true
}

// BeginRound opens a new question round under a fresh token. At most one
// round may be open at a time.
func (r *Room) BeginRound(prompt string, options []string, correctIndexes []int, duration, points int) (*Round, error) {
	if r.CurrentRound != nil {
		return nil, ErrRoundAlreadyActive
	}

	round, err := NewRound(r.lastToken+1, prompt, options, correctIndexes, duration, points)
	if err != nil {
		return nil, err
	}

	r.lastToken = round.Token
	r.CurrentRound = round

	return round, nil
}

// FinishRound grades the round identified by token. A stale token (already
// graded, or superseded) reports ok=false and mutates nothing, which is how
// the timer-vs-manual-end race resolves to at-most-once grading. The round
// state is cleared before results are returned, so late submissions and
// stale timers observe an idle room.
func (r *Room) FinishRound(token int64) (results []PlayerResult, correctIndexes []int, ok bool) {
	round := r.CurrentRound
	if round == nil || round.Token != token {
		return nil, nil, false
	}
	r.CurrentRound = nil

	results = make([]PlayerResult, 0, len(r.order))
	for _, id := range r.order {
		player := r.players[id]
		correct := round.IsCorrect(id)
		awarded := 0
		if correct {
			awarded = round.Points
			player.Award(awarded)
		}
		results = append(results, PlayerResult{
			PlayerID: player.ID,
			Name:     player.Name,
			Correct:  correct,
			Awarded:  awarded,
		})
	}

	return results, round.CorrectIndexes(), true
}
