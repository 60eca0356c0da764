package domain

import (
	"sort"
	"time"
)

// Round represents a single question round. It is created when the owner
// pushes a question and cleared when the round is graded; the token survives
// on the owning room so stale grading triggers can be told apart.
type Round struct {
	Token       int64                       `json:"token"`
	Prompt      string                      `json:"prompt"`
	Options     []string                    `json:"options"`
	Correct     map[int]struct{}            `json:"-"`
	Duration    int                         `json:"duration"` // seconds
	Points      int                         `json:"points"`
	Submissions map[string]map[int]struct{} `json:"-"` // connection ID -> selected option indexes
	StartedAt   time.Time                   `json:"startedAt"`
}

// NewRound creates a round with the given token and question content.
// Duration is normalized to at least 1 second and points to at least 0.
// The correct index set must be non-empty and within option bounds.
func NewRound(token int64, prompt string, options []string, correctIndexes []int, duration, points int) (*Round, error) {
	if prompt == "" || len(options) < 2 || len(correctIndexes) == 0 {
		return nil, ErrInvalidQuestion
	}

	correct := make(map[int]struct{}, len(correctIndexes))
	for _, idx := range correctIndexes {
		if idx < 0 || idx >= len(options) {
			return nil, ErrInvalidQuestion
		}
		correct[idx] = struct{}{}
	}

	if duration < 1 {
		duration = 1
	}
	if points < 0 {
		points = 0
	}

	return &Round{
		Token:       token,
		Prompt:      prompt,
		Options:     options,
		Correct:     correct,
		Duration:    duration,
		Points:      points,
		Submissions: make(map[string]map[int]struct{}),
		StartedAt:   time.Now(),
	}, nil
}

// Submit records a player's answer. Each connection may submit at most once
// per round; a second submission is rejected and the stored one is untouched.
func (r *Round) Submit(connID string, selections []int) error {
	if _, ok := r.Submissions[connID]; ok {
		return ErrAlreadyAnswered
	}

	selected := make(map[int]struct{}, len(selections))
	for _, idx := range selections {
		selected[idx] = struct{}{}
	}
	r.Submissions[connID] = selected

	return nil
}

// HasAnswered returns true if the connection already submitted this round.
func (r *Round) HasAnswered(connID string) bool {
	_, ok := r.Submissions[connID]
	return ok
}

// Remap moves a submission from an old connection ID to a new one, so a
// mid-round reconnect keeps the answer the player already gave.
func (r *Round) Remap(oldID, newID string) {
	if selected, ok := r.Submissions[oldID]; ok {
		delete(r.Submissions, oldID)
		r.Submissions[newID] = selected
	}
}

// IsCorrect grades one player's submission by set equality: same size and
// every correct index present. No submission is never correct, and a
// submission carrying extra incorrect indexes is never correct.
func (r *Round) IsCorrect(connID string) bool {
	selected, ok := r.Submissions[connID]
	if !ok || len(selected) != len(r.Correct) {
		return false
	}
	for idx := range r.Correct {
		if _, ok := selected[idx]; !ok {
			return false
		}
	}
	return true
}

// CorrectIndexes returns the correct option indexes in ascending order.
func (r *Round) CorrectIndexes() []int {
	indexes := make([]int, 0, len(r.Correct))
	for idx := range r.Correct {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}

// PlayerResult is one player's grading outcome for a round.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Correct  bool   `json:"correct"`
	Awarded  int    `json:"awarded"`
}
