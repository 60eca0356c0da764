package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"trivia/internal/config"
	"trivia/internal/domain"
)

const (
	// codeAttempts bounds retries against the code provider on collision.
	codeAttempts = 10

	// sweepInterval is how often the stale-room sweep runs.
	sweepInterval = 10 * time.Minute
)

// RoomHub is the process-wide room registry: it owns creation, lookup and
// deletion of room sessions. A room is reachable under its code from
// successful creation until deletion.
type RoomHub struct {
	sessions map[string]*RoomSession
	mu       sync.RWMutex
	cfg      *config.Config
	codes    CodeProvider
	logger   *slog.Logger
	done     chan struct{}
}

// Option configures a RoomHub.
type Option func(*RoomHub)

// WithCodeProvider replaces the default room-code provider.
func WithCodeProvider(p CodeProvider) Option {
	return func(h *RoomHub) {
		h.codes = p
	}
}

// NewRoomHub creates a new room hub.
func NewRoomHub(cfg *config.Config, logger *slog.Logger, opts ...Option) *RoomHub {
	hub := &RoomHub{
		sessions: make(map[string]*RoomSession),
		cfg:      cfg,
		codes:    RandomCode,
		logger:   logger,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(hub)
	}

	go hub.sweepLoop()

	return hub
}

// CreateRoom creates a new room under a unique code. The creator's display
// name is recorded on the room; ownership itself is claimed on the first
// join that asks for it.
func (h *RoomHub) CreateRoom(ownerName string) (*RoomSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var code string
	for attempts := 0; attempts < codeAttempts; attempts++ {
		code = h.codes(h.cfg.Game.RoomCodeLength)
		if _, exists := h.sessions[code]; !exists {
			break
		}
	}
	if _, exists := h.sessions[code]; exists {
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	room := domain.NewRoom(code, ownerName)
	session := NewRoomSession(room, h.cfg.Game.OwnerGracePeriod, h.logger, h.removeRoom)
	h.sessions[code] = session

	h.logger.Info("room created", "roomCode", code, "ownerName", ownerName)

	return session, nil
}

// GetSession returns the room session for a code.
func (h *RoomHub) GetSession(code string) (*RoomSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// DeleteSession closes and removes a room session. Operations already holding
// a session reference complete against it; new lookups fail with
// ErrRoomNotFound.
func (h *RoomHub) DeleteSession(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[code]; ok {
		session.Close()
		delete(h.sessions, code)
		h.logger.Info("room deleted", "roomCode", code)
	}
}

// removeRoom detaches a session that tore itself down (owner grace expiry).
func (h *RoomHub) removeRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, code)
	h.logger.Info("room closed", "roomCode", code)
}

// RoomCount returns the number of active rooms.
func (h *RoomHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// TotalPlayerCount returns the total number of players across all rooms.
func (h *RoomHub) TotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.sessions), func(s *RoomSession) int {
		return s.PlayerCount()
	})
}

// Close shuts down the hub and all sessions.
func (h *RoomHub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*RoomSession)
}

// sweepLoop periodically reclaims stale rooms.
func (h *RoomHub) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweepStaleRooms()
		}
	}
}

// sweepStaleRooms removes rooms that have sat empty past the timeout.
func (h *RoomHub) sweepStaleRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for code, session := range h.sessions {
		if session.PlayerCount() == 0 && now.Sub(session.CreatedAt()) > h.cfg.Game.StaleRoomTimeout {
			session.Close()
			delete(h.sessions, code)
			h.logger.Info("stale room reclaimed", "roomCode", code)
		}
	}
}
