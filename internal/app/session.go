package app

import (
	"log/slog"
	"sync"
	"time"

	"trivia/internal/domain"
)

// ClientConn represents a connected client
type ClientConn interface {
	Send(message interface{}) error
	ConnID() string
	Close() error
}

// RoomSession wraps a room with concurrency control and client management.
// Every operation against the room's state runs under one mutex, so
// concurrent joins, answers, kicks, disconnects and timer callbacks behave
// as if executed one at a time. Fan-out happens on a separate goroutine over
// payloads computed inside the lock.
type RoomSession struct {
	room      *domain.Room
	mu        sync.Mutex
	clients   map[string]ClientConn // connection ID -> client
	clientsMu sync.RWMutex
	logger    *slog.Logger

	gracePeriod time.Duration
	detach      func(code string) // removes the room from the hub on teardown

	// Timers; both carry their validity in room state (round token, owner
	// presence) and are re-checked under the mutex when they fire.
	roundTimer *time.Timer
	graceTimer *time.Timer

	events    chan *domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoomSession creates a new room session.
func NewRoomSession(room *domain.Room, gracePeriod time.Duration, logger *slog.Logger, detach func(code string)) *RoomSession {
	session := &RoomSession{
		room:        room,
		clients:     make(map[string]ClientConn),
		logger:      logger,
		gracePeriod: gracePeriod,
		detach:      detach,
		events:      make(chan *domain.Event, 100),
		done:        make(chan struct{}),
	}

	go session.eventLoop()

	return session
}

// Code returns the room code.
func (s *RoomSession) Code() string {
	return s.room.Code
}

// CreatedAt returns when the room was created.
func (s *RoomSession) CreatedAt() time.Time {
	return s.room.CreatedAt
}

// PlayerCount returns the number of joined players.
func (s *RoomSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.PlayerCount()
}

// Started reports whether the game has started.
func (s *RoomSession) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Started
}

// CheckJoin reports whether a join with the given display name would be
// accepted, without joining.
func (s *RoomSession) CheckJoin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.CanJoin(name)
}

// RegisterClient registers a client connection.
func (s *RoomSession) RegisterClient(client ClientConn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ConnID()] = client
}

// UnregisterClient removes a client connection.
func (s *RoomSession) UnregisterClient(connID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, connID)
}

// Join adds a player to the room, or remaps an existing player's connection
// after the game has started. A reconnection that restores the owner cancels
// the pending grace timer.
func (s *RoomSession) Join(connID, name string, claimOwner bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.room.Join(connID, name, claimOwner)
	if err != nil {
		return err
	}

	if s.graceTimer != nil && s.room.HasOwner() {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}

	s.logger.Info("player joined",
		"roomCode", s.room.Code,
		"connID", connID,
		"name", player.Name,
		"owner", s.room.IsOwner(connID),
	)

	s.queuePlayerList()

	return nil
}

// Kick removes a target player on behalf of the owner. An absent target is a
// silent no-op; the owner kicking their own connection is rejected.
func (s *RoomSession) Kick(callerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsOwner(callerID) {
		return domain.ErrNotOwner
	}
	if targetID == callerID {
		return domain.ErrKickSelf
	}
	if _, ok := s.room.Player(targetID); !ok {
		return nil
	}

	s.room.RemovePlayer(targetID)

	s.logger.Info("player kicked", "roomCode", s.room.Code, "connID", targetID)

	s.queueEvent(domain.NewTargetedEvent(domain.EventKicked, s.room.Code, targetID, nil))
	s.queuePlayerList()

	return nil
}

// Disconnect removes the player behind a dropped connection. Losing the
// owner arms the grace timer; if the window elapses without an owner
// reconnection the room is torn down.
func (s *RoomSession) Disconnect(connID string) {
	s.mu.Lock()

	player, wasOwner := s.room.RemovePlayer(connID)
	if player == nil {
		s.mu.Unlock()
		return
	}

	s.logger.Info("player disconnected",
		"roomCode", s.room.Code,
		"connID", connID,
		"name", player.Name,
		"owner", wasOwner,
	)

	closeNow := false
	if wasOwner {
		if s.gracePeriod > 0 {
			s.graceTimer = time.AfterFunc(s.gracePeriod, s.ownerGraceExpired)
		} else {
			s.room.ClearPendingOwner()
			closeNow = true
		}
	}

	if !closeNow {
		s.queuePlayerList()
	}
	s.mu.Unlock()

	if closeNow {
		s.closeRoom()
	}
}

// ownerGraceExpired fires when the owner grace window elapses. A reconnected
// owner makes it a no-op.
func (s *RoomSession) ownerGraceExpired() {
	s.mu.Lock()
	s.graceTimer = nil
	if s.room.HasOwner() {
		s.mu.Unlock()
		return
	}
	s.room.ClearPendingOwner()
	s.mu.Unlock()

	s.logger.Info("owner grace window elapsed", "roomCode", s.room.Code)
	s.closeRoom()
}

// StartGame transitions the room to started. Only the owner may start;
// starting twice is a silent no-op.
func (s *RoomSession) StartGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsOwner(callerID) {
		return domain.ErrNotOwner
	}
	if !s.room.Start() {
		return nil
	}

	s.logger.Info("game started", "roomCode", s.room.Code)

	s.queueEvent(domain.NewEvent(domain.EventGoToGamePage, s.room.Code, nil))
	s.queuePlayerList()

	return nil
}

// CreateQuestion opens a new round and schedules its grading trigger. The
// trigger carries the round token so a timer that outlives its round cannot
// grade twice.
func (s *RoomSession) CreateQuestion(callerID, prompt string, options []string, correctIndexes []int, duration, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsOwner(callerID) {
		return domain.ErrNotOwner
	}

	round, err := s.room.BeginRound(prompt, options, correctIndexes, duration, points)
	if err != nil {
		return err
	}

	s.logger.Info("question started",
		"roomCode", s.room.Code,
		"token", round.Token,
		"duration", round.Duration,
	)

	s.queueEvent(domain.NewEvent(domain.EventQuestionStarted, s.room.Code, &domain.QuestionStartedPayload{
		Question: round.Prompt,
		Options:  round.Options,
		Duration: round.Duration,
	}))

	token := round.Token
	s.roundTimer = time.AfterFunc(time.Duration(round.Duration)*time.Second, func() {
		s.grade(token)
	})

	return nil
}

// SubmitAnswer records a player's answer for the current round and tells the
// owner this player has answered, without revealing correctness.
func (s *RoomSession) SubmitAnswer(connID string, selections []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.room.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}

	player, ok := s.room.Player(connID)
	if !ok {
		return domain.ErrPlayerNotFound
	}

	if err := round.Submit(connID, selections); err != nil {
		return err
	}

	if ownerID := s.room.OwnerID; ownerID != "" && ownerID != connID {
		s.queueEvent(domain.NewTargetedEvent(domain.EventPlayerAnswered, s.room.Code, ownerID, &domain.PlayerAnsweredPayload{
			ID:   player.ID,
			Name: player.Name,
		}))
	}

	return nil
}

// EndRoundNow grades the current round immediately on the owner's request.
// With no round open it is a silent no-op.
func (s *RoomSession) EndRoundNow(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsOwner(callerID) {
		return domain.ErrNotOwner
	}

	round := s.room.CurrentRound
	if round == nil {
		return nil
	}

	s.gradeLocked(round.Token)

	return nil
}

// grade is the round timer's entry point.
func (s *RoomSession) grade(token int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradeLocked(token)
}

// gradeLocked grades the round identified by token. Whichever trigger (timer
// or manual end) arrives first performs grading and clears the round; the
// loser observes a stale token and does nothing.
func (s *RoomSession) gradeLocked(token int64) {
	results, correctIndexes, ok := s.room.FinishRound(token)
	if !ok {
		return
	}

	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}

	s.logger.Info("question ended", "roomCode", s.room.Code, "token", token)

	s.queueEvent(domain.NewEvent(domain.EventQuestionEnded, s.room.Code, &domain.QuestionEndedPayload{
		Results:        results,
		CorrectIndexes: correctIndexes,
	}))
	s.queueEvent(domain.NewEvent(domain.EventLeaderboard, s.room.Code, &domain.LeaderboardPayload{
		Players: s.room.Leaderboard(),
	}))
	s.queuePlayerList()
}

// closeRoom broadcasts roomClosed, detaches from the hub and shuts the
// session down. Sent synchronously so the notice beats the connection close.
func (s *RoomSession) closeRoom() {
	event := domain.NewEvent(domain.EventRoomClosed, s.room.Code, nil)

	s.clientsMu.RLock()
	for _, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send roomClosed", "connID", client.ConnID(), "error", err)
		}
	}
	s.clientsMu.RUnlock()

	if s.detach != nil {
		s.detach(s.room.Code)
	}

	s.Close()
}

// queuePlayerList queues a playerList broadcast. Caller must hold s.mu.
func (s *RoomSession) queuePlayerList() {
	s.queueEvent(domain.NewEvent(domain.EventPlayerList, s.room.Code, &domain.PlayerListPayload{
		Players: s.room.Players(),
		Owner:   s.room.OwnerID,
	}))
}

// queueEvent adds an event to the broadcast queue.
func (s *RoomSession) queueEvent(event *domain.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop fans queued events out to clients.
func (s *RoomSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to all clients, or to the target only.
func (s *RoomSession) broadcastEvent(event *domain.Event) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	if event.TargetID != "" {
		if client, ok := s.clients[event.TargetID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "connID", event.TargetID, "error", err)
			}
		}
		return
	}

	for connID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "connID", connID, "error", err)
		}
	}
}

// Close shuts down the session, its timers and all client connections.
func (s *RoomSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		if s.roundTimer != nil {
			s.roundTimer.Stop()
			s.roundTimer = nil
		}
		if s.graceTimer != nil {
			s.graceTimer.Stop()
			s.graceTimer = nil
		}
		s.mu.Unlock()

		s.clientsMu.Lock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clients = make(map[string]ClientConn)
		s.clientsMu.Unlock()
	})
}
