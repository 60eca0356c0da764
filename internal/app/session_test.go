package app

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"trivia/internal/domain"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// fakeConn captures events fanned out to one connection.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []*domain.Event
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (f *fakeConn) Send(message interface{}) error {
	event, ok := message.(*domain.Event)
	if !ok {
		return nil
	}
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) ConnID() string { return f.id }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) eventsOfType(eventType domain.EventType) []*domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.events, func(e *domain.Event, _ int) bool {
		return e.Type == eventType
	})
}

func (f *fakeConn) countOf(eventType domain.EventType) int {
	return len(f.eventsOfType(eventType))
}

func (f *fakeConn) lastOf(eventType domain.EventType) *domain.Event {
	events := f.eventsOfType(eventType)
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

// newTestRoom builds a hub-backed session with two registered connections,
// Alice owning the room and Bob joined as a player.
func newTestRoom(t *testing.T, grace time.Duration) (*RoomHub, *RoomSession, *fakeConn, *fakeConn) {
	t.Helper()
	req := require.New(t)

	hub := NewRoomHub(testConfig(grace), testLogger())
	t.Cleanup(hub.Close)

	session, err := hub.CreateRoom("Alice")
	req.NoError(err)

	alice := newFakeConn()
	bob := newFakeConn()
	session.RegisterClient(alice)
	session.RegisterClient(bob)

	req.NoError(session.Join(alice.id, "Alice", true))
	req.NoError(session.Join(bob.id, "Bob", false))

	return hub, session, alice, bob
}

func TestSession_Join_BroadcastsPlayerList(t *testing.T) {
	req := require.New(t)
	_, _, alice, bob := newTestRoom(t, time.Second)

	// Scenario: after Alice and Bob join, everyone sees both players with
	// Alice's connection as owner.
	req.Eventually(func() bool {
		event := bob.lastOf(domain.EventPlayerList)
		if event == nil {
			return false
		}
		payload := event.Payload.(*domain.PlayerListPayload)
		return len(payload.Players) == 2 && payload.Owner == alice.id
	}, waitFor, tick)

	payload := bob.lastOf(domain.EventPlayerList).Payload.(*domain.PlayerListPayload)
	req.Equal("Alice", payload.Players[0].Name)
	req.Equal("Bob", payload.Players[1].Name)
}

func TestSession_Join_NameTakenBeforeStart(t *testing.T) {
	req := require.New(t)
	_, session, _, _ := newTestRoom(t, time.Second)

	err := session.Join(uuid.NewString(), "Bob", false)
	req.ErrorIs(err, domain.ErrNameTaken)
}

func TestSession_StartGame(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)

	req.ErrorIs(session.StartGame(bob.id), domain.ErrNotOwner)

	req.NoError(session.StartGame(alice.id))
	req.Eventually(func() bool {
		return bob.countOf(domain.EventGoToGamePage) == 1
	}, waitFor, tick)

	// Starting twice is a silent no-op
	req.NoError(session.StartGame(alice.id))
	req.True(session.Started())
}

func TestSession_RoundLifecycle_TimerGrades(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))

	// Scenario: Alice asks "2+2?", Bob answers correctly, the timer grades.
	req.NoError(session.CreateQuestion(alice.id, "2+2?", []string{"3", "4", "5"}, []int{1}, 1, 10))

	req.Eventually(func() bool {
		return bob.countOf(domain.EventQuestionStarted) == 1
	}, waitFor, tick)

	payload := bob.lastOf(domain.EventQuestionStarted).Payload.(*domain.QuestionStartedPayload)
	req.Equal("2+2?", payload.Question)
	req.Equal([]string{"3", "4", "5"}, payload.Options)
	req.Equal(1, payload.Duration)

	req.NoError(session.SubmitAnswer(bob.id, []int{1}))

	req.Eventually(func() bool {
		return bob.countOf(domain.EventQuestionEnded) == 1
	}, waitFor, tick)

	ended := bob.lastOf(domain.EventQuestionEnded).Payload.(*domain.QuestionEndedPayload)
	req.Equal([]int{1}, ended.CorrectIndexes)
	req.Len(ended.Results, 2)
	req.Equal("Alice", ended.Results[0].Name)
	req.False(ended.Results[0].Correct)
	req.Equal("Bob", ended.Results[1].Name)
	req.True(ended.Results[1].Correct)
	req.Equal(10, ended.Results[1].Awarded)

	req.Eventually(func() bool {
		return bob.countOf(domain.EventLeaderboard) == 1
	}, waitFor, tick)

	board := bob.lastOf(domain.EventLeaderboard).Payload.(*domain.LeaderboardPayload)
	req.Equal("Bob", board.Players[0].Name)
	req.Equal(10, board.Players[0].Score)
	req.Equal("Alice", board.Players[1].Name)
	req.Equal(0, board.Players[1].Score)
}

func TestSession_SubmitAnswer_Duplicate(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))
	req.NoError(session.CreateQuestion(alice.id, "q", []string{"a", "b"}, []int{1}, 60, 10))

	req.NoError(session.SubmitAnswer(bob.id, []int{1}))
	req.ErrorIs(session.SubmitAnswer(bob.id, []int{0}), domain.ErrAlreadyAnswered)

	// The stored submission is the first one
	req.NoError(session.EndRoundNow(alice.id))
	req.Eventually(func() bool {
		return bob.countOf(domain.EventQuestionEnded) == 1
	}, waitFor, tick)

	ended := bob.lastOf(domain.EventQuestionEnded).Payload.(*domain.QuestionEndedPayload)
	req.True(ended.Results[1].Correct)
}

func TestSession_SubmitAnswer_NoActiveRound(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))

	req.ErrorIs(session.SubmitAnswer(bob.id, []int{0}), domain.ErrNoActiveRound)
}

func TestSession_PlayerAnswered_SentToOwnerOnly(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))
	req.NoError(session.CreateQuestion(alice.id, "q", []string{"a", "b"}, []int{0}, 60, 10))

	req.NoError(session.SubmitAnswer(bob.id, []int{0}))

	req.Eventually(func() bool {
		return alice.countOf(domain.EventPlayerAnswered) == 1
	}, waitFor, tick)

	payload := alice.lastOf(domain.EventPlayerAnswered).Payload.(*domain.PlayerAnsweredPayload)
	req.Equal("Bob", payload.Name)
	req.Equal(bob.id, payload.ID)

	req.Zero(bob.countOf(domain.EventPlayerAnswered))
}

func TestSession_CreateQuestion_Rejections(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))

	options := []string{"a", "b"}

	req.ErrorIs(session.CreateQuestion(bob.id, "q", options, []int{0}, 5, 10), domain.ErrNotOwner)
	req.ErrorIs(session.CreateQuestion(alice.id, "q", options, nil, 5, 10), domain.ErrInvalidQuestion)

	req.NoError(session.CreateQuestion(alice.id, "q", options, []int{0}, 60, 10))
	req.ErrorIs(session.CreateQuestion(alice.id, "q2", options, []int{0}, 60, 10), domain.ErrRoundAlreadyActive)
}

func TestSession_Grading_IdempotentAcrossTriggers(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))

	// Given a round whose timer will fire shortly after the manual end
	req.NoError(session.CreateQuestion(alice.id, "q", []string{"a", "b"}, []int{0}, 1, 10))
	req.NoError(session.SubmitAnswer(bob.id, []int{0}))

	// When the owner ends the round before the timer fires
	req.NoError(session.EndRoundNow(alice.id))

	// Then exactly one grading happens even after the timer's deadline passes
	time.Sleep(1500 * time.Millisecond)
	req.Equal(1, bob.countOf(domain.EventQuestionEnded))
	req.Equal(1, bob.countOf(domain.EventLeaderboard))

	board := bob.lastOf(domain.EventLeaderboard).Payload.(*domain.LeaderboardPayload)
	req.Equal(10, board.Players[0].Score)
}

func TestSession_EndRoundNow_Idle(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)
	req.NoError(session.StartGame(alice.id))

	req.ErrorIs(session.EndRoundNow(bob.id), domain.ErrNotOwner)

	// Ending with no round open is a silent no-op
	req.NoError(session.EndRoundNow(alice.id))
	req.Zero(bob.countOf(domain.EventQuestionEnded))
}

func TestSession_Kick(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)

	req.ErrorIs(session.Kick(bob.id, alice.id), domain.ErrNotOwner)
	req.ErrorIs(session.Kick(alice.id, alice.id), domain.ErrKickSelf)

	// Absent target is a silent no-op
	req.NoError(session.Kick(alice.id, uuid.NewString()))

	req.NoError(session.Kick(alice.id, bob.id))
	req.Eventually(func() bool {
		return bob.countOf(domain.EventKicked) == 1
	}, waitFor, tick)
	req.Zero(alice.countOf(domain.EventKicked))
	req.Equal(1, session.PlayerCount())
}

func TestSession_OwnerReconnectWithinGrace(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, 2*time.Second)
	req.NoError(session.StartGame(alice.id))
	req.NoError(session.CreateQuestion(alice.id, "q", []string{"a", "b"}, []int{0}, 60, 10))

	// Scenario: Alice drops mid-round and reconnects within the grace window.
	session.UnregisterClient(alice.id)
	session.Disconnect(alice.id)

	alice2 := newFakeConn()
	session.RegisterClient(alice2)
	req.NoError(session.Join(alice2.id, "Alice", true))

	// Round state is untouched and the new connection holds owner authority
	req.NoError(session.SubmitAnswer(bob.id, []int{0}))
	req.NoError(session.Kick(alice2.id, bob.id))
	req.NoError(session.EndRoundNow(alice2.id))

	// The grace timer never tears the room down
	time.Sleep(2500 * time.Millisecond)
	req.Equal(1, session.PlayerCount())
	req.Zero(alice2.countOf(domain.EventRoomClosed))
}

func TestSession_OwnerGraceExpiry_ClosesRoom(t *testing.T) {
	req := require.New(t)
	hub, session, alice, bob := newTestRoom(t, 100*time.Millisecond)
	code := session.Code()

	// Scenario: Alice disconnects and never returns.
	session.UnregisterClient(alice.id)
	session.Disconnect(alice.id)

	req.Eventually(func() bool {
		return bob.countOf(domain.EventRoomClosed) == 1
	}, waitFor, tick)

	req.Eventually(func() bool {
		_, err := hub.GetSession(code)
		return err != nil
	}, waitFor, tick)
}

func TestSession_ZeroGraceClosesImmediately(t *testing.T) {
	req := require.New(t)
	hub, session, alice, bob := newTestRoom(t, 0)
	code := session.Code()

	session.UnregisterClient(alice.id)
	session.Disconnect(alice.id)

	req.Equal(1, bob.countOf(domain.EventRoomClosed))
	_, err := hub.GetSession(code)
	req.ErrorIs(err, domain.ErrRoomNotFound)
}

func TestSession_NonOwnerDisconnect_RebroadcastsList(t *testing.T) {
	req := require.New(t)
	_, session, alice, bob := newTestRoom(t, time.Second)

	session.UnregisterClient(bob.id)
	session.Disconnect(bob.id)

	req.Eventually(func() bool {
		event := alice.lastOf(domain.EventPlayerList)
		if event == nil {
			return false
		}
		payload := event.Payload.(*domain.PlayerListPayload)
		return len(payload.Players) == 1 && payload.Players[0].Name == "Alice"
	}, waitFor, tick)

	// Disconnecting an unknown connection is harmless
	session.Disconnect(uuid.NewString())
}

func TestSession_ConcurrentSubmissions(t *testing.T) {
	req := require.New(t)

	hub := NewRoomHub(testConfig(time.Second), testLogger())
	t.Cleanup(hub.Close)

	session, err := hub.CreateRoom("Alice")
	req.NoError(err)

	alice := newFakeConn()
	session.RegisterClient(alice)
	req.NoError(session.Join(alice.id, "Alice", true))

	players := make([]*fakeConn, 20)
	for i := range players {
		players[i] = newFakeConn()
		session.RegisterClient(players[i])
		req.NoError(session.Join(players[i].id, uuid.NewString(), false))
	}

	req.NoError(session.StartGame(alice.id))
	req.NoError(session.CreateQuestion(alice.id, "q", []string{"a", "b"}, []int{0}, 60, 5))

	// All players answer at once; half of them race a duplicate submission.
	var wg sync.WaitGroup
	for _, p := range players {
		wg.Add(1)
		go func(conn *fakeConn) {
			defer wg.Done()
			session.SubmitAnswer(conn.id, []int{0})
			session.SubmitAnswer(conn.id, []int{1})
		}(p)
	}
	wg.Wait()

	req.NoError(session.EndRoundNow(alice.id))
	req.Eventually(func() bool {
		return alice.countOf(domain.EventQuestionEnded) == 1
	}, waitFor, tick)

	// Every player kept their first submission and was graded exactly once
	ended := alice.lastOf(domain.EventQuestionEnded).Payload.(*domain.QuestionEndedPayload)
	correct := lo.CountBy(ended.Results, func(r domain.PlayerResult) bool { return r.Correct })
	req.Equal(20, correct)

	board := alice.lastOf(domain.EventLeaderboard).Payload.(*domain.LeaderboardPayload)
	for _, entry := range board.Players[:20] {
		req.Equal(5, entry.Score)
	}
}
