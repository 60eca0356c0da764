package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"trivia/internal/app"
	"trivia/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a WebSocket client connection. It carries the stable
// connection identifier the room keys players by until explicit disconnect.
type Client struct {
	conn     *websocket.Conn
	session  *app.RoomSession
	connID   string
	validate *validator.Validate
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, session *app.RoomSession, connID string, validate *validator.Validate, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		session:  session,
		connID:   connID,
		validate: validate,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// ConnID implements app.ClientConn
func (c *Client) ConnID() string {
	return c.connID
}

// Send implements app.ClientConn
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "connID", c.connID)
		return nil
	}
}

// Close implements app.ClientConn
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.UnregisterClient(c.connID)
		c.session.Disconnect(c.connID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendNack(0, ErrCodeInvalidMessage, domain.KindValidation, "invalid message format")
		return
	}

	switch msg.Type {
	case MsgJoin:
		c.handleJoin(msg)
	case MsgStartGame:
		c.ack(msg, c.session.StartGame(c.connID))
	case MsgCreateQuestion:
		c.handleCreateQuestion(msg)
	case MsgSubmitAnswer:
		c.handleSubmitAnswer(msg)
	case MsgEndRound:
		c.ack(msg, c.session.EndRoundNow(c.connID))
	case MsgKick:
		c.handleKick(msg)
	case MsgPing:
		c.sendPong()
	default:
		c.sendNack(msg.Seq, ErrCodeInvalidMessage, domain.KindValidation, "unknown message type")
	}
}

// decode unmarshals and validates a typed payload.
func (c *Client) decode(msg ClientMessage, payload interface{}) bool {
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		c.sendNack(msg.Seq, ErrCodeInvalidMessage, domain.KindValidation, "invalid payload")
		return false
	}
	if err := c.validate.Struct(payload); err != nil {
		c.sendNack(msg.Seq, ErrCodeInvalidMessage, domain.KindValidation, err.Error())
		return false
	}
	return true
}

// handleJoin handles a join message
func (c *Client) handleJoin(msg ClientMessage) {
	var payload JoinPayload
	if !c.decode(msg, &payload) {
		return
	}

	if err := c.session.Join(c.connID, payload.Name, payload.ClaimOwner); err != nil {
		c.nackErr(msg.Seq, err)
		return
	}

	c.Send(&AckMessage{Type: MsgAck, Seq: msg.Seq, OK: true, ConnID: c.connID})
}

// handleCreateQuestion handles a create_question message
func (c *Client) handleCreateQuestion(msg ClientMessage) {
	var payload CreateQuestionPayload
	if !c.decode(msg, &payload) {
		return
	}

	err := c.session.CreateQuestion(c.connID, payload.Prompt, payload.Options, payload.CorrectIndexes, payload.Duration, payload.Points)
	c.ack(msg, err)
}

// handleSubmitAnswer handles a submit_answer message
func (c *Client) handleSubmitAnswer(msg ClientMessage) {
	var payload SubmitAnswerPayload
	if !c.decode(msg, &payload) {
		return
	}

	c.ack(msg, c.session.SubmitAnswer(c.connID, payload.Selections))
}

// handleKick handles a kick message
func (c *Client) handleKick(msg ClientMessage) {
	var payload KickPayload
	if !c.decode(msg, &payload) {
		return
	}

	c.ack(msg, c.session.Kick(c.connID, payload.TargetID))
}

// ack answers a request with its outcome.
func (c *Client) ack(msg ClientMessage, err error) {
	if err != nil {
		c.nackErr(msg.Seq, err)
		return
	}
	c.Send(&AckMessage{Type: MsgAck, Seq: msg.Seq, OK: true})
}

// nackErr reports a domain error on the acknowledgement channel.
func (c *Client) nackErr(seq int64, err error) {
	c.sendNack(seq, errorCode(err), domain.Kind(err), err.Error())
}

func (c *Client) sendNack(seq int64, code string, kind domain.ErrorKind, message string) {
	c.Send(&AckMessage{
		Type:    MsgAck,
		Seq:     seq,
		OK:      false,
		Code:    code,
		Kind:    string(kind),
		Message: message,
	})
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	c.Send(&AckMessage{Type: MsgPong, OK: true})
}
