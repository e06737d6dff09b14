package socket

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (4KB)
	maxMessageSize int64 = 4096

	// Budget for a single inbound chat action
	actionTimeout = 5 * time.Second
)

// ChatGateway guards and persists chat traffic. The concrete
// implementation lives in the service layer; the socket package only
// moves bytes.
type ChatGateway interface {
	// VerifyChannelAccess reports whether userID may read and post in the
	// channel. A nil error means access is granted.
	VerifyChannelAccess(ctx context.Context, userID, channelType, channelID string) error

	// RecentChannelMessages returns the most recent channel messages in
	// chronological order, ready for client delivery.
	RecentChannelMessages(ctx context.Context, channelType, channelID string, limit int) ([]map[string]interface{}, error)

	// SaveChannelMessage verifies access, persists the message and returns
	// the stored payload for broadcast.
	SaveChannelMessage(ctx context.Context, userID, channelType, channelID, content string) (map[string]interface{}, error)
}

// ClientMessage represents an incoming message from a client
type ClientMessage struct {
	Action  string                 `json:"action"`
	Room    string                 `json:"room,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.lastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Client] WebSocket error for user %s: %v", c.UserID, err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// drain queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[Client] Error parsing message from user %s: %v", c.UserID, err)
		return
	}

	switch msg.Action {
	case "join":
		c.handleJoin(msg.Room)

	case "leave":
		c.handleLeave(msg.Room)

	case "message":
		content, _ := msg.Payload["content"].(string)
		c.handleChatMessage(msg.Room, content)

	case "typing":
		if msg.Room != "" {
			c.Hub.SendToRoom(msg.Room, MessageUserTyping, map[string]interface{}{
				"userId": c.UserID,
				"room":   msg.Room,
			}, c.UserID)
		}

	case "ping":
		c.lastPing = time.Now()
		c.sendPong()

	case "pong":
		c.lastPing = time.Now()

	default:
		log.Printf("[Client] Unknown action: %s from user: %s", msg.Action, c.UserID)
	}
}

// handleJoin verifies channel access, replays recent history privately to
// this session and announces the join to current subscribers.
func (c *Client) handleJoin(room string) {
	channelType, channelID, ok := splitRoom(room)
	if !ok {
		c.sendError(room, "invalid channel")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := c.chat.VerifyChannelAccess(ctx, c.UserID, channelType, channelID); err != nil {
		log.Printf("[Client] Join denied: user=%s room=%s: %v", c.UserID, room, err)
		c.sendError(room, "access denied")
		return
	}

	c.Hub.JoinRoom(c, room)

	history, err := c.chat.RecentChannelMessages(ctx, channelType, channelID, 50)
	if err != nil {
		log.Printf("[Client] History fetch failed: user=%s room=%s: %v", c.UserID, room, err)
		c.sendError(room, "failed to load history")
	} else {
		c.sendDirect(MessageChatHistory, map[string]interface{}{
			"room":     room,
			"messages": history,
		})
	}

	c.Hub.SendToRoom(room, MessageChatSystem, map[string]interface{}{
		"room":   room,
		"event":  "joined",
		"userId": c.UserID,
	}, "")
	c.sendAck("joined", room)
}

// handleLeave is advisory, no access re-check
func (c *Client) handleLeave(room string) {
	if _, _, ok := splitRoom(room); !ok {
		return
	}

	c.Hub.LeaveRoom(c, room)
	c.Hub.SendToRoom(room, MessageChatSystem, map[string]interface{}{
		"room":   room,
		"event":  "left",
		"userId": c.UserID,
	}, "")
	c.sendAck("left", room)
}

// handleChatMessage persists before broadcast. Failures go back to the
// sender only, never to the room.
func (c *Client) handleChatMessage(room, content string) {
	channelType, channelID, ok := splitRoom(room)
	if !ok {
		c.sendError(room, "invalid channel")
		return
	}
	if strings.TrimSpace(content) == "" {
		c.sendError(room, "message content is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	payload, err := c.chat.SaveChannelMessage(ctx, c.UserID, channelType, channelID, content)
	if err != nil {
		log.Printf("[Client] Message rejected: user=%s room=%s: %v", c.UserID, room, err)
		c.sendError(room, "message delivery failed")
		return
	}

	c.Hub.SendToRoom(room, MessageChat, payload, "")
}

// splitRoom parses "type:id" room names into channel coordinates.
func splitRoom(room string) (channelType, channelID string, ok bool) {
	parts := strings.SplitN(room, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (c *Client) sendDirect(msgType MessageType, payload map[string]interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("[Client] Send buffer full for user %s", c.UserID)
	}
}

func (c *Client) sendError(room, reason string) {
	c.sendDirect(MessageError, map[string]interface{}{
		"room":  room,
		"error": reason,
	})
}

func (c *Client) sendAck(action, room string) {
	c.sendDirect(MessageAck, map[string]interface{}{
		"action": action,
		"room":   room,
	})
}

func (c *Client) sendPong() {
	c.sendDirect(MessagePong, map[string]interface{}{
		"time": time.Now().Unix(),
	})
}
