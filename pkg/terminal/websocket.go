package terminal

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/retropy/pkg/configuration"
	"github.com/antibyte/retropy/pkg/logger"
	"github.com/antibyte/retropy/pkg/shared"
)

// Timeouts and limits come from the [Network] section.

func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	// must be shorter than the pong wait
	return getPongWait() * 9 / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64)) * 1024
}

func getMaxChannelBuffer() int {
	return configuration.GetInt("Network", "max_channel_buffer", 256)
}

func getMaxMessagesPerSecond() int {
	return configuration.GetInt("Network", "max_messages_per_second", 30)
}

// readPump reads client frames and routes input lines into the shell.
func (c *Client) readPump() {
	defer c.handler.cleanupClient(c)

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.lastPong = time.Now()
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WebSocketWarn("Read error for session %s: %v", c.sessionID, err)
			}
			return
		}

		if !c.allowMessage() {
			logger.SecurityWarn("Message rate limit exceeded for session %s (%s)", c.sessionID, c.ipAddress)
			c.sendMessages([]shared.Message{shared.ErrorMessage("Rate limit exceeded, slow down.")})
			continue
		}

		var req TerminalRequest
		if err := json.Unmarshal(message, &req); err != nil {
			logger.WebSocketWarn("Invalid JSON from session %s: %v", c.sessionID, err)
			continue
		}

		// terminal geometry updates carry no input
		if req.IsConfig {
			logger.TerminalDebug("Session %s resized to %dx%d", c.sessionID, req.Cols, req.Rows)
			continue
		}

		replies := c.handler.shell.Execute(c.sessionID, req.Content)
		c.sendMessages(replies)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. All writes to the connection happen here.
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.WebSocketWarn("Write error for session %s: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.shutdown:
			return
		}
	}
}

// sendMessages marshals and queues a batch of messages. A full channel drops
// the client instead of blocking the caller.
func (c *Client) sendMessages(messages []shared.Message) {
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			logger.WebSocketError("Marshal failed for session %s: %v", c.sessionID, err)
			continue
		}

		select {
		case c.send <- data:
		case <-c.shutdown:
			return
		case <-time.After(100 * time.Millisecond):
			logger.WebSocketWarn("Send timeout for session %s, disconnecting", c.sessionID)
			go c.handler.cleanupClient(c)
			return
		}
	}
}

// allowMessage applies the per-client messages-per-second limit.
func (c *Client) allowMessage() bool {
	limit := getMaxMessagesPerSecond()
	now := time.Now()
	cutoff := now.Add(-time.Second)

	kept := c.msgTimes[:0]
	for _, t := range c.msgTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.msgTimes = append(kept, now)

	return len(c.msgTimes) <= limit
}
