package notify

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatNotifier broadcasts messages to connected websocket clients. Messages
// longer than maxMessageLength are split on line boundaries before sending
// so no frame exceeds the transport limit.
type ChatNotifier struct {
	clients          map[*websocket.Conn]bool
	maxMessageLength int
	logger           arbor.ILogger
	mu               sync.Mutex
}

// NewChatNotifier creates a websocket chat notifier
func NewChatNotifier(maxMessageLength int, logger arbor.ILogger) *ChatNotifier {
	if maxMessageLength <= 0 {
		maxMessageLength = 4000
	}
	return &ChatNotifier{
		clients:          make(map[*websocket.Conn]bool),
		maxMessageLength: maxMessageLength,
		logger:           logger,
	}
}

// HandleWS upgrades an HTTP request to a websocket connection and registers
// the client for broadcasts
func (c *ChatNotifier) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	c.mu.Lock()
	c.clients[conn] = true
	count := len(c.clients)
	c.mu.Unlock()

	c.logger.Debug().Int("clients", count).Msg("Chat client connected")

	// Drain reads so pings and close frames are processed; drop the
	// client on any read error.
	go func() {
		defer c.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// SendMessage broadcasts text to all connected clients
func (c *ChatNotifier) SendMessage(ctx context.Context, text string) error {
	chunks := splitMessage(text, c.maxMessageLength)

	c.mu.Lock()
	defer c.mu.Unlock()

	for conn := range c.clients {
		for _, chunk := range chunks {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(chunk)); err != nil {
				c.logger.Debug().Err(err).Msg("Dropping chat client after write failure")
				conn.Close()
				delete(c.clients, conn)
				break
			}
		}
	}
	return nil
}

// Close disconnects all clients
func (c *ChatNotifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for conn := range c.clients {
		conn.Close()
		delete(c.clients, conn)
	}
}

func (c *ChatNotifier) removeClient(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.clients[conn]; ok {
		conn.Close()
		delete(c.clients, conn)
		c.logger.Debug().Int("clients", len(c.clients)).Msg("Chat client disconnected")
	}
}

// splitMessage breaks text into chunks of at most limit bytes, preferring
// line boundaries. A single line longer than the limit is hard-split.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		// Hard-split oversized lines
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}

		needed := len(line)
		if current.Len() > 0 {
			needed++ // newline separator
		}
		if current.Len()+needed > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

var _ interfaces.Notifier = (*ChatNotifier)(nil)
