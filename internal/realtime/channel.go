package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/prsnl/codemirror-client/internal/model"
	"github.com/prsnl/codemirror-client/internal/model/dto"
)

// Sink receives every decoded status update. The store's merge function is
// the other end; the channel itself holds no job state.
type Sink func(jobID string, u model.Update)

// Channel is the push-based update feed for one job: a websocket
// subscription whose messages mirror the polling status payload. It is one
// of two feeds into the store and never assumes it is the only one, so every
// failure here is non-fatal (polling keeps covering).
type Channel struct {
	url  string
	sink Sink

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	opened bool
}

// New creates a channel for the given websocket endpoint. Connect starts it.
func New(url string, sink Sink) *Channel {
	return &Channel{url: url, sink: sink}
}

// Connect opens the subscription and starts forwarding messages to the sink.
// The dial happens on a separate goroutine; connection and parse failures
// are logged, never surfaced to the caller. Calling Connect twice is a no-op.
func (c *Channel) Connect(jobID string) {
	c.mu.Lock()
	if c.closed || c.opened {
		c.mu.Unlock()
		return
	}
	c.opened = true
	c.mu.Unlock()

	go c.run(jobID)
}

func (c *Channel) run(jobID string) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		log.Printf("realtime: connect failed for job %s: %v (polling covers)", jobID, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		// Disconnect raced the dial; drop the connection immediately.
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Printf("realtime: read error for job %s: %v (polling covers)", jobID, err)
			}
			return
		}

		var status dto.JobStatusResponse
		if err := json.Unmarshal(data, &status); err != nil {
			log.Printf("realtime: malformed message for job %s: %v", jobID, err)
			continue
		}

		c.sink(jobID, status.ToUpdate())
	}
}

// Disconnect closes the subscription. Idempotent and safe to call before the
// dial has completed; a connection established afterwards is closed on sight.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
