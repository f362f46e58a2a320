package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// clientWriter owns all writes to one connection. The hub only touches
// send and delivered.
type clientWriter struct {
	id         uuid.UUID
	connection *websocket.Conn
	clock      clockwork.Clock
	send       chan []byte
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	// delivered is the newest revision queued to this client.
	delivered int64
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		id:         uuid.New(),
		connection: connection,
		clock:      clock,
		send:       make(chan []byte, messageBufferSize),
		done:       make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

// enqueue queues a message without blocking. It reports false when the
// buffer is full.
func (cw *clientWriter) enqueue(msg []byte, revision int64) bool {
	select {
	case cw.send <- msg:
		cw.delivered = revision
		return true
	default:
		return false
	}
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg := <-cw.send:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.done)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful flushes queued messages, then sends a close frame with reason.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.done)
		// The run goroutine must be gone before anything else writes.
		cw.wg.Wait()

		cw.flush()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) flush() {
	for {
		select {
		case msg := <-cw.send:
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (cw *clientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
