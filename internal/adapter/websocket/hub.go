package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
	"github.com/billiards-bug/scoreboard/internal/domain"
)

const (
	commandBufferSize = 256
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
)

var (
	ErrTooManyConnections = errors.New("too many websocket connections")
	ErrHubStopped         = errors.New("hub stopped")
)

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection *websocket.Conn
	snapshot   domain.Snapshot
	reply      chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type publishCmd struct {
	baseHubCmd
	snapshot domain.Snapshot
}

type countCmd struct {
	baseHubCmd
	reply chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the subscriber registry. A single goroutine owns the connection
// set; every operation is a command on its channel, so registrations and
// publishes are handled in the order they were issued.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	metrics    *metrics.WebSocketMetrics
	done       chan struct{}
}

func NewHub(clock clockwork.Clock, maxClients int, wsMetrics *metrics.WebSocketMetrics) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, commandBufferSize),
		clock:      clock,
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		metrics:    wsMetrics,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds conn and queues snapshot as its first message.
func (h *Hub) Register(conn *websocket.Conn, snapshot domain.Snapshot) error {
	reply := make(chan error, 1)
	if !h.submit(registerCmd{connection: conn, snapshot: snapshot, reply: reply}) {
		return ErrHubStopped
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-reply:
		return err
	case <-h.done:
		return ErrHubStopped
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.submit(unregisterCmd{connection: conn})
}

// Broadcast queues snapshot for every subscriber. It never reports
// delivery problems; a subscriber that cannot keep up is dropped.
func (h *Hub) Broadcast(snapshot domain.Snapshot) {
	if !h.submit(publishCmd{snapshot: snapshot}) {
		slog.Debug("Hub stopped, dropping match update", "revision", snapshot.Revision)
	}
}

// ClientCount returns the number of subscribers. It is 0 once the hub has
// stopped and -1 if the hub did not answer in time.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	if !h.submit(countCmd{reply: reply}) {
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop sends close frames to all subscribers and waits for the hub to exit.
func (h *Hub) Stop() {
	if !h.submit(stopCmd{}) {
		return
	}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) submit(cmd hubCmd) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("internal error")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			c.reply <- h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case publishCmd:
			h.handlePublish(c.snapshot)
		case countCmd:
			c.reply <- len(h.clients)
		case stopCmd:
			slog.Info("Hub shutting down", "clients", len(h.clients))
			h.closeAllClients("server shutting down")
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) error {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting subscriber: max connections reached", "max_connections", h.maxClients)
		h.metrics.ConnectionsRejected.WithLabelValues("capacity").Inc()
		return ErrTooManyConnections
	}

	data, err := encodeMatchUpdate(c.snapshot)
	if err != nil {
		return err
	}

	cw := newClientWriter(c.connection, h.clock)
	cw.enqueue(data, c.snapshot.Revision)
	h.clients[c.connection] = cw
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))

	slog.Debug("Subscriber registered", "subscriber_id", cw.id.String(), "revision", c.snapshot.Revision, "total_clients", len(h.clients))
	return nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, ok := h.clients[conn]
	if !ok {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("Subscriber unregistered", "subscriber_id", cw.id.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handlePublish(snapshot domain.Snapshot) {
	if len(h.clients) == 0 {
		return
	}

	data, err := encodeMatchUpdate(snapshot)
	if err != nil {
		slog.Error("Failed to encode match update", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		if snapshot.Revision <= cw.delivered {
			continue
		}
		if !cw.enqueue(data, snapshot.Revision) {
			slow = append(slow, conn)
			continue
		}
		h.metrics.MessagesPublished.Inc()
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow subscriber", "subscriber_id", h.clients[conn].id.String())
		h.metrics.SlowClientsEvicted.Inc()
		h.handleUnregister(conn)
	}
}

func (h *Hub) closeAllClients(reason string) {
	for conn, cw := range h.clients {
		cw.stopGraceful(reason)
		delete(h.clients, conn)
	}
	h.metrics.ActiveConnections.Set(0)
}
