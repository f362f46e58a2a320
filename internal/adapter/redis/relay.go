package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
	"github.com/billiards-bug/scoreboard/internal/domain"
)

const (
	MatchUpdateChannel = "scoreboard:match_update"
	publishTimeout     = 250 * time.Millisecond
)

var (
	ErrNotSubscribed      = errors.New("relay is not subscribed")
	errSubscriptionClosed = errors.New("relay subscription closed")
)

// relayMessage carries the revision explicitly; Snapshot keeps it out of JSON.
type relayMessage struct {
	Origin   string          `json:"origin"`
	Revision int64           `json:"revision"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// Relay publishes snapshots to Redis and forwards everything received on
// the channel, including its own messages, to the local publisher. While
// this instance has no live subscription, or Redis is unreachable, the
// snapshot goes to local subscribers directly.
type Relay struct {
	rdb        *goredis.Client
	local      domain.MatchPublisher
	metrics    *metrics.RelayMetrics
	instanceID string
	subscribed atomic.Bool
}

func NewRelay(rdb *goredis.Client, local domain.MatchPublisher, relayMetrics *metrics.RelayMetrics) *Relay {
	return &Relay{
		rdb:        rdb,
		local:      local,
		metrics:    relayMetrics,
		instanceID: uuid.NewString(),
	}
}

var _ domain.MatchPublisher = (*Relay)(nil)

// PublishMatch never returns an error; failures are logged and counted.
// A snapshot that reaches the local publisher twice is harmless, the hub
// skips revisions a subscriber already has.
func (r *Relay) PublishMatch(ctx context.Context, snapshot domain.Snapshot) {
	delivered := false
	if !r.subscribed.Load() {
		slog.DebugContext(ctx, "Relay not subscribed, delivering locally", "revision", snapshot.Revision)
		r.local.PublishMatch(ctx, snapshot)
		delivered = true
	}

	data, err := json.Marshal(relayMessage{Origin: r.instanceID, Revision: snapshot.Revision, Snapshot: snapshot})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode relay message", "error", err)
		if !delivered {
			r.local.PublishMatch(ctx, snapshot)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	receivers, err := r.rdb.Publish(ctx, MatchUpdateChannel, data).Result()
	if err != nil {
		r.metrics.Published(false)
		slog.WarnContext(ctx, "Relay publish failed, delivering locally only", "revision", snapshot.Revision, "error", err)
		if !delivered {
			r.local.PublishMatch(ctx, snapshot)
		}
		return
	}
	r.metrics.Published(true)

	if receivers == 0 && !delivered {
		slog.DebugContext(ctx, "Relay message had no receivers, delivering locally", "revision", snapshot.Revision)
		r.local.PublishMatch(ctx, snapshot)
	}
}

// Check is a readiness probe that fails while the relay is not subscribed.
func (r *Relay) Check(context.Context) error {
	if !r.subscribed.Load() {
		return ErrNotSubscribed
	}
	return nil
}

// Run subscribes to the relay channel and forwards messages until ctx is
// done, which is the only case it returns nil. go-redis re-establishes a
// dropped connection on its own; Run fails only when the initial subscribe
// fails or the subscription is closed, and may be retried.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, MatchUpdateChannel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", MatchUpdateChannel, err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	slog.Info("Relay subscribed", "channel", MatchUpdateChannel, "instance_id", r.instanceID)

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errSubscriptionClosed
			}
			r.forward(ctx, msg.Payload)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) forward(ctx context.Context, payload string) {
	snapshot, origin, err := decodeRelayMessage(payload)
	if err != nil {
		r.metrics.Received(false)
		slog.WarnContext(ctx, "Dropping malformed relay message", "error", err)
		return
	}

	r.metrics.Received(true)
	slog.DebugContext(ctx, "Relaying match update", "revision", snapshot.Revision, "origin", origin)
	r.local.PublishMatch(ctx, snapshot)
}

func decodeRelayMessage(payload string) (domain.Snapshot, string, error) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return domain.Snapshot{}, "", fmt.Errorf("decode relay message: %w", err)
	}
	if msg.Revision <= 0 {
		return domain.Snapshot{}, "", errors.New("relay message without revision")
	}
	msg.Snapshot.Revision = msg.Revision
	return msg.Snapshot, msg.Origin, nil
}
