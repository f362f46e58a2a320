package redis

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
	"github.com/billiards-bug/scoreboard/internal/domain"
)

func TestDecodeRelayMessage_RestoresRevision(t *testing.T) {
	snapshot := domain.Snapshot{
		State:     domain.DefaultState(),
		UpdatedAt: time.Date(2026, 5, 9, 19, 30, 0, 0, time.UTC),
		Revision:  12,
	}
	snapshot.Player1Score = 4

	data, err := json.Marshal(relayMessage{Origin: "instance-a", Revision: snapshot.Revision, Snapshot: snapshot})
	require.NoError(t, err)

	got, origin, err := decodeRelayMessage(string(data))
	require.NoError(t, err)
	assert.Equal(t, "instance-a", origin)
	assert.Equal(t, snapshot, got)
}

func TestDecodeRelayMessage_Rejects(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":      `{"origin":`,
		"no revision":   `{"origin":"a","snapshot":{"player1_name":"x"}}`,
		"zero revision": `{"origin":"a","revision":0,"snapshot":{}}`,
		"wrong type":    `{"revision":"three"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := decodeRelayMessage(payload)
			assert.Error(t, err)
		})
	}
}

func TestRelay_UnsubscribedPublishFailureDeliversOnce(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	local := &collectingPublisher{}
	relayMetrics := metrics.NewRelayMetrics(prometheus.NewRegistry())
	relay := NewRelay(rdb, local, relayMetrics)

	assert.ErrorIs(t, relay.Check(context.Background()), ErrNotSubscribed)

	relay.PublishMatch(context.Background(), domain.Snapshot{State: domain.DefaultState(), Revision: 5})

	assert.Equal(t, []int64{5}, local.revisions())
	assert.Equal(t, 1.0, testutil.ToFloat64(relayMetrics.Messages.WithLabelValues("out", "error")))
}

func TestRelay_StalledRedisDoesNotHoldPublish(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	stalled := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			stalled <- conn
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case conn := <-stalled:
				_ = conn.Close()
			default:
				return
			}
		}
	})

	rdb := goredis.NewClient(&goredis.Options{
		Addr:                  ln.Addr().String(),
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	local := &collectingPublisher{}
	relay := NewRelay(rdb, local, metrics.NewRelayMetrics(prometheus.NewRegistry()))

	start := time.Now()
	relay.PublishMatch(context.Background(), domain.Snapshot{State: domain.DefaultState(), Revision: 9})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []int64{9}, local.revisions())
}
