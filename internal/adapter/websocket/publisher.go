package websocket

import (
	"context"

	"github.com/billiards-bug/scoreboard/internal/domain"
)

// Publisher delivers match snapshots to the subscribers of a local hub.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) PublishMatch(_ context.Context, snapshot domain.Snapshot) {
	p.hub.Broadcast(snapshot)
}

var _ domain.MatchPublisher = (*Publisher)(nil)
