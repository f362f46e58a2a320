package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/billiards-bug/scoreboard/internal/domain"
)

// EventMatchUpdate is the only event type sent to subscribers.
const EventMatchUpdate = "match_update"

// Message is the envelope written to every subscriber.
type Message struct {
	Type    string          `json:"type"`
	Payload domain.Snapshot `json:"payload"`
}

func encodeMatchUpdate(snapshot domain.Snapshot) ([]byte, error) {
	data, err := json.Marshal(Message{Type: EventMatchUpdate, Payload: snapshot})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", EventMatchUpdate, err)
	}
	return data, nil
}
