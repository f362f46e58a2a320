package domain

import "context"

// MatchPublisher fans a snapshot out to subscribers. Delivery is best effort
// and never reported back to the caller.
type MatchPublisher interface {
	PublishMatch(ctx context.Context, snapshot Snapshot)
}
