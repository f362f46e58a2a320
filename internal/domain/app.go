package domain

import "context"

// MatchService is the mutation gateway consumed by the transport layer.
type MatchService interface {
	CurrentMatch(ctx context.Context) Match
	UpdateMatch(ctx context.Context, update MatchUpdate) error
	ChangeScore(ctx context.Context, player int, action string) error
	ResetScores(ctx context.Context, confirm bool) error
	// Subscribe hands the current record to join while no mutation can run,
	// so the joiner cannot miss a publish that follows.
	Subscribe(ctx context.Context, join func(Match) error) error
}
