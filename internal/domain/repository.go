package domain

import "context"

// MatchRepository persists the single match row.
type MatchRepository interface {
	// Load returns ErrMatchNotFound when the row does not exist.
	Load(ctx context.Context) (*MatchRecord, error)
	// Create inserts the record unless a row already exists, reporting whether it did.
	Create(ctx context.Context, record MatchRecord) (bool, error)
	// Save writes the record if the stored revision still equals expectedRevision
	// (or no row exists), and returns ErrRevisionConflict otherwise.
	Save(ctx context.Context, record MatchRecord, expectedRevision int64) error
}
