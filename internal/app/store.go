package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/billiards-bug/scoreboard/internal/domain"
)

// MatchStore owns the single match record on top of a repository. Reads
// never fail: a missing or unreadable record is replaced by defaults.
type MatchStore struct {
	repo  domain.MatchRepository
	clock clockwork.Clock
}

func NewMatchStore(repo domain.MatchRepository, clock clockwork.Clock) *MatchStore {
	return &MatchStore{repo: repo, clock: clock}
}

func (s *MatchStore) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// Ensure creates the default record if none exists yet.
func (s *MatchStore) Ensure(ctx context.Context) error {
	m := domain.DefaultMatch(s.now())
	document, err := m.Encode()
	if err != nil {
		return err
	}

	created, err := s.repo.Create(ctx, domain.MatchRecord{
		Document:  document,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("ensure match record: %w", err)
	}
	if created {
		slog.InfoContext(ctx, "Created default match record")
	}
	return nil
}

// Current returns the stored record merged over defaults.
func (s *MatchStore) Current(ctx context.Context) domain.Match {
	m, _ := s.load(ctx)
	return m
}

// Mutate applies fn to the current state and persists the result with a
// fresh updated_at. Nothing is written when fn fails.
func (s *MatchStore) Mutate(ctx context.Context, fn func(*domain.State) error) (domain.Match, error) {
	m, expected := s.load(ctx)

	if err := fn(&m.State); err != nil {
		return domain.Match{}, err
	}

	m.UpdatedAt = domain.NextUpdatedAt(s.clock.Now(), m.UpdatedAt)
	m.Revision = expected + 1

	document, err := m.Encode()
	if err != nil {
		return domain.Match{}, err
	}

	record := domain.MatchRecord{
		Document:  document,
		Revision:  m.Revision,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := s.repo.Save(ctx, record, expected); err != nil {
		return domain.Match{}, fmt.Errorf("save match: %w", err)
	}
	return m, nil
}

// load returns the current match and the revision it was read at. A row
// that is absent or fails to decode yields defaults; for a decode failure
// the stored revision and timestamps are kept so the next write replaces it.
func (s *MatchStore) load(ctx context.Context) (domain.Match, int64) {
	record, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrMatchNotFound) {
			slog.WarnContext(ctx, "Match record missing, using defaults")
		} else {
			slog.WarnContext(ctx, "Failed to read match record, using defaults", "error", err)
		}
		return domain.DefaultMatch(s.now()), 0
	}

	state, err := domain.DecodeState(record.Document)
	if err != nil {
		slog.WarnContext(ctx, "Stored match document unreadable, using defaults", "revision", record.Revision, "error", err)
	}

	return domain.Match{
		ID:        domain.MatchID,
		State:     state,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Revision:  record.Revision,
	}, record.Revision
}
