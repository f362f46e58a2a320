package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/billiards-bug/scoreboard/internal/domain"
)

// Mutation outcomes, as recorded by a MutationRecorder.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// MutationRecorder counts mutation outcomes per operation.
type MutationRecorder interface {
	RecordMutation(operation, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordMutation(string, string) {}

// Service is the mutation gateway. It validates requests, applies them to
// the MatchStore and publishes the resulting state.
//
// One mutex serialises mutations and subscriptions: persist and publish
// happen inside it, so publishes follow mutation order and a subscriber's
// join snapshot is never older than the next publish it sees.
type Service struct {
	mu        sync.Mutex
	store     *MatchStore
	publisher domain.MatchPublisher
	recorder  MutationRecorder
}

// NewService creates the gateway. recorder may be nil.
func NewService(store *MatchStore, publisher domain.MatchPublisher, recorder MutationRecorder) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{store: store, publisher: publisher, recorder: recorder}
}

func (s *Service) CurrentMatch(ctx context.Context) domain.Match {
	return s.store.Current(ctx)
}

// UpdateMatch overwrites names, logos, fargo ratings and race_to. Scores are kept.
func (s *Service) UpdateMatch(ctx context.Context, update domain.MatchUpdate) error {
	return s.mutate(ctx, "update_match", func(state *domain.State) error {
		update.Apply(state)
		return nil
	})
}

// ChangeScore moves one player's score by a point, clamped at zero.
func (s *Service) ChangeScore(ctx context.Context, player int, action string) error {
	p, err := domain.ParsePlayer(player)
	if err != nil {
		s.recorder.RecordMutation("change_score", ResultRejected)
		return err
	}
	a, err := domain.ParseScoreAction(action)
	if err != nil {
		s.recorder.RecordMutation("change_score", ResultRejected)
		return err
	}

	return s.mutate(ctx, "change_score", func(state *domain.State) error {
		state.ApplyScore(p, a)
		return nil
	})
}

// ResetScores zeroes both scores. confirm must be true.
func (s *Service) ResetScores(ctx context.Context, confirm bool) error {
	if !confirm {
		s.recorder.RecordMutation("reset_scores", ResultRejected)
		return domain.ErrNotConfirmed
	}

	return s.mutate(ctx, "reset_scores", func(state *domain.State) error {
		state.ResetScores()
		return nil
	})
}

// Subscribe passes the current record to join with mutations held off.
func (s *Service) Subscribe(ctx context.Context, join func(domain.Match) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return join(s.store.Current(ctx))
}

func (s *Service) mutate(ctx context.Context, operation string, fn func(*domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.store.Mutate(ctx, fn)
	if err != nil {
		result := ResultFailed
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotConfirmed) {
			result = ResultRejected
		}
		s.recorder.RecordMutation(operation, result)
		slog.ErrorContext(ctx, "Match mutation failed", "operation", operation, "error", err)
		return err
	}

	s.recorder.RecordMutation(operation, ResultApplied)
	slog.DebugContext(ctx, "Match mutated", "operation", operation, "revision", m.Revision,
		"player1_score", m.Player1Score, "player2_score", m.Player2Score)

	s.publisher.PublishMatch(ctx, m.Snapshot())
	return nil
}
