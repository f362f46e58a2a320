package domain

import "fmt"

// Player selects one side of the match.
type Player int

const (
	Player1 Player = 1
	Player2 Player = 2
)

func ParsePlayer(n int) (Player, error) {
	switch Player(n) {
	case Player1, Player2:
		return Player(n), nil
	default:
		return 0, fmt.Errorf("player %d: %w", n, ErrInvalidPlayer)
	}
}

// ScoreAction is the direction of a single-point score change.
type ScoreAction string

const (
	ScoreIncrement ScoreAction = "increment"
	ScoreDecrement ScoreAction = "decrement"
)

func ParseScoreAction(s string) (ScoreAction, error) {
	switch ScoreAction(s) {
	case ScoreIncrement, ScoreDecrement:
		return ScoreAction(s), nil
	default:
		return "", fmt.Errorf("action %q: %w", s, ErrInvalidAction)
	}
}
