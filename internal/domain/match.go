package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MatchID is the identifier of the one and only match record.
const MatchID = 1

const (
	DefaultPlayer1Name = "Player 1"
	DefaultPlayer2Name = "Player 2"
	DefaultRaceTo      = 5
)

// State is the persisted body of the match: everything except identity and timestamps.
type State struct {
	Player1Name  string  `json:"player1_name"`
	Player1Logo  *string `json:"player1_logo"`
	Player1Fargo *int    `json:"player1_fargo"`
	Player1Score int     `json:"player1_score"`
	Player2Name  string  `json:"player2_name"`
	Player2Logo  *string `json:"player2_logo"`
	Player2Fargo *int    `json:"player2_fargo"`
	Player2Score int     `json:"player2_score"`
	RaceTo       int     `json:"race_to"`
}

func DefaultState() State {
	return State{
		Player1Name: DefaultPlayer1Name,
		Player2Name: DefaultPlayer2Name,
		RaceTo:      DefaultRaceTo,
	}
}

// DecodeState merges a stored document over the defaults, so fields the
// document predates come back with their default values. On a decode
// error the defaults are returned together with the error.
func DecodeState(document []byte) (State, error) {
	state := DefaultState()
	if len(document) == 0 {
		return state, fmt.Errorf("decode match document: %w", ErrEmptyDocument)
	}
	if err := json.Unmarshal(document, &state); err != nil {
		return DefaultState(), fmt.Errorf("decode match document: %w", err)
	}
	state.Player1Score = max(0, state.Player1Score)
	state.Player2Score = max(0, state.Player2Score)
	return state, nil
}

func (s State) Encode() ([]byte, error) {
	document, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode match document: %w", err)
	}
	return document, nil
}

// ApplyScore moves one player's score by one point, never below zero.
func (s *State) ApplyScore(player Player, action ScoreAction) {
	score := &s.Player1Score
	if player == Player2 {
		score = &s.Player2Score
	}

	switch action {
	case ScoreIncrement:
		*score++
	case ScoreDecrement:
		*score = max(0, *score-1)
	}
}

func (s *State) ResetScores() {
	s.Player1Score = 0
	s.Player2Score = 0
}

// Match is the full record as stored and as served by the read endpoint.
type Match struct {
	ID int `json:"id"`
	State
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Revision counts successful writes. It is internal bookkeeping and
	// never leaves the process in the JSON representation.
	Revision int64 `json:"-"`
}

func DefaultMatch(now time.Time) Match {
	return Match{
		ID:        MatchID,
		State:     DefaultState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot drops the persistence-only fields (id, created_at).
func (m Match) Snapshot() Snapshot {
	return Snapshot{
		State:     m.State,
		UpdatedAt: m.UpdatedAt,
		Revision:  m.Revision,
	}
}

// Snapshot is the state pushed to subscribers.
type Snapshot struct {
	State
	UpdatedAt time.Time `json:"updated_at"`
	Revision  int64     `json:"-"`
}

// MatchUpdate carries the editable fields of a full update. Scores are not part of it.
type MatchUpdate struct {
	Player1Name  string  `json:"player1_name"`
	Player1Logo  *string `json:"player1_logo"`
	Player1Fargo *int    `json:"player1_fargo"`
	Player2Name  string  `json:"player2_name"`
	Player2Logo  *string `json:"player2_logo"`
	Player2Fargo *int    `json:"player2_fargo"`
	RaceTo       int     `json:"race_to"`
}

// Apply overwrites every editable field with the update's values as given.
func (u MatchUpdate) Apply(s *State) {
	s.Player1Name = u.Player1Name
	s.Player1Logo = u.Player1Logo
	s.Player1Fargo = u.Player1Fargo
	s.Player2Name = u.Player2Name
	s.Player2Logo = u.Player2Logo
	s.Player2Fargo = u.Player2Fargo
	s.RaceTo = u.RaceTo
}

// MatchRecord is the row shape a repository persists.
type MatchRecord struct {
	Document  []byte
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NextUpdatedAt returns a write timestamp strictly after previous.
func NextUpdatedAt(now, previous time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(previous) {
		return previous.Add(time.Microsecond)
	}
	return now
}
