// Package app holds the match store and the mutation gateway.
//
// MatchStore turns a domain.MatchRepository into a record that always
// reads as complete. Service serialises every mutation, persists it, and
// publishes the new state through a domain.MatchPublisher. Handlers depend
// on Service through domain.MatchService.
package app
