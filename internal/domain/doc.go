// Package domain defines the match record, its score rules, and the
// interfaces the app and adapter layers meet at.
//
// No I/O lives here. Adapters implement MatchRepository and MatchPublisher;
// the HTTP layer consumes MatchService.
package domain
