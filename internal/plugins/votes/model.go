// Package votes implements tag change requests: a proposal to change the
// value of a privileged tag on a fight, decided by anonymous up/down votes.
// A request resolves the moment either side reaches its threshold; an
// accepted request writes its value into the fight's tag tree in the same
// transaction as the deciding vote.
package votes

import (
	"time"

	"github.com/buhurtdb/buhurtdb/internal/plugins/tags"
)

// Status is the lifecycle state of a change request. Pending is the only
// non-terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ParseStatus reports whether s names a known status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusAccepted, StatusRejected:
		return st, true
	}
	return "", false
}

const (
	// MinThreshold and MaxThreshold bound a per-request threshold override.
	MinThreshold = 1
	MaxThreshold = 1000
)

// TagChangeRequest proposes a new value for a privileged tag on a fight.
// VotesFor and VotesAgainst are recomputed from the votes table on every
// ballot; they are a cache, not the source of truth.
type TagChangeRequest struct {
	ID            int        `json:"id"`
	FightID       int        `json:"fight_id"`
	TagTypeID     int        `json:"tag_type_id"`
	TagTypeName   string     `json:"tag_type"`
	ProposedValue string     `json:"proposed_value"`
	CurrentValue  *string    `json:"current_value"`
	Status        Status     `json:"status"`
	Threshold     int        `json:"threshold"`
	VotesFor      int        `json:"votes_for"`
	VotesAgainst  int        `json:"votes_against"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}

// Vote is one anonymous ballot. SessionHash is a BLAKE2b digest of the
// voter token.
type Vote struct {
	ID          int       `json:"id"`
	RequestID   int       `json:"request_id"`
	SessionHash string    `json:"-"`
	IsUpvote    bool      `json:"is_upvote"`
	CreatedAt   time.Time `json:"created_at"`
}

// VoteResult is returned after a ballot is recorded. Tag is the live tag
// when the ballot accepted the request.
type VoteResult struct {
	Request *TagChangeRequest `json:"request"`
	Tag     *tags.Tag         `json:"tag,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// ProposeRequest holds the data submitted when proposing a change.
type ProposeRequest struct {
	TagTypeID     int    `json:"tag_type_id"`
	ProposedValue string `json:"proposed_value"`
	Threshold     *int   `json:"threshold"`
}

// CastVoteRequest holds one ballot. IsUpvote is required.
type CastVoteRequest struct {
	IsUpvote *bool `json:"is_upvote"`
}
