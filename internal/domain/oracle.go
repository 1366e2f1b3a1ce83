package domain

import "time"

// DisputeStatus is the optimistic oracle's view of a question challenge.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusVoting   DisputeStatus = "voting"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute mirrors an open challenge against a proposed market outcome.
type Dispute struct {
	QuestionID      string
	MarketID        string
	Disputer        string
	ProposedOutcome int
	BondMicro       int64
	Status          DisputeStatus
	RaisedAt        time.Time
	VotingEndsAt    *time.Time
}

// Vote is one address's recorded vote on a disputed question.
type Vote struct {
	QuestionID string
	Voter      string
	Choice     int // 0 = YES, 1 = NO
	Weight     int64
	CastAt     time.Time
}
