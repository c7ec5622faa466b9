package model

import (
	"errors"
	"time"
)

const (
	VoteSourceWeb      = "WEB"
	VoteSourceVotifier = "VOTIFIER"
)

var ErrVoteWithoutVoter = errors.New("vote has neither a user id nor an ip hash")

// Vote is write-once: created by the admission engine, never updated.
type Vote struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	UserID    *string   `json:"userId,omitempty"`
	IPHash    *string   `json:"-"`
	UserAgent *string   `json:"userAgent,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v Vote) Validate() error {
	if (v.UserID == nil || *v.UserID == "") && (v.IPHash == nil || *v.IPHash == "") {
		return ErrVoteWithoutVoter
	}
	return nil
}

// VoteRequest is the optional body of a vote submission. Username is the
// Minecraft name forwarded to the server's Votifier listener.
type VoteRequest struct {
	Username string `json:"username" validate:"omitempty,mc_username"`
}

type VoteResponse struct {
	OK     bool   `json:"ok"`
	VoteID string `json:"voteId"`
}

// VoteUpdate is pushed to live feed subscribers after an accepted vote.
type VoteUpdate struct {
	Type      string    `json:"type"`
	Slug      string    `json:"slug"`
	VoteCount int64     `json:"voteCount"`
	At        time.Time `json:"at"`
}
