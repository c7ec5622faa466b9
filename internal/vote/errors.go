package vote

import (
	"errors"
	"fmt"
	"net/http"
)

// RejectionKind classifies why a vote was not admitted.
type RejectionKind string

const (
	RejectIdentityUnresolved RejectionKind = "IdentityUnresolved"
	RejectListingNotFound    RejectionKind = "ListingNotFound"
	RejectCooldownActive     RejectionKind = "CooldownActive"
)

// Rejection is an expected, non-retryable admission outcome.
type Rejection struct {
	Kind   RejectionKind
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// StatusCode is the HTTP status a boundary should answer with.
func (r *Rejection) StatusCode() int {
	switch r.Kind {
	case RejectIdentityUnresolved:
		return http.StatusBadRequest
	case RejectListingNotFound:
		return http.StatusNotFound
	case RejectCooldownActive:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrIdentityUnresolved = &Rejection{Kind: RejectIdentityUnresolved, Reason: "unable to identify voter"}
	ErrListingNotFound    = &Rejection{Kind: RejectListingNotFound, Reason: "not found"}
	ErrCooldownActive     = &Rejection{Kind: RejectCooldownActive, Reason: "cooldown active"}
)

// PersistenceError wraps a storage fault. The engine never retries; the
// vote either exists in full or not at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("vote: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AsRejection extracts the rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
