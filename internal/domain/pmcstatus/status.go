// Package pmcstatus defines the submission status vocabulary.
//
// Only DRAFT and PENDING are owned by this system; everything after PENDING
// is reported by the deposit destination and passed through verbatim, so
// Status is an open string type rather than a closed enum.
package pmcstatus

import "strings"

type Status string

const (
	// Draft is the initial state of every submission version.
	Draft Status = "DRAFT"
	// Pending is entered when the scientist confirms the deposit.
	Pending Status = "PENDING"
)

// Destination-reported states the UI filters on. The destination may emit
// states outside this list; they are stored as received.
const (
	DepositFailed    Status = "DEPOSIT_FAILED"
	DepositRejected  Status = "DEPOSIT_REJECTED"
	Accepted         Status = "ACCEPTED"
	ReviewerRejected Status = "REVIEWER_REJECTED"
	NeedsChanges     Status = "NEEDS_CHANGES"
)

func (s Status) String() string { return string(s) }

// Is compares two statuses ignoring case and surrounding whitespace, since
// destination emails have been seen to vary casing.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), strings.TrimSpace(string(other)))
}

// Terminal reports whether no further destination signals are expected.
func (s Status) Terminal() bool {
	return s.Is(Accepted)
}

// NeedsAttention reports whether the submission is in a state the scientist
// has to act on. Used for dashboard filtering only; transitions never branch
// on it.
func (s Status) NeedsAttention() bool {
	for _, st := range []Status{DepositFailed, DepositRejected, ReviewerRejected, NeedsChanges} {
		if s.Is(st) {
			return true
		}
	}
	return false
}

// Normalize trims whitespace. Destination vocabulary is otherwise preserved
// byte for byte.
func Normalize(raw string) Status {
	return Status(strings.TrimSpace(raw))
}
