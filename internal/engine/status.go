package engine

import (
	"encoding/json"

	"github.com/tartampluch/go-huddle/internal/config"
)

// Status is one participant's answer for one day.
type Status uint8

const (
	// StatusUnknown is a wire value this version does not understand.
	// It is kept on entries but never counted.
	StatusUnknown Status = iota
	Available
	NotAvailable
	Tentative
)

// ParseStatus maps a wire value to a Status. Unknown values are not an error.
func ParseStatus(s string) Status {
	switch s {
	case config.StatusWireAvailable:
		return Available
	case config.StatusWireNotAvailable:
		return NotAvailable
	case config.StatusWireTentative:
		return Tentative
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case Available:
		return config.StatusWireAvailable
	case NotAvailable:
		return config.StatusWireNotAvailable
	case Tentative:
		return config.StatusWireTentative
	default:
		return ""
	}
}

// Known reports whether s is one of the three countable statuses.
func (s Status) Known() bool {
	return s == Available || s == NotAvailable || s == Tentative
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText never fails: unrecognised values become StatusUnknown.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// Vote is an optional Status: either a cast vote or "no vote yet".
type Vote struct {
	status Status
	cast   bool
}

// NoVote is the empty Vote.
var NoVote = Vote{}

// VoteFor wraps a known status. Unknown statuses produce NoVote.
func VoteFor(s Status) Vote {
	if !s.Known() {
		return NoVote
	}
	return Vote{status: s, cast: true}
}

// Get returns the status and whether a vote was cast.
func (v Vote) Get() (Status, bool) {
	return v.status, v.cast
}

// Cast reports whether a vote exists.
func (v Vote) Cast() bool { return v.cast }

// NextVote is the single-day click cycle used when a participant edits their
// own availability: no vote -> available -> not available -> tentative -> no vote.
func NextVote(v Vote) Vote {
	s, ok := v.Get()
	if !ok {
		return VoteFor(Available)
	}
	switch s {
	case Available:
		return VoteFor(NotAvailable)
	case NotAvailable:
		return VoteFor(Tentative)
	default:
		return NoVote
	}
}

// MarshalJSON encodes NoVote as null.
func (v Vote) MarshalJSON() ([]byte, error) {
	if !v.cast {
		return []byte("null"), nil
	}
	return json.Marshal(v.status.String())
}
