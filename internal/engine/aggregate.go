package engine

import (
	"sort"
)

// Profile is the display identity of a participant.
type Profile struct {
	Username   string `json:"username"`
	ProfilePic string `json:"profile_pic"`
}

// Profiles is the injected lookup table from user id to Profile.
// It fills identity fields that the availability payload left blank.
type Profiles map[string]Profile

// resolve prefers the participant's own values and falls back to the table.
func (p Profiles) resolve(userID, username, pic string) (string, string) {
	if prof, ok := p[userID]; ok {
		if username == "" {
			username = prof.Username
		}
		if pic == "" {
			pic = prof.ProfilePic
		}
	}
	return username, pic
}

// Participant is one person's availability map, as fetched for an event.
type Participant struct {
	UserID       string
	Username     string
	ProfilePic   string
	Availability map[DateKey]Status
	// Unrecognised holds the wire value of every StatusUnknown answer.
	Unrecognised map[DateKey]string
}

// AvailabilityEntry is one (user, day, status) answer.
type AvailabilityEntry struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profile_pic"`
	Status     Status `json:"status"`
	// RawStatus is the wire value when Status is StatusUnknown.
	RawStatus string  `json:"raw_status,omitempty"`
	Date      DateKey `json:"date"`
	Organiser bool    `json:"organiser"`
}

// DateTally counts the answers for one day.
type DateTally struct {
	Available    int `json:"available"`
	NotAvailable int `json:"not_available"`
	Tentative    int `json:"tentative"`
}

// Total is the number of counted votes; zero means nobody answered yet.
func (t DateTally) Total() int {
	return t.Available + t.NotAvailable + t.Tentative
}

// Count returns the counter for s (zero for StatusUnknown).
func (t DateTally) Count(s Status) int {
	switch s {
	case Available:
		return t.Available
	case NotAvailable:
		return t.NotAvailable
	case Tentative:
		return t.Tentative
	default:
		return 0
	}
}

// Percentages returns the share of each status in [0, 100].
// All three are zero when Total is zero.
func (t DateTally) Percentages() (available, notAvailable, tentative float64) {
	total := t.Total()
	if total == 0 {
		return 0, 0, 0
	}
	f := float64(total)
	return float64(t.Available) / f * 100, float64(t.NotAvailable) / f * 100, float64(t.Tentative) / f * 100
}

func (t *DateTally) add(s Status) {
	switch s {
	case Available:
		t.Available++
	case NotAvailable:
		t.NotAvailable++
	case Tentative:
		t.Tentative++
	}
}

// Aggregation is the result of one aggregation pass.
type Aggregation struct {
	// Tallies holds one tally per day that received at least one entry.
	Tallies map[DateKey]DateTally
	// Entries is sorted by date, organiser first, then user id.
	Entries []AvailabilityEntry
}

// Aggregate flattens the organiser's and the attendees' availability into
// entries and tallies them in the same pass.
//
// Unknown statuses keep their entry but are not counted. Invalid keys are
// dropped. The result does not depend on the order of attendees.
func Aggregate(organiser Participant, attendees []Participant, profiles Profiles) Aggregation {
	agg := Aggregation{Tallies: make(map[DateKey]DateTally)}

	collect := func(p Participant, isOrganiser bool) {
		username, pic := profiles.resolve(p.UserID, p.Username, p.ProfilePic)
		for day, status := range p.Availability {
			if !day.Valid() {
				continue
			}
			entry := AvailabilityEntry{
				UserID:     p.UserID,
				Username:   username,
				ProfilePic: pic,
				Status:     status,
				Date:       day,
				Organiser:  isOrganiser,
			}
			if !status.Known() {
				entry.RawStatus = p.Unrecognised[day]
			}
			agg.Entries = append(agg.Entries, entry)
			tally := agg.Tallies[day]
			tally.add(status)
			agg.Tallies[day] = tally
		}
	}

	collect(organiser, true)
	for _, a := range attendees {
		collect(a, false)
	}

	sortEntries(agg.Entries)
	return agg
}

// TallyEntries rebuilds tallies from a flattened entry list.
func TallyEntries(entries []AvailabilityEntry) map[DateKey]DateTally {
	tallies := make(map[DateKey]DateTally)
	for _, e := range entries {
		if !e.Date.Valid() {
			continue
		}
		t := tallies[e.Date]
		t.add(e.Status)
		tallies[e.Date] = t
	}
	return tallies
}

// Tally returns the tally for k (zero value when nobody answered).
func (a Aggregation) Tally(k DateKey) DateTally {
	return a.Tallies[k]
}

// On returns the entries for day k, in Entries order.
func (a Aggregation) On(k DateKey) []AvailabilityEntry {
	lo := sort.Search(len(a.Entries), func(i int) bool {
		return a.Entries[i].Date.Compare(k) >= 0
	})
	hi := lo
	for hi < len(a.Entries) && a.Entries[hi].Date == k {
		hi++
	}
	if lo == hi {
		return nil
	}
	out := make([]AvailabilityEntry, hi-lo)
	copy(out, a.Entries[lo:hi])
	return out
}

// DaySummary groups one day's entries by status for detail views.
type DaySummary struct {
	Date         DateKey             `json:"date"`
	Tally        DateTally           `json:"tally"`
	Available    []AvailabilityEntry `json:"available"`
	NotAvailable []AvailabilityEntry `json:"not_available"`
	Tentative    []AvailabilityEntry `json:"tentative"`
	Other        []AvailabilityEntry `json:"other,omitempty"`
}

// Day builds the "who said what" summary of day k.
func (a Aggregation) Day(k DateKey) DaySummary {
	sum := DaySummary{
		Date:         k,
		Tally:        a.Tally(k),
		Available:    []AvailabilityEntry{},
		NotAvailable: []AvailabilityEntry{},
		Tentative:    []AvailabilityEntry{},
	}
	for _, e := range a.On(k) {
		switch e.Status {
		case Available:
			sum.Available = append(sum.Available, e)
		case NotAvailable:
			sum.NotAvailable = append(sum.NotAvailable, e)
		case Tentative:
			sum.Tentative = append(sum.Tentative, e)
		default:
			sum.Other = append(sum.Other, e)
		}
	}
	return sum
}

// VoteOf returns userID's vote on day k.
func (a Aggregation) VoteOf(userID string, k DateKey) Vote {
	for _, e := range a.On(k) {
		if e.UserID == userID {
			return VoteFor(e.Status)
		}
	}
	return NoVote
}

// WithVote returns a copy of a where userID's answer on day k is replaced by v.
// NoVote removes the answer. Identity fields are taken from the user's other entries.
func (a Aggregation) WithVote(userID string, k DateKey, v Vote) Aggregation {
	out := Aggregation{Entries: make([]AvailabilityEntry, 0, len(a.Entries)+1)}
	identity := AvailabilityEntry{UserID: userID}
	for _, e := range a.Entries {
		if e.UserID == userID {
			identity = e
			if e.Date == k {
				continue
			}
		}
		out.Entries = append(out.Entries, e)
	}
	if s, ok := v.Get(); ok && k.Valid() {
		identity.Date = k
		identity.Status = s
		identity.RawStatus = ""
		out.Entries = append(out.Entries, identity)
	}
	sortEntries(out.Entries)
	out.Tallies = TallyEntries(out.Entries)
	return out
}

func sortEntries(entries []AvailabilityEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Organiser != b.Organiser {
			return a.Organiser
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.Status < b.Status
	})
}
