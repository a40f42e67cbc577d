package engine

import "sort"

// tentativeWeight is how much a "tentative" vote counts toward a range score.
const tentativeWeight = 0.5

// RangeSuggestion is a run of Duration consecutive in-window days.
type RangeSuggestion struct {
	Start        DateKey   `json:"start"`
	End          DateKey   `json:"end"`
	Days         []DateKey `json:"days"`
	Score        float64   `json:"score"`
	Available    int       `json:"available"`
	Tentative    int       `json:"tentative"`
	NotAvailable int       `json:"not_available"`
}

// SuggestRanges scores every run of w.Duration consecutive days inside w and
// returns the best limit runs (all of them when limit <= 0).
//
// A run scores +1 per available vote, +0.5 per tentative vote and -1 per
// not-available vote. Ties go to the run with fewer conflicts, then the
// earlier start.
func SuggestRanges(tallies map[DateKey]DateTally, w EventWindow, limit int) []RangeSuggestion {
	if w.Validate() != nil {
		return nil
	}
	days := w.Days()
	n := w.Duration

	var out []RangeSuggestion
	for i := 0; i+n <= len(days); i++ {
		run := days[i : i+n]
		s := RangeSuggestion{
			Start: run[0],
			End:   run[n-1],
			Days:  append([]DateKey(nil), run...),
		}
		for _, d := range run {
			t := tallies[d]
			s.Available += t.Available
			s.Tentative += t.Tentative
			s.NotAvailable += t.NotAvailable
		}
		s.Score = float64(s.Available) + tentativeWeight*float64(s.Tentative) - float64(s.NotAvailable)
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.NotAvailable != b.NotAvailable {
			return a.NotAvailable < b.NotAvailable
		}
		return a.Start.Before(b.Start)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
