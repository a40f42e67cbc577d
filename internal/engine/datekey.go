package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/go-huddle/internal/config"
)

// DateKey identifies a calendar day as a zero-padded "YYYY-MM-DD" string.
//
// The field is unexported so that every key is built by KeyOf or ParseKey,
// which guarantees the fixed-width format that makes lexicographic ordering
// equal to chronological ordering. The zero value is InvalidKey.
type DateKey struct {
	key string
}

// InvalidKey is the sentinel produced for unusable input.
// It is unequal to every valid key and never inside an EventWindow.
var InvalidKey = DateKey{}

// KeyOf returns the key of t using t's own location calendar fields.
// No UTC conversion happens, so a 23:30 local time keeps its local day.
func KeyOf(t time.Time) DateKey {
	if t.IsZero() {
		return InvalidKey
	}
	y, m, d := t.Date()
	if y < 1 || y > 9999 {
		return InvalidKey
	}
	return DateKey{key: fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)}
}

// ParseKey accepts "YYYY-MM-DD" (taken literally) or an RFC3339 timestamp
// (converted to the process local zone first, like a browser's date fields).
// Anything else yields InvalidKey.
func ParseKey(s string) DateKey {
	return ParseKeyIn(s, time.Local)
}

// ParseKeyIn is ParseKey with an explicit zone for timestamps.
func ParseKeyIn(s string, loc *time.Location) DateKey {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(config.DateFormatKey, s); err == nil {
		return KeyOf(t)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if loc == nil {
			loc = time.Local
		}
		return KeyOf(t.In(loc))
	}
	return InvalidKey
}

// MustParseKey is ParseKey for literals known to be valid. It panics otherwise.
func MustParseKey(s string) DateKey {
	k := ParseKey(s)
	if !k.Valid() {
		panic("engine: invalid date key " + s)
	}
	return k
}

// Valid reports whether k identifies a real day.
func (k DateKey) Valid() bool {
	return k.key != ""
}

func (k DateKey) String() string {
	if !k.Valid() {
		return config.InvalidDateKey
	}
	return k.key
}

// Compare returns -1, 0 or +1. Invalid keys sort before every valid key.
func (k DateKey) Compare(other DateKey) int {
	return strings.Compare(k.key, other.key)
}

// Before reports whether k is strictly earlier than other.
func (k DateKey) Before(other DateKey) bool {
	return k.Compare(other) < 0
}

// Time returns midnight of the day in loc (time.Local when nil).
// The zero time is returned for InvalidKey.
func (k DateKey) Time(loc *time.Location) time.Time {
	if !k.Valid() {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(config.DateFormatKey, k.key, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays moves k by n calendar days. InvalidKey stays invalid.
func (k DateKey) AddDays(n int) DateKey {
	if !k.Valid() {
		return InvalidKey
	}
	return KeyOf(k.Time(time.UTC).AddDate(0, 0, n))
}

// Weekday of the day.
func (k DateKey) Weekday() time.Weekday {
	return k.Time(time.UTC).Weekday()
}

// DaysUntil returns the number of days from k to other (negative if other is earlier).
func (k DateKey) DaysUntil(other DateKey) int {
	if !k.Valid() || !other.Valid() {
		return 0
	}
	return int(other.Time(time.UTC).Sub(k.Time(time.UTC)).Hours() / 24)
}

// MarshalText lets DateKey act as a JSON map key.
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses strictly; anything that is not a date is an error.
func (k *DateKey) UnmarshalText(b []byte) error {
	parsed := ParseKey(string(b))
	if !parsed.Valid() {
		return fmt.Errorf("%s: %q", config.ErrBadDate, string(b))
	}
	*k = parsed
	return nil
}

func sortKeys(keys []DateKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
}
