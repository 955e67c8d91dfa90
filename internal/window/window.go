// Package window resolves user-facing time specifications into concrete
// [start, end) windows. Exactly one of the four specification kinds
// (day, explicit range, relative duration, since-date) must be given.
package window

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/netusage-app/netusage/internal/netmodel"
)

var (
	// ErrAmbiguousSpec means zero or more than one selector was supplied.
	ErrAmbiguousSpec = errors.New("exactly one of day, from/to, last, or since must be given")
	// ErrInvalidRange means an explicit range with end <= start.
	ErrInvalidRange = errors.New("range end must come after range start")
	// ErrInvalidDuration means a malformed relative-duration string.
	ErrInvalidDuration = errors.New("invalid duration (expected forms like 30m, 1h, 24h, 7d, 2w)")
	// ErrInvalidDateTime means an unparsable date or date-time string.
	ErrInvalidDateTime = errors.New("invalid date/time (expected YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)")
)

// durationUnits maps relative-duration suffixes to seconds.
var durationUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
}

// dateTimeLayouts are tried in order when parsing extended date-time
// strings without an explicit offset; strings carrying an offset are
// matched against RFC 3339 first.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// Spec is the raw time specification as supplied by the user. At most
// one selector group may be populated: Day, From+To, Last, or Since.
// TZ optionally names an IANA timezone used for day boundaries and for
// date-time strings without an embedded offset.
type Spec struct {
	Day   string
	From  string
	To    string
	Last  string
	Since string
	TZ    string
}

// Resolver turns Specs into Windows. Now and Local are injected so
// resolution is deterministic under test; production wiring uses
// time.Now and time.Local.
type Resolver struct {
	Now   func() time.Time
	Local *time.Location
}

// NewResolver returns a Resolver bound to the real clock and the
// process's local timezone.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now, Local: time.Local}
}

// Resolve validates the Spec and produces the corresponding window.
func (r *Resolver) Resolve(s Spec) (netmodel.Window, error) {
	selectors := 0
	if s.Day != "" {
		selectors++
	}
	if s.From != "" || s.To != "" {
		if s.From == "" || s.To == "" {
			return netmodel.Window{}, fmt.Errorf("%w: from and to must be given together", ErrAmbiguousSpec)
		}
		selectors++
	}
	if s.Last != "" {
		selectors++
	}
	if s.Since != "" {
		selectors++
	}
	if selectors != 1 {
		return netmodel.Window{}, ErrAmbiguousSpec
	}

	loc, err := r.location(s.TZ)
	if err != nil {
		return netmodel.Window{}, err
	}

	switch {
	case s.Day != "":
		return r.resolveDay(s.Day, loc)
	case s.From != "":
		return r.resolveRange(s.From, s.To, loc)
	case s.Last != "":
		return r.resolveLast(s.Last)
	default:
		return r.resolveSince(s.Since, loc)
	}
}

// location resolves an explicit timezone name, falling back to the
// resolver's local zone when none is given.
func (r *Resolver) location(tz string) (*time.Location, error) {
	if tz == "" {
		return r.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// resolveDay returns [midnight, next midnight) for the given calendar
// date. Midnights are computed in the target zone, so across a DST
// transition the window may be 23 or 25 hours.
func (r *Resolver) resolveDay(day string, loc *time.Location) (netmodel.Window, error) {
	d, err := time.ParseInLocation(dateLayout, day, loc)
	if err != nil {
		return netmodel.Window{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, day)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return netmodel.Window{Start: start.Unix(), End: end.Unix()}, nil
}

// resolveRange parses both endpoints and enforces from < to.
func (r *Resolver) resolveRange(from, to string, loc *time.Location) (netmodel.Window, error) {
	start, err := parseDateTime(from, loc)
	if err != nil {
		return netmodel.Window{}, err
	}
	end, err := parseDateTime(to, loc)
	if err != nil {
		return netmodel.Window{}, err
	}
	if end <= start {
		return netmodel.Window{}, fmt.Errorf("%w (%s .. %s)", ErrInvalidRange, from, to)
	}
	return netmodel.Window{Start: start, End: end}, nil
}

// resolveLast maps "<int><unit>" onto [now-duration, now).
func (r *Resolver) resolveLast(last string) (netmodel.Window, error) {
	seconds, err := ParseDuration(last)
	if err != nil {
		return netmodel.Window{}, err
	}
	now := r.Now().Unix()
	return netmodel.Window{Start: now - seconds, End: now}, nil
}

// resolveSince accepts either a bare date (that date's midnight) or a
// full date-time, and runs the window up to now.
func (r *Resolver) resolveSince(since string, loc *time.Location) (netmodel.Window, error) {
	since = strings.TrimSpace(since)
	var start int64
	if !strings.ContainsAny(since, "T ") && len(since) == len(dateLayout) {
		w, err := r.resolveDay(since, loc)
		if err != nil {
			return netmodel.Window{}, err
		}
		start = w.Start
	} else {
		var err error
		start, err = parseDateTime(since, loc)
		if err != nil {
			return netmodel.Window{}, err
		}
	}
	return netmodel.Window{Start: start, End: r.Now().Unix()}, nil
}

// ParseDuration converts a relative-duration string of the form
// "<integer><unit>" (unit one of s, m, h, d, w) into seconds.
func ParseDuration(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	unit, ok := durationUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidDuration, s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return n * unit, nil
}

// parseDateTime parses an extended date-time string into epoch seconds.
// Strings with an embedded offset are honored as-is; otherwise the
// string is interpreted in loc.
func parseDateTime(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Unix(), nil
		}
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
}

// HourlyBuckets subdivides a day window into 24 contiguous one-hour
// sub-windows. Buckets past the window end (short DST days) collapse to
// zero width at the boundary.
func HourlyBuckets(w netmodel.Window) []netmodel.Window {
	buckets := make([]netmodel.Window, 0, 24)
	for h := int64(0); h < 24; h++ {
		start := w.Start + h*3600
		end := start + 3600
		if end > w.End {
			end = w.End
		}
		if start > w.End {
			start = w.End
		}
		buckets = append(buckets, netmodel.Window{Start: start, End: end})
	}
	return buckets
}
