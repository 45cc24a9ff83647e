package journal

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage format of prompt dates.
const DateLayout = "2006-01-02"

// ReleaseTime is the wall-clock time of day at which a table's next prompt
// becomes active.
type ReleaseTime struct {
	Hour   int
	Minute int
}

// DefaultReleaseTime is used for new tables that do not pick one.
var DefaultReleaseTime = ReleaseTime{Hour: 17, Minute: 0}

// ParseReleaseTime parses a 24h "HH:MM" time of day.
func ParseReleaseTime(s string) (ReleaseTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ReleaseTime{}, WrapError(CodeValidation, ErrInvalidTime.Message, err)
	}
	return ReleaseTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (r ReleaseTime) String() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

func (r ReleaseTime) minutes() int {
	return r.Hour*60 + r.Minute
}

// DateOf returns the calendar date of t in t's own location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a stored YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func released(r ReleaseTime, now time.Time) bool {
	return now.Hour()*60+now.Minute() >= r.minutes()
}

// ActiveDate returns the date whose prompt is being answered at now. Before
// the release time that is yesterday; from the release minute on it is today.
// The comparison uses the wall clock of now's location, so across a DST jump
// the release happens at the first wall-clock minute at or past r, and in a
// repeated hour it happens on the first pass.
func ActiveDate(r ReleaseTime, now time.Time) time.Time {
	today := DateOf(now)
	if !released(r, now) {
		return today.AddDate(0, 0, -1)
	}
	return today
}

// SecondsUntilNextRelease returns the whole seconds, rounded up, until today's
// release, or 0 once it has passed. It counts down to the same instant
// ActiveDate switches at: when r falls in a spring-forward gap that is the
// start of the new zone offset.
func SecondsUntilNextRelease(r ReleaseTime, now time.Time) uint64 {
	if released(r, now) {
		return 0
	}

	y, m, d := now.Date()
	release := time.Date(y, m, d, r.Hour, r.Minute, 0, 0, now.Location())
	if got := release.Hour()*60 + release.Minute(); got != r.minutes() {
		// r does not exist today; time.Date moved it to one side of the gap
		start, end := release.ZoneBounds()
		if got < r.minutes() {
			release = end
		} else {
			release = start
		}
	}
	remaining := release.Sub(now)
	if remaining <= 0 {
		return 0
	}

	secs := uint64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}
