package journal

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 14, hour, min, sec, 0, time.UTC)
}

func TestParseReleaseTime(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
	}{
		{name: "afternoon", input: "17:00", expected: "17:00"},
		{name: "midnight", input: "00:00", expected: "00:00"},
		{name: "surrounding spaces", input: " 08:30 ", expected: "08:30"},
		{name: "single digit hour", input: "9:05", expected: "09:05"},
		{name: "hour out of range", input: "24:00", shouldError: true},
		{name: "minute out of range", input: "12:60", shouldError: true},
		{name: "with seconds", input: "12:00:00", shouldError: true},
		{name: "empty", input: "", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := ParseReleaseTime(tt.input)
			if tt.shouldError {
				require.Error(t, err)
				assert.Equal(t, CodeValidation, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rt.String())
		})
	}
}

func TestActiveDate(t *testing.T) {
	release := ReleaseTime{Hour: 17, Minute: 0}
	today := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{name: "just after midnight", now: at(0, 0, 1), expected: yesterday},
		{name: "one minute before release", now: at(16, 59, 0), expected: yesterday},
		{name: "last second before release", now: at(16, 59, 59), expected: yesterday},
		{name: "exactly at release", now: at(17, 0, 0), expected: today},
		{name: "within release minute", now: at(17, 0, 30), expected: today},
		{name: "late evening", now: at(23, 59, 59), expected: today},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.expected.Equal(ActiveDate(release, tt.now)), "got %s", ActiveDate(release, tt.now))
		})
	}
}

func TestActiveDateCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	got := ActiveDate(ReleaseTime{Hour: 9}, now)
	assert.Equal(t, "2026-02-28", got.Format(DateLayout))
}

func TestActiveDateUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 15:30 UTC is 18:30 in loc, past a 17:00 release there.
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC).In(loc)
	assert.Equal(t, "2026-03-14", ActiveDate(DefaultReleaseTime, now).Format(DateLayout))
}

func TestActiveDateAdvancesByOneDayAcrossRelease(t *testing.T) {
	release := ReleaseTime{Hour: 6, Minute: 45}
	for minute := 0; minute < 24*60; minute += 7 {
		t1 := at(0, 0, 0).Add(time.Duration(minute) * time.Minute)
		for _, t2 := range []time.Time{at(6, 45, 0), at(12, 0, 0), at(23, 59, 0)} {
			if !t1.Before(at(6, 45, 0)) {
				continue
			}
			assert.True(t, ActiveDate(release, t1).Equal(ActiveDate(release, t2).AddDate(0, 0, -1)))
		}
	}
}

func TestSecondsUntilNextRelease(t *testing.T) {
	release := ReleaseTime{Hour: 17, Minute: 0}

	tests := []struct {
		name     string
		now      time.Time
		expected uint64
	}{
		{name: "one hour before", now: at(16, 0, 0), expected: 3600},
		{name: "one second before", now: at(16, 59, 59), expected: 1},
		{name: "at release", now: at(17, 0, 0), expected: 0},
		{name: "after release", now: at(20, 0, 0), expected: 0},
		{name: "start of day", now: at(0, 0, 0), expected: 17 * 3600},
		{name: "rounds partial second up", now: at(16, 59, 58).Add(500 * time.Millisecond), expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SecondsUntilNextRelease(release, tt.now))
		})
	}
}

func TestSecondsUntilNextReleaseIsMonotonic(t *testing.T) {
	release := ReleaseTime{Hour: 17, Minute: 0}
	prev := SecondsUntilNextRelease(release, at(0, 0, 0))
	for now := at(0, 0, 0); now.Before(at(23, 59, 59)); now = now.Add(13 * time.Second) {
		got := SecondsUntilNextRelease(release, now)
		assert.LessOrEqual(t, got, prev)
		prev = got
	}
	assert.Zero(t, prev)
}

func TestReleaseInSpringForwardGap(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-03-08 02:00 EST jumps to 03:00 EDT, so 02:30 never happens.
	r := ReleaseTime{Hour: 2, Minute: 30}
	before := time.Date(2026, 3, 8, 1, 59, 0, 0, ny)
	switchover := before.Add(time.Minute)
	require.Equal(t, 3, switchover.Hour())

	assert.Equal(t, uint64(60), SecondsUntilNextRelease(r, before))
	assert.Equal(t, "2026-03-07", ActiveDate(r, before).Format(DateLayout))

	assert.Equal(t, uint64(0), SecondsUntilNextRelease(r, switchover))
	assert.Equal(t, "2026-03-08", ActiveDate(r, switchover).Format(DateLayout))
}

func TestReleaseInRepeatedHour(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-11-01 02:00 EDT falls back to 01:00 EST; 01:30 happens twice.
	r := ReleaseTime{Hour: 1, Minute: 30}
	firstPass := time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC).In(ny)
	secondPass := firstPass.Add(time.Hour)
	require.Equal(t, firstPass.Hour(), secondPass.Hour())

	assert.Equal(t, uint64(0), SecondsUntilNextRelease(r, firstPass))
	assert.Equal(t, "2026-11-01", ActiveDate(r, firstPass).Format(DateLayout))
	assert.Equal(t, "2026-11-01", ActiveDate(r, secondPass).Format(DateLayout))
}
