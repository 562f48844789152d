package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) time.Time { return base.Add(offset) }

func ptr(t time.Time) *time.Time { return &t }

func TestUsedTime(t *testing.T) {
	now := at(60 * time.Minute)
	tests := []struct {
		name string
		tl   Timeline
		want time.Duration
	}{
		{
			name: "not started",
			tl:   Timeline{},
			want: 0,
		},
		{
			name: "running never paused",
			tl:   Timeline{StartedAt: ptr(at(0))},
			want: 60 * time.Minute,
		},
		{
			name: "ended never paused",
			tl:   Timeline{StartedAt: ptr(at(0)), EndedAt: ptr(at(25 * time.Minute))},
			want: 25 * time.Minute,
		},
		{
			name: "cancelled never paused",
			tl:   Timeline{StartedAt: ptr(at(0)), CancelledAt: ptr(at(7 * time.Minute))},
			want: 7 * time.Minute,
		},
		{
			name: "paused never resumed",
			tl:   Timeline{StartedAt: ptr(at(0)), PausedAt: []time.Time{at(10 * time.Minute)}},
			want: 10 * time.Minute,
		},
		{
			name: "paused never resumed then ended",
			tl: Timeline{
				StartedAt: ptr(at(0)),
				PausedAt:  []time.Time{at(10 * time.Minute)},
				EndedAt:   ptr(at(50 * time.Minute)),
			},
			want: 10 * time.Minute,
		},
		{
			name: "resumed and still running",
			tl: Timeline{
				StartedAt: ptr(at(0)),
				PausedAt:  []time.Time{at(10 * time.Minute)},
				ResumedAt: []time.Time{at(30 * time.Minute)},
			},
			want: 10*time.Minute + 30*time.Minute,
		},
		{
			name: "resumed then paused again",
			tl: Timeline{
				StartedAt: ptr(at(0)),
				PausedAt:  []time.Time{at(10 * time.Minute), at(40 * time.Minute)},
				ResumedAt: []time.Time{at(30 * time.Minute)},
			},
			want: 10*time.Minute + 10*time.Minute,
		},
		{
			name: "two cycles then ended",
			tl: Timeline{
				StartedAt: ptr(at(0)),
				PausedAt:  []time.Time{at(5 * time.Minute), at(20 * time.Minute)},
				ResumedAt: []time.Time{at(15 * time.Minute), at(30 * time.Minute)},
				EndedAt:   ptr(at(45 * time.Minute)),
			},
			want: 5*time.Minute + 5*time.Minute + 15*time.Minute,
		},
		{
			name: "resumed then cancelled",
			tl: Timeline{
				StartedAt:   ptr(at(0)),
				PausedAt:    []time.Time{at(5 * time.Minute)},
				ResumedAt:   []time.Time{at(15 * time.Minute)},
				CancelledAt: ptr(at(18 * time.Minute)),
			},
			want: 8 * time.Minute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsedTime(tt.tl, now))
		})
	}
}

func TestUsedTime_SumOfIntervalsWhenEnded(t *testing.T) {
	start := at(0)
	paused := []time.Time{at(3 * time.Minute), at(9 * time.Minute), at(20 * time.Minute)}
	resumed := []time.Time{at(4 * time.Minute), at(12 * time.Minute), at(21 * time.Minute)}
	ended := at(33 * time.Minute)
	tl := Timeline{StartedAt: &start, PausedAt: paused, ResumedAt: resumed, EndedAt: &ended}

	want := paused[0].Sub(start)
	for i := range resumed {
		end := ended
		if i+1 < len(paused) {
			end = paused[i+1]
		}
		want += end.Sub(resumed[i])
	}
	require.Equal(t, want, UsedTime(tl, at(90*time.Minute)))
	assert.Equal(t, want.Milliseconds(), UsedTimeMillis(tl, at(90*time.Minute)))
}

func TestUsedTime_MonotonicWhileRunning(t *testing.T) {
	tl := Timeline{StartedAt: ptr(at(0))}
	prev := time.Duration(-1)
	for i := 0; i < 10; i++ {
		got := UsedTime(tl, at(time.Duration(i)*time.Second))
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestUsedTime_IgnoresZoneOfInputs(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	start := at(0).In(loc)
	ended := at(90 * time.Second)
	tl := Timeline{StartedAt: &start, EndedAt: &ended}
	assert.Equal(t, 90*time.Second, UsedTime(tl, at(time.Hour)))
}

func TestLimitFromMillis(t *testing.T) {
	unlimited := int64(-1)
	tenMinutes := int64(600000)
	zero := int64(0)

	assert.True(t, LimitFromMillis(nil).IsUnlimited())
	assert.True(t, LimitFromMillis(&unlimited).IsUnlimited())

	d, ok := LimitFromMillis(&tenMinutes).Duration()
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, d)

	d, ok = LimitFromMillis(&zero).Duration()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}

func TestCanPause(t *testing.T) {
	tests := []struct {
		name string
		tl   Timeline
		want bool
	}{
		{"not started", Timeline{}, false},
		{"fresh", Timeline{StartedAt: ptr(at(0))}, true},
		{"already paused", Timeline{StartedAt: ptr(at(0)), PausedAt: []time.Time{at(time.Minute)}}, false},
		{"resumed", Timeline{
			StartedAt: ptr(at(0)),
			PausedAt:  []time.Time{at(time.Minute)},
			ResumedAt: []time.Time{at(2 * time.Minute)},
		}, true},
		{"ended", Timeline{StartedAt: ptr(at(0)), EndedAt: ptr(at(time.Minute))}, false},
		{"cancelled", Timeline{StartedAt: ptr(at(0)), CancelledAt: ptr(at(time.Minute))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPause(tt.tl))
		})
	}
}

func TestCanResume(t *testing.T) {
	paused := Timeline{StartedAt: ptr(at(0)), PausedAt: []time.Time{at(10 * time.Minute)}}
	now := at(time.Hour)

	assert.True(t, CanResume(paused, Unlimited(), now))
	assert.True(t, CanResume(paused, Limit(15*time.Minute), now))
	assert.False(t, CanResume(paused, Limit(10*time.Minute), now), "no time left")
	assert.False(t, CanResume(paused, Limit(5*time.Minute), now), "limit already exceeded")

	running := Timeline{StartedAt: ptr(at(0))}
	assert.False(t, CanResume(running, Unlimited(), now), "not paused")

	ended := paused
	ended.EndedAt = ptr(at(20 * time.Minute))
	assert.False(t, CanResume(ended, Unlimited(), now))

	assert.False(t, CanResume(Timeline{PausedAt: []time.Time{at(0)}}, Unlimited(), now), "not started")
}

func TestRemaining(t *testing.T) {
	tl := Timeline{StartedAt: ptr(at(0))}
	_, limited := Remaining(tl, Unlimited(), at(time.Minute))
	assert.False(t, limited)

	left, limited := Remaining(tl, Limit(5*time.Minute), at(time.Minute))
	require.True(t, limited)
	assert.Equal(t, 4*time.Minute, left)
}

func TestEndedAtTimestamp(t *testing.T) {
	tl := Timeline{StartedAt: ptr(at(0))}
	now := at(30 * time.Minute)

	assert.Equal(t, now, EndedAtTimestamp(tl, Unlimited(), now))
	assert.Equal(t, now, EndedAtTimestamp(tl, Limit(time.Hour), now))
	// 30 minutes used against a 20 minute limit: the limit was crossed 10 minutes ago.
	assert.Equal(t, at(20*time.Minute), EndedAtTimestamp(tl, Limit(20*time.Minute), now))
	// exactly at the limit
	assert.Equal(t, now, EndedAtTimestamp(tl, Limit(30*time.Minute), now))
}

func TestEndedAtTimestamp_ReturnsUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := at(time.Minute).In(loc)
	got := EndedAtTimestamp(Timeline{StartedAt: ptr(at(0))}, Unlimited(), now)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(now))
}
