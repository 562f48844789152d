package engine

import "time"

// Timeline is the lifecycle slice of a simulation the timing rules need.
type Timeline struct {
	StartedAt   *time.Time
	PausedAt    []time.Time
	ResumedAt   []time.Time
	EndedAt     *time.Time
	CancelledAt *time.Time
}

// Finished reports whether the attempt was ended or cancelled.
func (t Timeline) Finished() bool {
	return t.EndedAt != nil || t.CancelledAt != nil
}

// Paused reports whether the attempt is currently sitting in a pause.
func (t Timeline) Paused() bool {
	return len(t.PausedAt) > len(t.ResumedAt)
}

// finishedAt returns ended_at, falling back to cancelled_at.
func (t Timeline) finishedAt() *time.Time {
	if t.EndedAt != nil {
		return t.EndedAt
	}
	return t.CancelledAt
}

// TimeLimit is either unlimited or a finite duration.
type TimeLimit struct {
	d       time.Duration
	limited bool
}

// Unlimited returns a limit that never runs out.
func Unlimited() TimeLimit { return TimeLimit{} }

// Limit returns a finite limit of d.
func Limit(d time.Duration) TimeLimit { return TimeLimit{d: d, limited: true} }

// LimitFromMillis translates the stored representation: nil or any negative
// value (the stored sentinel is -1) means unlimited.
func LimitFromMillis(ms *int64) TimeLimit {
	if ms == nil || *ms < 0 {
		return Unlimited()
	}
	return Limit(time.Duration(*ms) * time.Millisecond)
}

// Duration returns the finite limit and whether there is one.
func (l TimeLimit) Duration() (time.Duration, bool) { return l.d, l.limited }

// IsUnlimited reports whether the limit never runs out.
func (l TimeLimit) IsUnlimited() bool { return !l.limited }

// UsedTime returns how long the attempt has been active, excluding time spent paused.
// The first matching rule wins:
//  1. resumed at least once: start..first pause, then each resume..next pause (or now / end)
//  2. paused but never resumed: start..first pause
//  3. ended or cancelled: start..end
//  4. started: start..now
//  5. otherwise zero
func UsedTime(t Timeline, now time.Time) time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	start := *t.StartedAt
	var used time.Duration

	switch {
	case len(t.ResumedAt) > 0:
		if len(t.PausedAt) > 0 {
			used += diff(start, t.PausedAt[0])
		}
		for i, resumed := range t.ResumedAt {
			switch {
			case i+1 < len(t.PausedAt):
				used += diff(resumed, t.PausedAt[i+1])
			case !t.Finished():
				used += diff(resumed, now)
			default:
				used += diff(resumed, *t.finishedAt())
			}
		}
	case len(t.PausedAt) > 0:
		used = diff(start, t.PausedAt[0])
	case t.Finished():
		used = diff(start, *t.finishedAt())
	default:
		used = diff(start, now)
	}

	if used < 0 {
		return 0
	}
	return used
}

// UsedTimeMillis is UsedTime in whole milliseconds.
func UsedTimeMillis(t Timeline, now time.Time) int64 {
	return UsedTime(t, now).Milliseconds()
}

func diff(from, to time.Time) time.Duration {
	return to.UTC().Sub(from.UTC())
}

// CanPause reports whether a pause may be recorded now: the attempt is running
// and not already paused.
func CanPause(t Timeline) bool {
	if t.StartedAt == nil || t.Finished() {
		return false
	}
	return len(t.ResumedAt) >= len(t.PausedAt)
}

// CanResume reports whether a paused attempt may continue. A finite limit must
// still have time left.
func CanResume(t Timeline, limit TimeLimit, now time.Time) bool {
	if t.StartedAt == nil || t.Finished() || !t.Paused() {
		return false
	}
	remaining, limited := Remaining(t, limit, now)
	return !limited || remaining > 0
}

// Remaining returns limit minus used time. The bool is false for unlimited attempts.
func Remaining(t Timeline, limit TimeLimit, now time.Time) (time.Duration, bool) {
	d, limited := limit.Duration()
	if !limited {
		return 0, false
	}
	return d - UsedTime(t, now), true
}

// EndedAtTimestamp returns the instant to record as ended_at. When the limit has
// already been exceeded the timestamp is moved back by the overrun, so a late
// stop request does not earn the learner extra time.
func EndedAtTimestamp(t Timeline, limit TimeLimit, now time.Time) time.Time {
	now = now.UTC()
	remaining, limited := Remaining(t, limit, now)
	if !limited || remaining > 0 {
		return now
	}
	// remaining <= 0, so adding it subtracts the overrun.
	return now.Add(remaining)
}
