package engine

// DefaultMistakeThreshold is the number of wrong answers a competent attempt may contain.
const DefaultMistakeThreshold = 4

// IsCompetent reports whether an attempt is within the mistake threshold.
// A zero score is never competent, even against a zero total.
func IsCompetent(score, total, threshold int) bool {
	if score == 0 {
		return false
	}
	return total-score <= threshold
}
