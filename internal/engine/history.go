package engine

// Neighbors locates the attempt matching match in a most-recent-first list and
// returns the older (previous) and newer (next) attempts around it. Either is
// nil at the ends of the history or when nothing matches.
func Neighbors[T any](attempts []T, match func(T) bool) (previous, next *T) {
	for i := range attempts {
		if !match(attempts[i]) {
			continue
		}
		if i+1 < len(attempts) {
			previous = &attempts[i+1]
		}
		if i > 0 {
			next = &attempts[i-1]
		}
		return previous, next
	}
	return nil, nil
}
