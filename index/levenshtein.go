package index

// editDistance computes the Levenshtein distance between a and b with
// a single rolling row, so memory stays O(min(len(a), len(b))).
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	// Roll over the shorter string.
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		prevDiag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min(
				row[j]+1,      // deletion
				row[j-1]+1,    // insertion
				prevDiag+cost, // substitution
			)
			prevDiag = row[j]
			row[j] = next
		}
	}
	return row[len(b)]
}
