package spell

// Levenshtein returns the minimum number of single-rune insertions, deletions
// and substitutions that turn a into b.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	n, m := len(ra), len(rb)

	// (n+1) x (m+1) table; row 0 and column 0 are the distances from the empty prefix.
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		dp[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ra[i-1] == rb[j-1] {
				dp[i][j] = dp[i-1][j-1]
				continue
			}
			dp[i][j] = 1 + min(
				dp[i-1][j-1], // substitution
				dp[i][j-1],   // insertion
				dp[i-1][j],   // deletion
			)
		}
	}

	return dp[n][m]
}

// Threshold returns the largest edit distance accepted for a word of n letters.
// Short words tolerate fewer edits than long ones.
func Threshold(n int) int {
	switch {
	case n < 3:
		return 1
	case n > 5:
		return 3
	default:
		return 2
	}
}
