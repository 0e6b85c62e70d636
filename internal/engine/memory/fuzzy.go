package memory

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenize lowercases text and splits it on anything that is not a letter
// or digit, approximating the standard analyzer.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// autoEdits is the edit budget AUTO fuzziness grants a term of this length.
func autoEdits(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// fuzzyMatch reports whether a and b are within maxEdits of each other,
// counting an adjacent transposition as one edit.
func fuzzyMatch(a, b string, maxEdits int) bool {
	if maxEdits == 0 {
		return a == b
	}
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > maxEdits {
		return false
	}
	return editDistance(ra, rb) <= maxEdits
}

// editDistance is the optimal string alignment distance between a and b.
func editDistance(a, b []rune) int {
	m, n := len(a), len(b)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			dp[i][j] = min(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				dp[i][j] = min(dp[i][j], dp[i-2][j-2]+1)
			}
		}
	}
	return dp[m][n]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
