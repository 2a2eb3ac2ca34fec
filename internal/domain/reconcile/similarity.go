package reconcile

// similarText counts the characters two strings share, recursing on
// the longest common substring and the fragments on either side of it.
// It deliberately mirrors how merchant names were fuzzy-compared
// historically, so the 0.6 ratio gate keeps its meaning.
func similarText(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	posA, posB, maxLen := 0, 0, 0
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > maxLen {
				posA, posB, maxLen = i, j, k
			}
		}
	}
	if maxLen == 0 {
		return 0
	}

	return maxLen +
		similarText(a[:posA], b[:posB]) +
		similarText(a[posA+maxLen:], b[posB+maxLen:])
}

// similarityRatio is the shared-character count relative to the longer
// string, in [0,1].
func similarityRatio(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return float64(similarText(a, b)) / float64(longest)
}
