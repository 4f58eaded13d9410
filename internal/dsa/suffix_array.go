// Suffix array used by the edit engine to locate every occurrence of a
// search string in file content without rescanning per occurrence.
package dsa

import (
	"sort"
)

// SuffixArray supports O(m log n) substring search over a fixed text,
// where m is pattern length and n is text length.
type SuffixArray struct {
	Text string
	SA   []int // SA[i] = start position of the i-th smallest suffix
	Rank []int // inverse: Rank[i] = position of suffix i in SA
}

// BuildSuffixArray constructs a suffix array with prefix doubling.
// Time O(n log^2 n), space O(n).
func BuildSuffixArray(text string) *SuffixArray {
	n := len(text)
	if n == 0 {
		return &SuffixArray{Text: text, SA: []int{}, Rank: []int{}}
	}

	sa := &SuffixArray{
		Text: text,
		SA:   make([]int, n),
		Rank: make([]int, n),
	}

	for i := 0; i < n; i++ {
		sa.SA[i] = i
		sa.Rank[i] = int(text[i])
	}

	tmpRank := make([]int, n)
	for k := 1; k < n; k *= 2 {
		sort.Slice(sa.SA, func(i, j int) bool {
			if sa.Rank[sa.SA[i]] != sa.Rank[sa.SA[j]] {
				return sa.Rank[sa.SA[i]] < sa.Rank[sa.SA[j]]
			}
			ri := -1
			if sa.SA[i]+k < n {
				ri = sa.Rank[sa.SA[i]+k]
			}
			rj := -1
			if sa.SA[j]+k < n {
				rj = sa.Rank[sa.SA[j]+k]
			}
			return ri < rj
		})

		tmpRank[sa.SA[0]] = 0
		for i := 1; i < n; i++ {
			tmpRank[sa.SA[i]] = tmpRank[sa.SA[i-1]]

			prev, curr := sa.SA[i-1], sa.SA[i]
			if sa.Rank[prev] != sa.Rank[curr] {
				tmpRank[sa.SA[i]]++
			} else {
				rPrev := -1
				if prev+k < n {
					rPrev = sa.Rank[prev+k]
				}
				rCurr := -1
				if curr+k < n {
					rCurr = sa.Rank[curr+k]
				}
				if rPrev != rCurr {
					tmpRank[sa.SA[i]]++
				}
			}
		}

		copy(sa.Rank, tmpRank)

		// All ranks unique: fully sorted.
		if sa.Rank[sa.SA[n-1]] == n-1 {
			break
		}
	}

	return sa
}

// Search returns the start offsets of every occurrence of pattern, sorted
// ascending. Empty patterns match nothing.
func (sa *SuffixArray) Search(pattern string) []int {
	if len(pattern) == 0 || len(sa.SA) == 0 {
		return []int{}
	}

	n := len(sa.SA)
	m := len(pattern)

	left := sort.Search(n, func(i int) bool {
		suffix := sa.Text[sa.SA[i]:]
		if len(suffix) < m {
			return suffix >= pattern[:len(suffix)]
		}
		return suffix[:m] >= pattern
	})

	right := sort.Search(n, func(i int) bool {
		suffix := sa.Text[sa.SA[i]:]
		if len(suffix) < m {
			return suffix > pattern[:len(suffix)]
		}
		return suffix[:m] > pattern
	})

	var matches []int
	for i := left; i < right; i++ {
		pos := sa.SA[i]
		if pos+m <= len(sa.Text) && sa.Text[pos:pos+m] == pattern {
			matches = append(matches, pos)
		}
	}

	sort.Ints(matches)
	return matches
}

// SearchFirst returns the first occurrence of pattern, or -1.
func (sa *SuffixArray) SearchFirst(pattern string) int {
	matches := sa.Search(pattern)
	if len(matches) == 0 {
		return -1
	}
	return matches[0]
}

// Count returns the number of occurrences of pattern.
func (sa *SuffixArray) Count(pattern string) int {
	return len(sa.Search(pattern))
}
