// Package processor holds the pure functions over candle sequences that
// the store and the two collection strategies share: sanitize, merge, and
// the equidistant-gap check that backs "ready". None of these functions
// touch I/O or hold locks; the store wraps Merge with its own concurrency
// discipline.
package processor

import (
	"sort"

	"github.com/sawpanic/candlefeed/internal/candle"
)

// Sanitize sorts seq by OpenTime ascending, drops duplicate timestamps
// (keeping the later occurrence in input order), then returns the longest
// maximal run of candles whose consecutive OpenTime differences equal
// intervalSecs. Ties among equal-length runs prefer the most recent
// (highest OpenTime). A single-candle input is returned as-is; an empty
// input returns empty.
func Sanitize(seq []candle.Candle, intervalSecs int64) []candle.Candle {
	if len(seq) == 0 {
		return nil
	}
	if len(seq) == 1 {
		return []candle.Candle{seq[0]}
	}

	deduped := dedupeKeepLast(seq)
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].OpenTime < deduped[j].OpenTime })

	if len(deduped) == 1 {
		return deduped
	}

	bestStart, bestEnd := 0, 1 // [start, end) of the best run found so far
	curStart := 0
	for i := 0; i < len(deduped)-1; i++ {
		if deduped[i+1].OpenTime-deduped[i].OpenTime == intervalSecs {
			continue
		}
		// run [curStart, i] broken; i+1 starts a new run
		candidateLen := i - curStart + 1
		bestLen := bestEnd - bestStart
		if candidateLen >= bestLen {
			bestStart, bestEnd = curStart, i+1
		}
		curStart = i + 1
	}
	// Close out the trailing run.
	candidateLen := len(deduped) - curStart
	bestLen := bestEnd - bestStart
	if candidateLen >= bestLen {
		bestStart, bestEnd = curStart, len(deduped)
	}

	out := make([]candle.Candle, bestEnd-bestStart)
	copy(out, deduped[bestStart:bestEnd])
	return out
}

// dedupeKeepLast removes candles sharing an OpenTime, keeping whichever
// occurrence appeared later in the original (pre-sort) input order.
func dedupeKeepLast(seq []candle.Candle) []candle.Candle {
	latest := make(map[int64]candle.Candle, len(seq))
	order := make([]int64, 0, len(seq))
	for _, c := range seq {
		if _, seen := latest[c.OpenTime]; !seen {
			order = append(order, c.OpenTime)
		}
		latest[c.OpenTime] = c
	}
	out := make([]candle.Candle, len(order))
	for i, ot := range order {
		out[i] = latest[ot]
	}
	return out
}

// IsSortedEquidistant reports whether seq is strictly ordered by OpenTime
// with every consecutive gap equal to intervalSecs. An empty or
// single-element sequence is trivially true.
func IsSortedEquidistant(seq []candle.Candle, intervalSecs int64) bool {
	for i := 0; i < len(seq)-1; i++ {
		if seq[i+1].OpenTime-seq[i].OpenTime != intervalSecs {
			return false
		}
	}
	return true
}

// ApplyMerge returns the result of merging c into existing, a bounded
// ordered-by-OpenTime sequence with the given capacity:
//
//   - OpenTime matches an existing record: overwrite it in place (this is
//     how an in-progress candle evolves).
//   - OpenTime is newer than the newest record: append, evicting the
//     oldest if at capacity.
//   - OpenTime is older than the oldest record: prepend; at capacity the
//     incoming older candle is dropped instead, since the store holds the
//     most-recent N candles by definition.
//   - Otherwise (in-range, no match): insert at the position that keeps
//     OpenTime order.
func ApplyMerge(existing []candle.Candle, capacity int, c candle.Candle) []candle.Candle {
	if len(existing) == 0 {
		return []candle.Candle{c}
	}

	if idx, ok := indexOf(existing, c.OpenTime); ok {
		out := make([]candle.Candle, len(existing))
		copy(out, existing)
		out[idx] = c
		return out
	}

	if c.OpenTime > existing[len(existing)-1].OpenTime {
		out := append(append([]candle.Candle{}, existing...), c)
		if len(out) > capacity {
			out = out[len(out)-capacity:]
		}
		return out
	}

	if c.OpenTime < existing[0].OpenTime {
		if len(existing) >= capacity {
			// Store is full of more-recent candles; the incoming older
			// candle is dropped rather than evicting the newest.
			return existing
		}
		out := make([]candle.Candle, 0, len(existing)+1)
		out = append(out, c)
		out = append(out, existing...)
		return out
	}

	// In-range, no exact match: insert keeping ascending order.
	pos := sort.Search(len(existing), func(i int) bool { return existing[i].OpenTime > c.OpenTime })
	out := make([]candle.Candle, 0, len(existing)+1)
	out = append(out, existing[:pos]...)
	out = append(out, c)
	out = append(out, existing[pos:]...)
	if len(out) > capacity {
		// Keep the most-recent N, consistent with the append-path eviction
		// policy: the store holds the most recent candles by definition.
		out = out[len(out)-capacity:]
	}
	return out
}

func indexOf(seq []candle.Candle, openTime int64) (int, bool) {
	// existing is always kept sorted, so binary search suffices.
	i := sort.Search(len(seq), func(i int) bool { return seq[i].OpenTime >= openTime })
	if i < len(seq) && seq[i].OpenTime == openTime {
		return i, true
	}
	return 0, false
}
