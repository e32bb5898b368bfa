package evidence

import "sort"

// span is an internal character range in original-text coordinates. matches
// counts how many independent n-gram hits the span absorbed.
type span struct {
	start   int
	end     int
	matches int
}

// mergeSpans coalesces overlapping spans and spans separated by at most
// gapTolerance characters into a minimal ordered set. The result is sorted
// and guaranteed non-overlapping.
func mergeSpans(spans []span, gapTolerance int) []span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end < sorted[j].end
	})

	out := make([]span, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.start <= current.end+gapTolerance {
			if next.end > current.end {
				current.end = next.end
			}
			current.matches += next.matches
			continue
		}
		out = append(out, current)
		current = next
	}
	out = append(out, current)
	return out
}
