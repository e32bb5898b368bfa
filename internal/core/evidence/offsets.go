package evidence

import (
	"unicode/utf8"

	"github.com/kirillkom/clinical-qa/internal/core/textutil"
)

// localScanWindow bounds how far around the proportional estimate the
// original text is searched for an exact normalized match.
const localScanWindow = 80

// mapToOriginal converts a span in normalized-text coordinates back to byte
// offsets in the original text. It first re-scans the original locally
// around the proportionally estimated position looking for a substring whose
// own normalization equals the target; when that fails it falls back to pure
// proportional scaling.
func mapToOriginal(original, normalized string, normStart, normEnd int) (int, int) {
	if len(normalized) == 0 || normEnd <= normStart {
		return -1, -1
	}
	target := normalized[normStart:normEnd]
	estimate := normStart * len(original) / len(normalized)

	if start, end, ok := scanLocal(original, target, estimate); ok {
		return start, end
	}

	// Proportional fallback. The offsets stay inside the original's bounds
	// but may be a few characters off; merged spans absorb the drift.
	start := clampOffset(estimate, len(original))
	end := clampOffset(normEnd*len(original)/len(normalized), len(original))
	if end <= start {
		end = clampOffset(start+len(target), len(original))
	}
	if end <= start {
		return -1, -1
	}
	return start, end
}

// scanLocal tries candidate start positions within the scan window and grows
// each candidate until its normalization matches the target.
func scanLocal(original, target string, estimate int) (int, int, bool) {
	lo := estimate - localScanWindow
	if lo < 0 {
		lo = 0
	}
	hi := estimate + localScanWindow
	if hi > len(original) {
		hi = len(original)
	}

	for start := lo; start < hi; start++ {
		if !utf8.RuneStart(original[start]) || original[start] == ' ' || original[start] == '\n' || original[start] == '\t' {
			continue
		}
		if end, ok := growMatch(original, target, start); ok {
			return start, end, true
		}
	}
	return 0, 0, false
}

// growMatch extends the candidate substring from start until its normalized
// form equals the target, gives up once the normalization overshoots.
func growMatch(original, target string, start int) (int, bool) {
	// Normalization never lengthens text, so the candidate needs at least
	// len(target) bytes; allow slack for collapsed whitespace/punctuation.
	maxEnd := start + len(target)*2 + 8
	if maxEnd > len(original) {
		maxEnd = len(original)
	}

	for end := start + 1; end <= maxEnd; end++ {
		if end < len(original) && !utf8.RuneStart(original[end]) {
			continue
		}
		norm := textutil.Normalize(original[start:end])
		if norm == target {
			return end, true
		}
		if len(norm) > len(target) {
			return 0, false
		}
	}
	return 0, false
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
