package complexity

import (
	"math"
	"strings"
)

// MaintainabilityIndex combines Halstead volume, total cyclomatic
// complexity, source lines and comment percentage into a 0-100 score.
// Empty inputs score 100.
func MaintainabilityIndex(volume float64, cyclomatic, sourceLines int, commentPercent float64) float64 {
	if volume <= 0 || sourceLines <= 0 {
		return 100
	}
	commentScale := math.Sqrt(2.46 * commentPercent * math.Pi / 180)
	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(sourceLines)) + 50*math.Sin(commentScale)
	return math.Min(math.Max(0, mi*100/171), 100)
}

// volume is N * log2(n) over total and distinct token counts.
func (h Halstead) volume() float64 {
	n := h.DistinctOperators + h.DistinctOperands
	if n == 0 {
		return 0
	}
	return float64(h.TotalOperators+h.TotalOperands) * math.Log2(float64(n))
}

// countLines returns source and comment-only line counts.
func countLines(source []byte) (sourceLines, commentLines int) {
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "#"):
			commentLines++
		default:
			sourceLines++
		}
	}
	return sourceLines, commentLines
}

func commentPercent(sourceLines, commentLines int) float64 {
	total := sourceLines + commentLines
	if total == 0 {
		return 0
	}
	return float64(commentLines) / float64(total) * 100
}
