package scorer

import "math"

// Confidence returns round(matched/total*100) clamped to [0,100].
// A pattern without signals has zero confidence.
func Confidence(matched, total int) int {
	if total <= 0 || matched <= 0 {
		return 0
	}
	return Clamp(int(math.Round(float64(matched) / float64(total) * 100)))
}

// ImpactScore returns the weighted impact contribution of a match.
func ImpactScore(weight float64, confidence int) int {
	if weight <= 0 || confidence <= 0 {
		return 0
	}
	return int(math.Round(weight * float64(confidence) / 100))
}

// Clamp bounds a percentage to [0,100].
func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
