// Package confidence combines per-field confidences into an overall score and quality tier.
package confidence

import (
	"math"

	"github.com/joseph-ayodele/receipt-extractor/constants"
)

// Quality tier lower bounds.
const (
	GoodThreshold      = 50.0
	VeryGoodThreshold  = 80.0
	ExcellentThreshold = 90.0
)

// Aggregate is the mean of the non-zero field confidences, rounded to two decimals.
// Inputs are clamped to 0..100; all zero yields 0.
func Aggregate(confidences ...int) float64 {
	var sum, n int
	for _, c := range confidences {
		c = clamp(c)
		if c == 0 {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*100) / 100
}

// Flag maps a score to its tier. Bounds are inclusive on the lower side.
func Flag(score float64) constants.Quality {
	switch {
	case score < GoodThreshold:
		return constants.QualityLow
	case score < VeryGoodThreshold:
		return constants.QualityGood
	case score < ExcellentThreshold:
		return constants.QualityVeryGood
	default:
		return constants.QualityExcellent
	}
}

func clamp(c int) int {
	return max(0, min(c, 100))
}

// TokenMean averages OCR token confidences, skipping placeholders outside 0..100
// (tesseract reports -1 for non-word boxes). It returns nil when nothing is left.
func TokenMean(tokens []int) *float64 {
	var sum, n int
	for _, c := range tokens {
		if c < 0 || c > 100 {
			continue
		}
		sum += c
		n++
	}
	if n == 0 {
		return nil
	}
	mean := math.Round(float64(sum)/float64(n)*100) / 100
	return &mean
}
