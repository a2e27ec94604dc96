package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/receipt-extractor/constants"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want float64
	}{
		{name: "all zero", in: []int{0, 0, 0}, want: 0},
		{name: "no input", in: nil, want: 0},
		{name: "all set", in: []int{100, 90, 100}, want: 96.67},
		{name: "zeros skipped", in: []int{0, 90, 85}, want: 87.5},
		{name: "single field", in: []int{0, 0, 50}, want: 50},
		{name: "clamped high", in: []int{150, 100, 0}, want: 100},
		{name: "negative treated as unset", in: []int{-20, 60, 0}, want: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.in...)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		score float64
		want  constants.Quality
	}{
		{0, constants.QualityLow},
		{49.99, constants.QualityLow},
		{50.0, constants.QualityGood},
		{79.99, constants.QualityGood},
		{80.0, constants.QualityVeryGood},
		{89.99, constants.QualityVeryGood},
		{90.0, constants.QualityExcellent},
		{100, constants.QualityExcellent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Flag(tt.score), "score %v", tt.score)
	}
}

func TestTokenMean(t *testing.T) {
	assert.Nil(t, TokenMean(nil))
	assert.Nil(t, TokenMean([]int{-1, -1, 101}))

	got := TokenMean([]int{90, -1, 80, 95})
	if assert.NotNil(t, got) {
		assert.InDelta(t, 88.33, *got, 1e-9)
	}
}
