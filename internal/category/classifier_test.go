package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
)

var testRules = []corpus.CategoryRule{
	{Name: "Meals", Keywords: []string{"Starbucks", "Jollibee"}},
	{Name: "Medicine", Keywords: []string{"WATSONS", "paracetamol"}},
	{Name: "Grocery", Keywords: []string{"SM SUPERMARKET"}},
}

var testSamples = []corpus.TrainingSample{
	{Text: "unleaded diesel liters pump fuel", Category: "Transportation"},
	{Text: "bread eggs rice kilo cooking oil", Category: "Grocery"},
	{Text: "", Category: "Ignored"},
	{Text: "no label here", Category: " "},
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		text       string
		vendor     string
		want       string
		wantSource Source
	}{
		{name: "mixed case keyword matches", text: "JOLLIBEE\nCHICKENJOY 99.00", want: "Meals", wantSource: SourceKeyword},
		{name: "multi word keyword", text: "sm supermarket bacoor", want: "Grocery", wantSource: SourceKeyword},
		{name: "vendor counts as text", text: "ORDER 55", vendor: "Starbucks", want: "Meals", wantSource: SourceKeyword},
		{name: "first rule in order wins", text: "WATSONS\nSTARBUCKS", want: "Meals", wantSource: SourceKeyword},
		{name: "similarity fallback", text: "UNLEADED 20.5 LITERS\nPUMP 3", want: "Transportation", wantSource: SourceSimilarity},
		{name: "similarity below threshold", opts: []Option{WithMinSimilarity(0.9)}, text: "UNLEADED 20.5 LITERS\nPUMP 3", want: "Expense", wantSource: SourceDefault},
		{name: "training disabled", opts: []Option{WithoutTraining()}, text: "UNLEADED 20.5 LITERS\nPUMP 3", want: "Expense", wantSource: SourceDefault},
		{name: "no overlap", text: "QWERTY 12", want: "Expense", wantSource: SourceDefault},
		{name: "empty text", text: "", want: "Expense", wantSource: SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(testRules, testSamples, tt.opts...)
			got := c.Classify(tt.text, tt.vendor)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestClassify_SimilarityScore(t *testing.T) {
	c := NewClassifier(nil, testSamples)
	got := c.Classify("unleaded diesel liters pump fuel", "")
	require.Equal(t, SourceSimilarity, got.Source)
	assert.InDelta(t, 1.0, got.Similarity, 1e-9)
}

func TestClassify_NeverEmpty(t *testing.T) {
	c := NewClassifier(nil, nil)
	for _, text := range []string{"", "   ", "\n\n", "#@!", "TOTAL 12.00"} {
		assert.NotEmpty(t, c.Classify(text, "").Category, "text %q", text)
	}
}

func TestDefaultCorpus(t *testing.T) {
	reg, err := corpus.Default()
	require.NoError(t, err)
	c := NewClassifier(reg.Categories(), reg.Training())

	assert.Equal(t, "Medicine", c.Classify("MERCURY DRUGS\nBIOGESIC", "").Category)
	assert.Equal(t, "Meals", c.Classify("CAFFE LATTE GRANDE", "").Category)
}

func TestCosine(t *testing.T) {
	a := vectorize("coffee latte")
	b := vectorize("COFFEE, latte!")
	assert.InDelta(t, 1.0, cosine(a, b), 1e-9)
	assert.Zero(t, cosine(a, vectorize("diesel")))
	assert.InDelta(t, 0.5, cosine(vectorize("a b"), vectorize("a c")), 1e-9)
}
