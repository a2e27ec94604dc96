// Package category assigns a spending category to a receipt.
//
// Keyword rules are tried first, in corpus order. When none match and a training corpus
// is available, the receipt is compared against the labelled samples and the nearest one
// above the minimum similarity supplies the category. Otherwise the default applies.
package category

import (
	"math"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
)

// Source says which rule produced a category.
type Source string

const (
	SourceKeyword    Source = "keyword"
	SourceSimilarity Source = "similarity"
	SourceDefault    Source = "default"
)

type Result struct {
	Category   string
	Source     Source
	Keyword    string
	Similarity float64
}

type rule struct {
	name     string
	keywords []string
}

type sample struct {
	category string
	vec      termVector
}

type Classifier struct {
	rules         []rule
	samples       []sample
	minSimilarity float64
	fallback      string
}

type Option func(*Classifier)

// WithMinSimilarity sets the lowest cosine similarity a training sample needs to be used.
func WithMinSimilarity(v float64) Option {
	return func(c *Classifier) { c.minSimilarity = v }
}

// WithoutTraining disables the similarity fallback even if samples were supplied.
func WithoutTraining() Option {
	return func(c *Classifier) { c.samples = nil }
}

// NewClassifier precomputes lowercase keywords and sample vectors.
// Samples with an empty text or label are ignored.
func NewClassifier(rules []corpus.CategoryRule, samples []corpus.TrainingSample, opts ...Option) *Classifier {
	c := &Classifier{
		rules:         make([]rule, 0, len(rules)),
		minSimilarity: 0.2,
		fallback:      string(constants.DefaultCategory),
	}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		c.rules = append(c.rules, rule{name: r.Name, keywords: kws})
	}
	for _, s := range samples {
		v := vectorize(s.Text)
		if len(v) == 0 || strings.TrimSpace(s.Category) == "" {
			continue
		}
		c.samples = append(c.samples, sample{category: s.Category, vec: v})
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify never returns an empty category.
func (c *Classifier) Classify(text, vendor string) Result {
	haystack := strings.ToLower(text)
	if vendor != "" {
		haystack += "\n" + strings.ToLower(vendor)
	}

	for _, r := range c.rules {
		for _, k := range r.keywords {
			if strings.Contains(haystack, k) {
				return Result{Category: r.name, Source: SourceKeyword, Keyword: k}
			}
		}
	}

	if len(c.samples) > 0 {
		if res, ok := c.nearest(haystack); ok {
			return res
		}
	}
	return Result{Category: c.fallback, Source: SourceDefault}
}

func (c *Classifier) nearest(text string) (Result, bool) {
	q := vectorize(text)
	if len(q) == 0 {
		return Result{}, false
	}
	best := Result{}
	for _, s := range c.samples {
		sim := cosine(q, s.vec)
		if sim > best.Similarity {
			best = Result{Category: s.category, Source: SourceSimilarity, Similarity: sim}
		}
	}
	if best.Similarity == 0 || best.Similarity < c.minSimilarity {
		return Result{}, false
	}
	return best, true
}

// termVector maps a lowercase alphanumeric term to its frequency.
type termVector map[string]float64

func vectorize(s string) termVector {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	v := make(termVector, len(words))
	for _, w := range words {
		v[w]++
	}
	return v
}

func cosine(a, b termVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, x := range a {
		dot += x * b[term]
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(v termVector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
