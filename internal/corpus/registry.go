// Package corpus holds the static reference data the extraction pipeline runs against:
// OCR correction rules, known vendor names, category keyword sets and an optional
// training corpus for similarity-based categorisation.
//
// A Registry is built once at startup and never mutated; every accessor returns a copy,
// so a single Registry can be shared by any number of goroutines.
package corpus

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
)

// CorrectionRule rewrites a misrecognised token to its canonical form.
type CorrectionRule struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CategoryRule maps a category label to the keywords that select it.
type CategoryRule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// TrainingSample is a labelled text snippet for the nearest-neighbour fallback.
type TrainingSample struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Data is the serialised form of a corpus file.
type Data struct {
	Corrections []CorrectionRule `json:"corrections"`
	Vendors     []string         `json:"vendors"`
	Categories  []CategoryRule   `json:"categories"`
	Training    []TrainingSample `json:"training,omitempty"`
}

type Registry struct {
	corrections []CorrectionRule
	vendors     []string
	categories  []CategoryRule
	training    []TrainingSample
}

// NewRegistry validates d and freezes it into a Registry.
// Vendors are de-duplicated case-insensitively, keeping the first spelling.
func NewRegistry(d Data) (*Registry, error) {
	v := common.NewValidator()
	for i, c := range d.Corrections {
		v.Field(fmt.Sprintf("corrections[%d].from", i), c.From, common.Required)
	}
	for i, c := range d.Categories {
		v.Field(fmt.Sprintf("categories[%d].name", i), c.Name, common.Required)
	}
	for i, s := range d.Training {
		v.Field(fmt.Sprintf("training[%d].category", i), s.Category, common.Required)
	}
	if v.HasErrors() {
		return nil, common.NewAppError(common.CodeCorpusInvalid, v.ErrorMessage(), common.ErrCorpusInvalid)
	}

	r := &Registry{
		corrections: append([]CorrectionRule(nil), d.Corrections...),
		training:    append([]TrainingSample(nil), d.Training...),
	}

	seen := make(map[string]struct{}, len(d.Vendors))
	for _, name := range d.Vendors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToUpper(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.vendors = append(r.vendors, name)
	}

	// Labels that differ only in case share one rule, at the position of the first.
	index := make(map[string]int, len(d.Categories))
	for _, c := range d.Categories {
		name := categoryLabel(c.Name)
		var kws []string
		for _, kw := range c.Keywords {
			if strings.TrimSpace(kw) != "" {
				kws = append(kws, kw)
			}
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			r.categories[i].Keywords = append(r.categories[i].Keywords, kws...)
			continue
		}
		index[key] = len(r.categories)
		r.categories = append(r.categories, CategoryRule{Name: name, Keywords: kws})
	}
	for i := range r.training {
		r.training[i].Category = categoryLabel(r.training[i].Category)
	}
	return r, nil
}

// categoryLabel spells builtin categories the way constants does; custom labels are only trimmed.
func categoryLabel(s string) string {
	c, _ := constants.Canonicalize(s)
	return string(c)
}

// Corrections returns the correction rules in application order.
func (r *Registry) Corrections() []CorrectionRule {
	return append([]CorrectionRule(nil), r.corrections...)
}

// Vendors returns the canonical vendor names in registry order.
func (r *Registry) Vendors() []string {
	return append([]string(nil), r.vendors...)
}

// Categories returns the keyword rules in priority order.
func (r *Registry) Categories() []CategoryRule {
	out := make([]CategoryRule, len(r.categories))
	for i, c := range r.categories {
		out[i] = CategoryRule{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}

func (r *Registry) Training() []TrainingSample {
	return append([]TrainingSample(nil), r.training...)
}
