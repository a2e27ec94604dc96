// Package fields pulls the transaction date and total amount out of normalized receipt text.
package fields

import "errors"

// Extractor holds the compiled date layouts and total patterns. It is safe for
// concurrent use once built.
type Extractor struct {
	dateLayouts []string
	patterns    []compiledPattern
	selector    TotalSelector
}

type extractorOptions struct {
	order    DateOrder
	patterns []TotalPattern
	selector TotalSelector
}

type Option func(*extractorOptions)

// WithDateOrder sets how ambiguous numeric dates are read.
func WithDateOrder(o DateOrder) Option {
	return func(opts *extractorOptions) {
		if o != "" {
			opts.order = o
		}
	}
}

// WithTotalPatterns replaces the labelled-amount table.
func WithTotalPatterns(ps []TotalPattern) Option {
	return func(opts *extractorOptions) {
		opts.patterns = append([]TotalPattern(nil), ps...)
	}
}

func WithTotalSelector(s TotalSelector) Option {
	return func(opts *extractorOptions) {
		if s != nil {
			opts.selector = s
		}
	}
}

// NewExtractor builds an Extractor. Defaults are day-first dates, DefaultTotalPatterns
// and the LargestAmount selector.
func NewExtractor(opts ...Option) (*Extractor, error) {
	o := extractorOptions{
		order:    DayFirst,
		patterns: DefaultTotalPatterns(),
		selector: LargestAmount{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.patterns) == 0 {
		return nil, errors.New("at least one total pattern is required")
	}

	compiled, err := compilePatterns(o.patterns)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		dateLayouts: o.order.Layouts(),
		patterns:    compiled,
		selector:    o.selector,
	}, nil
}
