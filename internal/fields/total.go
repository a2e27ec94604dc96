package fields

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountExpr is a money amount with one or two fraction digits, either grouped
// (1,234.50) or plain with a dot or comma decimal separator (1234.50, 12,50).
// It must not run into a further digit; letters may follow, as in "250.00PHP".
const amountExpr = `(\d{1,3}(?:,\d{3})+\.\d{1,2}|\d{1,6}[.,]\d{1,2})(?:[^\d]|$)`

// labelGap is the bounded non-digit run allowed between a label and its amount. It also
// absorbs separators and currency prefixes such as ": PHP".
const labelGap = `[^\d]{0,20}`

// Fallback tokens are whole digit runs, so currency markers glued on either side
// ("P45.00", "45.00PHP") do not hide an amount and a date like 12.11.2023 is not one.
var (
	reNumberRun  = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	reBareAmount = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+\.\d{2}|\d{1,6}[.,]\d{2})$`)
)

// TotalPattern is one labelled-amount rule. Label is a regular expression for the
// keyword; Weight becomes the total confidence when this pattern supplies the winner.
type TotalPattern struct {
	Name   string
	Label  string
	Weight int
}

// DefaultTotalPatterns is the reference label table, most specific first.
func DefaultTotalPatterns() []TotalPattern {
	return []TotalPattern{
		{Name: "grand_total", Label: `\bGRAND\s+TOTAL\b`, Weight: 100},
		{Name: "net_total", Label: `\bNET\s+TOTAL\b`, Weight: 95},
		{Name: "total_due", Label: `\bTOTAL\s+DUE\b`, Weight: 90},
		{Name: "amount_due", Label: `\bAMOUNT\s+DUE\b`, Weight: 90},
		{Name: "dine_in_total", Label: `\bDINE[- ]?IN\s+TOTAL\b`, Weight: 90},
		{Name: "total_amount", Label: `\bTOTAL\s+AMOUNT\b`, Weight: 90},
		{Name: "approved_amount", Label: `\bAPP(?:ROVED)?\s+AMOUNT\b`, Weight: 90},
		{Name: "total", Label: `\bTOTAL\b`, Weight: 85},
		{Name: "cash_tendered", Label: `\bCASH\s+TENDERED\b`, Weight: 70},
		{Name: "subtotal", Label: `\bSUB[- ]?TOTAL\b`, Weight: 60},
	}
}

// Fallback ladder confidences.
const (
	FallbackSingleConfidence = 85
	FallbackOver500          = 80
	FallbackOver100          = 70
	FallbackDefault          = 50
)

// FieldMatch is one candidate amount found by a labelled pattern.
type FieldMatch struct {
	Pattern string
	Amount  decimal.Decimal
	Weight  int
	Offset  int
}

// TotalSelector picks the reported total among labelled candidates.
type TotalSelector interface {
	Select(candidates []FieldMatch) (FieldMatch, bool)
}

// LargestAmount keeps the candidate with the largest amount; the first one collected wins ties.
type LargestAmount struct{}

func (LargestAmount) Select(cs []FieldMatch) (FieldMatch, bool) {
	if len(cs) == 0 {
		return FieldMatch{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Amount.GreaterThan(best.Amount) {
			best = c
		}
	}
	return best, true
}

// HighestWeight trusts the most reliable label and uses the amount only to break ties.
// It avoids a Cash Tendered line outranking the real total.
type HighestWeight struct{}

func (HighestWeight) Select(cs []FieldMatch) (FieldMatch, bool) {
	if len(cs) == 0 {
		return FieldMatch{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Weight > best.Weight || (c.Weight == best.Weight && c.Amount.GreaterThan(best.Amount)) {
			best = c
		}
	}
	return best, true
}

// ParseTotalSelector resolves "largest_amount" (default) or "highest_weight".
func ParseTotalSelector(name string) (TotalSelector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "largest_amount":
		return LargestAmount{}, nil
	case "highest_weight":
		return HighestWeight{}, nil
	default:
		return nil, fmt.Errorf("unknown total strategy %q", name)
	}
}

// TotalSource says how a total was found.
type TotalSource string

const (
	TotalSourceNone     TotalSource = ""
	TotalSourceLabelled TotalSource = "labelled"
	TotalSourceFallback TotalSource = "fallback"
)

type TotalField struct {
	Value      *decimal.Decimal
	Confidence int
	Source     TotalSource
	Pattern    string
	Candidates []FieldMatch
}

type compiledPattern struct {
	TotalPattern
	re *regexp.Regexp
}

func compilePatterns(ps []TotalPattern) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(ps))
	for _, p := range ps {
		re, err := regexp.Compile(`(?i)` + p.Label + labelGap + amountExpr)
		if err != nil {
			return nil, fmt.Errorf("compile total pattern %q: %w", p.Name, err)
		}
		out = append(out, compiledPattern{TotalPattern: p, re: re})
	}
	return out, nil
}

// ExtractTotal collects every labelled amount from every pattern, then lets the selector
// choose. Without any labelled hit it falls back to the largest bare amount.
func (e *Extractor) ExtractTotal(text string) TotalField {
	var candidates []FieldMatch
	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			amt, err := ParseAmount(text[loc[2]:loc[3]])
			if err != nil {
				continue
			}
			candidates = append(candidates, FieldMatch{
				Pattern: p.Name,
				Amount:  amt,
				Weight:  p.Weight,
				Offset:  loc[0],
			})
		}
	}

	if best, ok := e.selector.Select(candidates); ok {
		v := best.Amount
		return TotalField{
			Value:      &v,
			Confidence: best.Weight,
			Source:     TotalSourceLabelled,
			Pattern:    best.Pattern,
			Candidates: candidates,
		}
	}
	return fallbackTotal(text)
}

func fallbackTotal(text string) TotalField {
	var numbers []decimal.Decimal
	for _, tok := range reNumberRun.FindAllString(text, -1) {
		if !reBareAmount.MatchString(tok) {
			continue
		}
		if amt, err := ParseAmount(tok); err == nil {
			numbers = append(numbers, amt)
		}
	}
	if len(numbers) == 0 {
		return TotalField{}
	}

	largest := decimal.Max(numbers[0], numbers[1:]...)
	conf := FallbackDefault
	switch {
	case len(numbers) == 1:
		conf = FallbackSingleConfidence
	case largest.GreaterThan(decimal.NewFromInt(500)):
		conf = FallbackOver500
	case largest.GreaterThan(decimal.NewFromInt(100)):
		conf = FallbackOver100
	}
	return TotalField{Value: &largest, Confidence: conf, Source: TotalSourceFallback}
}

// ParseAmount reads "1,234.50", "1234.50" or "12,50". A comma is a decimal separator
// only when no dot is present.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
