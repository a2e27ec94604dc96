// Package normalize cleans raw OCR output before any field is extracted from it.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
)

var (
	reCRLF = regexp.MustCompile(`\r\n?`)
	reTabs = regexp.MustCompile(`\t`)
)

// nonPrintable drops every rune outside 0x20-0x7E except the line feed.
var nonPrintable = runes.Remove(runes.Predicate(func(r rune) bool {
	return r != '\n' && (r < 0x20 || r > 0x7e)
}))

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Normalizer applies a fixed, ordered list of correction rules. Safe for concurrent use.
type Normalizer struct {
	rules []rule
}

// New compiles rules in the given order. Each rule matches its source as a whole word,
// case-insensitively.
func New(rules []corpus.CorrectionRule) (*Normalizer, error) {
	n := &Normalizer{rules: make([]rule, 0, len(rules))}
	for _, r := range rules {
		re, err := wholeWord(r.From)
		if err != nil {
			return nil, fmt.Errorf("compile correction %q: %w", r.From, err)
		}
		n.rules = append(n.rules, rule{re: re, repl: r.To})
	}
	return n, nil
}

// wholeWord anchors token with \b on each side that begins or ends with a word character.
// Tokens such as "Tota!" end in punctuation, where \b would demand a following letter.
func wholeWord(token string) (*regexp.Regexp, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	expr := regexp.QuoteMeta(token)
	rs := []rune(token)
	if isWord(rs[0]) {
		expr = `\b` + expr
	}
	if isWord(rs[len(rs)-1]) {
		expr += `\b`
	}
	return regexp.Compile(`(?i)` + expr)
}

func isWord(r rune) bool {
	return r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Normalize strips non-printable characters, applies every correction rule in order and
// drops blank lines. It never fails; empty input yields empty output.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := StripNonPrintable(raw)
	s = n.Correct(s)
	return DropBlankLines(s)
}

// Correct applies the correction rules in sequence over the whole text. A later rule
// sees the output of every earlier one.
func (n *Normalizer) Correct(s string) string {
	for _, r := range n.rules {
		s = r.re.ReplaceAllLiteralString(s, r.repl)
	}
	return s
}

// StripNonPrintable unifies line endings, turns tabs into spaces and removes everything
// outside printable ASCII. Accented letters and currency glyphs are lost.
func StripNonPrintable(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	out, _, _ := transform.String(nonPrintable, s) // Remove has no failure mode
	return out
}

// DropBlankLines removes lines that are empty after trimming and keeps the rest in order.
func DropBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}

// Lines splits normalized text into its trimmed, non-blank lines.
func Lines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(ln); t != "" {
			out = append(out, t)
		}
	}
	return out
}
