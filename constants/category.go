package constants

import (
	"strings"
)

// Category is a spending category label as it appears in the corpus.
type Category string

// DefaultCategory is returned when neither keyword rules nor the training corpus match.
const DefaultCategory Category = "Expense"

const (
	Meals          Category = "Meals"
	Medicine       Category = "Medicine"
	Convenience    Category = "Convenience"
	Grocery        Category = "Grocery"
	Transportation Category = "Transportation"
)

var builtinCategories = []Category{
	Meals,
	Medicine,
	Convenience,
	Grocery,
	Transportation,
	DefaultCategory,
}

// Canonicalize maps a free-form label onto a builtin category, case-insensitively.
// Unknown labels are returned trimmed with ok=false; corpus files may define their own.
func Canonicalize(input string) (Category, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return DefaultCategory, false
	}
	for _, cat := range builtinCategories {
		if strings.EqualFold(trimmed, string(cat)) {
			return cat, true
		}
	}
	return Category(trimmed), false
}
