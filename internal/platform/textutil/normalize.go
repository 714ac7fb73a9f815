package textutil

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeProductText folds full-width characters to their half-width
// forms and collapses runs of whitespace. Catalog rows are pasted from
// Japanese spreadsheets where full-width digits and spaces are common.
func NormalizeProductText(value string) string {
	folded := width.Fold.String(strings.TrimSpace(value))
	return strings.Join(strings.Fields(folded), " ")
}
