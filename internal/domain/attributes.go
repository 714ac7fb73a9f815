package domain

import "strings"

// flashEligibleMarker is the multi-character legacy id token for flash
// eligibility. Single-letter markers follow the numeric stem directly.
const flashEligibleMarker = "R2000"

// ParseProductAttributes derives catalog flags from a legacy product id.
// Historical ids encode flags as uppercase markers appended to a numeric
// stem, e.g. "12SH" (set, spicy) or "3R2000" (flash eligible). The id
// itself is preserved unchanged; parsing happens once at ingestion.
func ParseProductAttributes(rawID string) ProductAttributes {
	var attrs ProductAttributes

	markers := strings.TrimLeft(strings.TrimSpace(rawID), "0123456789")
	if idx := strings.Index(markers, flashEligibleMarker); idx >= 0 {
		attrs.IsFlashEligible = true
		markers = markers[:idx] + markers[idx+len(flashEligibleMarker):]
	}

	for _, marker := range markers {
		switch marker {
		case 'S':
			attrs.IsSet = true
		case 'H':
			attrs.IsSpicy = true
		case 'C':
			attrs.IsChefPick = true
		case 'W':
			attrs.IsRecommended = true
		}
	}
	return attrs
}
