package domain

// CartTotals captures the monetary derivation over the current cart lines.
// Discount eligibility and the grand total are computed over different
// subtotals: set-marked and flash lines contribute to the owed sum but never
// to the tier-qualifying subtotal.
type CartTotals struct {
	RegularSubtotal int64
	DiscountPercent int64
	DiscountAmount  int64
	DeliveryCost    int64
	GrandTotal      int64
	TierMinTotal    *int64
}

// RoundPercent computes round(amount * percent / 100) with half-up rounding
// in whole-yen integer arithmetic.
func RoundPercent(amount, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return (amount*percent + 50) / 100
}
