package domain

import "testing"

func TestRoundPercent(t *testing.T) {
	cases := []struct {
		name     string
		amount   int64
		percent  int64
		expected int64
	}{
		{name: "rounds half up", amount: 1250, percent: 10, expected: 125},
		{name: "one percent of 1280", amount: 1280, percent: 1, expected: 13},
		{name: "one percent of 1200", amount: 1200, percent: 1, expected: 12},
		{name: "one percent of 1049 rounds down", amount: 1049, percent: 1, expected: 10},
		{name: "one percent of 1050 rounds up", amount: 1050, percent: 1, expected: 11},
		{name: "zero amount", amount: 0, percent: 10, expected: 0},
		{name: "zero percent", amount: 1000, percent: 0, expected: 0},
		{name: "negative amount", amount: -500, percent: 10, expected: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if actual := RoundPercent(tc.amount, tc.percent); actual != tc.expected {
				t.Fatalf("RoundPercent(%d, %d) = %d, expected %d", tc.amount, tc.percent, actual, tc.expected)
			}
		})
	}
}

func TestCartLineTotal(t *testing.T) {
	line := CartLine{UnitPrice: 350, Quantity: 3}
	if total := line.Total(); total != 1050 {
		t.Fatalf("expected 1050 got %d", total)
	}
}

func TestCartLineIsDelivery(t *testing.T) {
	if !(CartLine{Kind: LineDelivery}).IsDelivery() {
		t.Fatalf("paid delivery line should report IsDelivery")
	}
	if !(CartLine{Kind: LineFreeDelivery}).IsDelivery() {
		t.Fatalf("waived delivery line should report IsDelivery")
	}
	if (CartLine{Kind: LineRegular}).IsDelivery() {
		t.Fatalf("regular line should not report IsDelivery")
	}
}
