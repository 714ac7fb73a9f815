package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	domain "github.com/marugo-kitchen/api/internal/domain"
)

func testClock() func() time.Time {
	base := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func testSnapshot() domain.RuleSnapshot {
	return domain.RuleSnapshot{
		Tiers: []domain.PromotionTier{
			{MinTotal: 2000, DiscountPercent: 10},
			{MinTotal: 5000, DiscountPercent: 15},
		},
		Zone:           domain.DeliveryZone{Label: "standard", Cost: 350, FreeFrom: 4000},
		FlashThreshold: 2000,
		FlashPercent:   1,
	}
}

func regularProduct(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: price}
}

func flashProduct(id string, price int64) domain.Product {
	return domain.Product{
		ID:         id,
		Name:       "Flash " + id,
		Price:      price,
		Attributes: domain.ProductAttributes{IsFlashEligible: true},
	}
}

func findLine(t *testing.T, lines []domain.CartLine, id string) domain.CartLine {
	t.Helper()
	for _, line := range lines {
		if line.ID == id {
			return line
		}
	}
	t.Fatalf("line %q not found in %#v", id, lines)
	return domain.CartLine{}
}

func countKind(lines []domain.CartLine, kind domain.LineKind) int {
	count := 0
	for _, line := range lines {
		if line.Kind == kind {
			count++
		}
	}
	return count
}

func TestCartEngineAddItem(t *testing.T) {
	snap := testSnapshot()

	t.Run("first add synthesises a delivery line", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)

		lines := engine.Lines()
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines got %d", len(lines))
		}
		item := findLine(t, lines, "7")
		if item.Kind != domain.LineRegular || item.Quantity != 1 {
			t.Fatalf("unexpected regular line %#v", item)
		}
		delivery := findLine(t, lines, domain.DeliveryLineID)
		if delivery.Kind != domain.LineDelivery || delivery.UnitPrice != 350 {
			t.Fatalf("unexpected delivery line %#v", delivery)
		}
		totals := engine.Totals(snap)
		if totals.GrandTotal != 300+350 {
			t.Fatalf("expected grand total 650 got %d", totals.GrandTotal)
		}
	})

	t.Run("existing line increments by one", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 3, snap)
		engine.AddItem(regularProduct("7", 300), 5, snap)

		if qty := findLine(t, engine.Lines(), "7").Quantity; qty != 4 {
			t.Fatalf("expected quantity 4 got %d", qty)
		}
	})

	t.Run("non-positive quantity clamps to one on new lines", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), -2, snap)

		if qty := findLine(t, engine.Lines(), "7").Quantity; qty != 1 {
			t.Fatalf("expected quantity 1 got %d", qty)
		}
	})

	t.Run("blank product id is a no-op", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(domain.Product{ID: "   "}, 1, snap)
		if got := len(engine.Lines()); got != 0 {
			t.Fatalf("expected empty cart got %d lines", got)
		}
	})
}

func TestCartEngineUpdateQuantity(t *testing.T) {
	snap := testSnapshot()

	t.Run("sets quantity on regular lines", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)
		engine.UpdateQuantity("7", 4, snap)

		if qty := findLine(t, engine.Lines(), "7").Quantity; qty != 4 {
			t.Fatalf("expected quantity 4 got %d", qty)
		}
	})

	t.Run("zero or negative removes the line", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)
		engine.UpdateQuantity("7", 0, snap)

		if got := len(engine.Lines()); got != 0 {
			t.Fatalf("expected empty cart got %d lines", got)
		}
	})

	t.Run("delivery line quantity is immutable", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)
		engine.UpdateQuantity(domain.DeliveryLineID, 3, snap)

		if qty := findLine(t, engine.Lines(), domain.DeliveryLineID).Quantity; qty != 1 {
			t.Fatalf("expected delivery quantity 1 got %d", qty)
		}
	})

	t.Run("flash line quantity is immutable", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 2500), 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1200), snap)
		engine.UpdateQuantity("9"+domain.FlashLineSuffix, 5, snap)

		if qty := findLine(t, engine.Lines(), "9"+domain.FlashLineSuffix).Quantity; qty != 1 {
			t.Fatalf("expected flash quantity 1 got %d", qty)
		}
	})

	t.Run("zero removes a flash line like RemoveItem", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 2500), 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1200), snap)
		engine.UpdateQuantity("9"+domain.FlashLineSuffix, 0, snap)

		for _, line := range engine.Lines() {
			if line.ID == "9"+domain.FlashLineSuffix {
				t.Fatal("expected flash line removed")
			}
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)
		before := engine.Lines()
		engine.UpdateQuantity("missing", 4, snap)
		if !reflect.DeepEqual(before, engine.Lines()) {
			t.Fatalf("expected cart unchanged")
		}
	})
}

func TestCartEngineDeliveryPresence(t *testing.T) {
	snap := testSnapshot()

	t.Run("at most one delivery line across mixed mutations", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 500), 1, snap)
		engine.AddItem(regularProduct("2", 700), 2, snap)
		engine.RemoveItem("1", snap)
		engine.AddItem(regularProduct("3", 900), 1, snap)

		lines := engine.Lines()
		if got := countKind(lines, domain.LineDelivery); got != 1 {
			t.Fatalf("expected exactly one delivery line got %d", got)
		}
	})

	t.Run("removing the last regular line cascades the delivery removal", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)
		engine.RemoveItem("7", snap)

		if got := len(engine.Lines()); got != 0 {
			t.Fatalf("expected empty cart got %d lines", got)
		}
		if err := engine.CanPlaceOrder(); !errors.Is(err, ErrCheckoutEmptyCart) {
			t.Fatalf("expected empty cart error got %v", err)
		}
	})

	t.Run("delivery price tracks zone changes", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("7", 300), 1, snap)

		moved := snap
		moved.Zone = domain.DeliveryZone{Label: "remote", Cost: 800, FreeFrom: 6000}
		engine.Reprice(moved)

		delivery := findLine(t, engine.Lines(), domain.DeliveryLineID)
		if delivery.UnitPrice != 800 {
			t.Fatalf("expected repriced delivery 800 got %d", delivery.UnitPrice)
		}
		if delivery.Name != "Delivery (remote)" {
			t.Fatalf("unexpected delivery name %q", delivery.Name)
		}
	})
}

func TestCartEngineRecomputeIdempotence(t *testing.T) {
	snap := testSnapshot()
	engine := NewCartEngine(testClock())
	engine.AddItem(regularProduct("1", 2000), 2, snap)
	engine.AddFlashOffer(flashProduct("9", 1500), snap)
	if !engine.ActivateFreeDelivery(snap) {
		t.Fatalf("expected free delivery grant")
	}

	first := engine.Lines()
	engine.Reprice(snap)
	second := engine.Lines()
	engine.Reprice(snap)
	third := engine.Lines()

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(second, third) {
		t.Fatalf("recompute is not idempotent:\nfirst %#v\nsecond %#v\nthird %#v", first, second, third)
	}
}

func TestCartEngineFreeDeliveryBoundary(t *testing.T) {
	// Subtotal sits exactly on the zone threshold: the grant must be earned
	// and must survive any number of recompute passes.
	snap := testSnapshot()
	engine := NewCartEngine(testClock())
	engine.AddItem(regularProduct("1", 4000), 1, snap)

	if !engine.ActivateFreeDelivery(snap) {
		t.Fatalf("expected grant at exact threshold")
	}
	engine.Reprice(snap)
	engine.Reprice(snap)

	delivery := findLine(t, engine.Lines(), domain.DeliveryLineID)
	if delivery.Kind != domain.LineFreeDelivery || delivery.UnitPrice != 0 {
		t.Fatalf("expected free delivery to persist got %#v", delivery)
	}
}

func TestCartEngineFlashOffers(t *testing.T) {
	snap := testSnapshot()

	t.Run("prices at one percent of original", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2500), 1, snap)
		if !engine.AddFlashOffer(flashProduct("9", 1280), snap) {
			t.Fatalf("expected flash offer accepted")
		}

		line := findLine(t, engine.Lines(), "9"+domain.FlashLineSuffix)
		if line.UnitPrice != 13 {
			t.Fatalf("expected rounded price 13 got %d", line.UnitPrice)
		}
		if line.OriginalPrice == nil || *line.OriginalPrice != 1280 {
			t.Fatalf("expected original price 1280 got %#v", line.OriginalPrice)
		}
		if line.ViolatesCondition {
			t.Fatalf("expected funded flash line")
		}
	})

	t.Run("duplicate offers are refused", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2500), 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1280), snap)
		if engine.AddFlashOffer(flashProduct("9", 1280), snap) {
			t.Fatalf("expected duplicate flash offer refused")
		}
	})

	t.Run("set-marked and ineligible products are refused", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2500), 1, snap)

		set := flashProduct("2", 900)
		set.Attributes.IsSet = true
		if engine.AddFlashOffer(set, snap) {
			t.Fatalf("expected set product refused")
		}
		if engine.AddFlashOffer(regularProduct("3", 900), snap) {
			t.Fatalf("expected ineligible product refused")
		}
	})

	t.Run("funding drop flags the line and blocks checkout", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2500), 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1200), snap)

		if findLine(t, engine.Lines(), "9"+domain.FlashLineSuffix).ViolatesCondition {
			t.Fatalf("expected funded flash line before removal")
		}
		if err := engine.CanPlaceOrder(); err != nil {
			t.Fatalf("expected checkout allowed got %v", err)
		}

		engine.AddItem(regularProduct("2", 1000), 1, snap)
		engine.RemoveItem("1", snap)

		flagged := findLine(t, engine.Lines(), "9"+domain.FlashLineSuffix)
		if !flagged.ViolatesCondition {
			t.Fatalf("expected flash line flagged after funding drop")
		}
		if err := engine.CanPlaceOrder(); !errors.Is(err, ErrCheckoutFlashUnfunded) {
			t.Fatalf("expected flash unfunded error got %v", err)
		}
	})

	t.Run("set lines do not fund flash offers", func(t *testing.T) {
		engine := NewCartEngine(testClock())
		set := regularProduct("1", 3000)
		set.Attributes.IsSet = true
		engine.AddItem(set, 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1200), snap)

		if !findLine(t, engine.Lines(), "9"+domain.FlashLineSuffix).ViolatesCondition {
			t.Fatalf("expected flash line unfunded when only set lines exist")
		}
	})
}

func TestCartEngineFreeDeliveryRevocation(t *testing.T) {
	snap := testSnapshot()
	engine := NewCartEngine(testClock())
	engine.AddItem(regularProduct("1", 2500), 1, snap)
	engine.AddItem(regularProduct("2", 2000), 1, snap)

	if !engine.ActivateFreeDelivery(snap) {
		t.Fatalf("expected free delivery grant at subtotal 4500")
	}
	delivery := findLine(t, engine.Lines(), domain.DeliveryLineID)
	if delivery.Kind != domain.LineFreeDelivery || delivery.UnitPrice != 0 {
		t.Fatalf("expected waived delivery got %#v", delivery)
	}

	engine.RemoveItem("2", snap)

	delivery = findLine(t, engine.Lines(), domain.DeliveryLineID)
	if delivery.Kind != domain.LineDelivery || delivery.UnitPrice != 350 {
		t.Fatalf("expected reverted paid delivery got %#v", delivery)
	}
}

func TestCartEngineActivateFreeDeliveryBelowThreshold(t *testing.T) {
	snap := testSnapshot()
	engine := NewCartEngine(testClock())
	engine.AddItem(regularProduct("1", 500), 1, snap)

	if engine.ActivateFreeDelivery(snap) {
		t.Fatalf("expected grant refused below threshold")
	}
	delivery := findLine(t, engine.Lines(), domain.DeliveryLineID)
	if delivery.Kind != domain.LineDelivery || delivery.UnitPrice != 350 {
		t.Fatalf("expected paid delivery got %#v", delivery)
	}
}

func TestCartEngineTotals(t *testing.T) {
	t.Run("exact tier boundary applies the tier", func(t *testing.T) {
		snap := testSnapshot()
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2000), 1, snap)

		totals := engine.Totals(snap)
		if totals.RegularSubtotal != 2000 {
			t.Fatalf("expected subtotal 2000 got %d", totals.RegularSubtotal)
		}
		if totals.DiscountPercent != 10 || totals.DiscountAmount != 200 {
			t.Fatalf("expected 10%% / 200 got %d%% / %d", totals.DiscountPercent, totals.DiscountAmount)
		}
		if totals.TierMinTotal == nil || *totals.TierMinTotal != 2000 {
			t.Fatalf("expected tier min 2000 got %#v", totals.TierMinTotal)
		}
	})

	t.Run("set lines are excluded from the discount subtotal but priced in", func(t *testing.T) {
		snap := testSnapshot()
		engine := NewCartEngine(testClock())
		set := regularProduct("1", 1500)
		set.Attributes.IsSet = true
		engine.AddItem(set, 1, snap)
		engine.AddItem(regularProduct("2", 1000), 1, snap)

		totals := engine.Totals(snap)
		if totals.RegularSubtotal != 1000 {
			t.Fatalf("expected discount subtotal 1000 got %d", totals.RegularSubtotal)
		}
		if totals.DiscountAmount != 0 {
			t.Fatalf("expected no discount got %d", totals.DiscountAmount)
		}
		if totals.GrandTotal != 1500+1000+350 {
			t.Fatalf("expected grand total 2850 got %d", totals.GrandTotal)
		}
	})

	t.Run("flash lines are excluded from the discount subtotal but priced in", func(t *testing.T) {
		snap := testSnapshot()
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2500), 1, snap)
		engine.AddFlashOffer(flashProduct("9", 1000), snap)

		totals := engine.Totals(snap)
		if totals.RegularSubtotal != 2500 {
			t.Fatalf("expected discount subtotal 2500 got %d", totals.RegularSubtotal)
		}
		// 2500 regular + 10 flash - 250 discount + 350 delivery
		if totals.GrandTotal != 2610 {
			t.Fatalf("expected grand total 2610 got %d", totals.GrandTotal)
		}
	})

	t.Run("discount grows across tier boundaries", func(t *testing.T) {
		snap := testSnapshot()
		var previous int64 = -1
		for _, subtotal := range []int64{0, 1999, 2000, 3000, 4999, 5000, 8000} {
			engine := NewCartEngine(testClock())
			if subtotal > 0 {
				engine.AddItem(regularProduct("1", subtotal), 1, snap)
			}
			totals := engine.Totals(snap)
			if totals.DiscountAmount < previous {
				t.Fatalf("discount shrank at subtotal %d: %d < %d", subtotal, totals.DiscountAmount, previous)
			}
			previous = totals.DiscountAmount
		}
	})

	t.Run("equal tier thresholds resolve to the higher percentage", func(t *testing.T) {
		snap := testSnapshot()
		snap.Tiers = []domain.PromotionTier{
			{MinTotal: 2000, DiscountPercent: 5},
			{MinTotal: 2000, DiscountPercent: 12},
		}
		engine := NewCartEngine(testClock())
		engine.AddItem(regularProduct("1", 2000), 1, snap)

		if totals := engine.Totals(snap); totals.DiscountPercent != 12 {
			t.Fatalf("expected 12%% got %d%%", totals.DiscountPercent)
		}
	})
}

func TestCartEngineClear(t *testing.T) {
	snap := testSnapshot()
	engine := NewCartEngine(testClock())
	engine.AddItem(regularProduct("1", 2500), 1, snap)
	engine.AddFlashOffer(flashProduct("9", 1000), snap)

	engine.Clear()

	if got := len(engine.Lines()); got != 0 {
		t.Fatalf("expected empty cart got %d lines", got)
	}
	if err := engine.CanPlaceOrder(); !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected empty cart error got %v", err)
	}
}
