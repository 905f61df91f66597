package portfolio

import (
	"testing"
	"time"
)

func TestReplayPositionAverageCost(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 10, 100, 1000, at(2025, time.January, 2)),
		buy(1, 10, 10, 120, 1200, at(2025, time.February, 2)),
	}
	p := ReplayPosition(txs)
	if !p.Quantity.Equal(dec("20")) {
		t.Errorf("quantity: got %s, want 20", p.Quantity)
	}
	if !p.AvgCost.Equal(dec("110")) {
		t.Errorf("avg cost: got %s, want 110", p.AvgCost)
	}
}

func TestReplayPositionSellKeepsAvgCost(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 10, 100, 1000, at(2025, time.January, 2)),
		buy(1, 10, 10, 120, 1200, at(2025, time.February, 2)),
		sell(1, 10, 5, 150, 750, at(2025, time.March, 2)),
	}
	p := ReplayPosition(txs)
	if !p.Quantity.Equal(dec("15")) {
		t.Errorf("quantity: got %s, want 15", p.Quantity)
	}
	// Selling at the running average leaves the average unchanged.
	if !p.AvgCost.Equal(dec("110")) {
		t.Errorf("avg cost: got %s, want 110", p.AvgCost)
	}
}

func TestReplayPositionBuyIncludesFeeAndTax(t *testing.T) {
	tx := buy(1, 10, 10, 100, 1000, at(2025, time.January, 2))
	tx.Fee = dec("5")
	tx.Tax = dec("15")
	p := ReplayPosition([]Transaction{tx})
	if !p.AvgCost.Equal(dec("102")) {
		t.Errorf("avg cost: got %s, want 102", p.AvgCost)
	}
}

func TestReplayPositionOversellClampsToZero(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 10, 100, 1000, at(2025, time.January, 2)),
		sell(1, 10, 25, 100, 2500, at(2025, time.February, 2)),
	}
	p := ReplayPosition(txs)
	if !p.Quantity.IsZero() {
		t.Errorf("quantity: got %s, want 0", p.Quantity)
	}
	if !p.AvgCost.IsZero() {
		t.Errorf("avg cost: got %s, want 0", p.AvgCost)
	}
}

func TestReplayPositionSellWithNothingHeld(t *testing.T) {
	txs := []Transaction{
		sell(1, 10, 5, 100, 500, at(2025, time.January, 2)),
		buy(1, 10, 10, 100, 1000, at(2025, time.February, 2)),
	}
	p := ReplayPosition(txs)
	if !p.Quantity.Equal(dec("10")) {
		t.Errorf("quantity: got %s, want 10", p.Quantity)
	}
	if !p.AvgCost.Equal(dec("100")) {
		t.Errorf("avg cost: got %s, want 100", p.AvgCost)
	}
}

func TestReplayPositionZeroResetsCostPool(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 10, 100, 1000, at(2025, time.January, 2)),
		sell(1, 10, 10, 50, 500, at(2025, time.February, 2)),
		buy(1, 10, 10, 200, 2000, at(2025, time.March, 2)),
	}
	p := ReplayPosition(txs)
	// The re-entered position costs 200, untouched by the closed round trip.
	if !p.AvgCost.Equal(dec("200")) {
		t.Errorf("avg cost: got %s, want 200", p.AvgCost)
	}
}

func TestReplayPositionFeeStepsUpCost(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 10, 100, 1000, at(2025, time.January, 2)),
		instrumentFee(1, 10, 0, 50, at(2025, time.February, 2)),
	}
	p := ReplayPosition(txs)
	if !p.AvgCost.Equal(dec("105")) {
		t.Errorf("avg cost: got %s, want 105", p.AvgCost)
	}
}

func TestReplayPositionFeeIgnoredWhenFlat(t *testing.T) {
	txs := []Transaction{
		instrumentFee(1, 10, 0, 50, at(2025, time.January, 2)),
		buy(1, 10, 10, 100, 1000, at(2025, time.February, 2)),
	}
	p := ReplayPosition(txs)
	if !p.AvgCost.Equal(dec("100")) {
		t.Errorf("avg cost: got %s, want 100", p.AvgCost)
	}
}

func TestReplayPositionOrderIndependentInput(t *testing.T) {
	a := buy(1, 10, 10, 100, 1000, at(2025, time.January, 2))
	a.ID = 1
	b := sell(1, 10, 5, 120, 600, at(2025, time.February, 2))
	b.ID = 2
	c := buy(1, 10, 20, 150, 3000, at(2025, time.March, 2))
	c.ID = 3

	p1 := ReplayPosition([]Transaction{a, b, c})
	p2 := ReplayPosition([]Transaction{c, a, b})
	if !p1.Quantity.Equal(p2.Quantity) || !p1.AvgCost.Equal(p2.AvgCost) {
		t.Errorf("replay depends on input order: %v vs %v", p1, p2)
	}
}

func TestReplayPositionSameInstantTieBreaksOnID(t *testing.T) {
	when := at(2025, time.January, 2)
	a := buy(1, 10, 10, 100, 1000, when)
	a.ID = 1
	b := sell(1, 10, 10, 100, 1000, when)
	b.ID = 2
	p := ReplayPosition([]Transaction{b, a})
	if !p.Quantity.IsZero() {
		t.Errorf("quantity: got %s, want 0", p.Quantity)
	}
}

func TestAffectedPairs(t *testing.T) {
	txs := []Transaction{
		buy(1, 10, 1, 1, 1, at(2025, time.January, 2)),
		sell(2, 10, 1, 1, 1, at(2025, time.January, 3)),
		buy(1, 10, 1, 1, 1, at(2025, time.January, 4)),
		cashIn(1, 100, at(2025, time.January, 5)),
		instrumentFee(1, 11, 0, 5, at(2025, time.January, 6)),
		{Type: Fee, AccountID: 1, Amount: dec("3"), ExecutedAt: at(2025, time.January, 7)},
	}
	got := AffectedPairs(txs...)
	want := []pairKey{{1, 10}, {2, 10}, {1, 11}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
