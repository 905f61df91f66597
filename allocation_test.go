package portfolio

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// fixtureTree builds:
//
//	1 Equity (60)            2 Bonds (40)
//	├── 3 Europe (70)
//	└── 4 US (30)
func fixtureTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "Equity", TargetWeight: dec("60"), OrderIndex: 0},
		{ID: 2, Name: "Bonds", TargetWeight: dec("40"), OrderIndex: 1},
		{ID: 3, ParentID: 1, Name: "Europe", TargetWeight: dec("70"), OrderIndex: 0},
		{ID: 4, ParentID: 1, Name: "US", TargetWeight: dec("30"), OrderIndex: 1},
	})
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestTreeValidateRejectsBadSum(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("60")},
		{ID: 2, Name: "B", TargetWeight: dec("39.5")},
	})
	var wse *WeightSumError
	if err := tree.Validate(); !errors.As(err, &wse) {
		t.Fatalf("got %v, want WeightSumError", err)
	}
}

func TestTreeValidateAcceptsTolerance(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("60.00005")},
		{ID: 2, Name: "B", TargetWeight: dec("40")},
	})
	if err := tree.Validate(); err != nil {
		t.Fatalf("sum within tolerance rejected: %v", err)
	}
}

func TestTreeAddRollsBackOnBadSum(t *testing.T) {
	tree := fixtureTree(t)
	err := tree.Add(AllocationNode{ID: 5, ParentID: 1, Name: "Asia", TargetWeight: dec("50")})
	var wse *WeightSumError
	if !errors.As(err, &wse) {
		t.Fatalf("got %v, want WeightSumError", err)
	}
	if _, ok := tree.Node(5); ok {
		t.Error("rejected node left in the arena")
	}
}

func TestTreeGlobalWeight(t *testing.T) {
	tree := fixtureTree(t)
	w, err := tree.GlobalWeight(3)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Equal(dec("42")) { // 70% of 60%
		t.Errorf("got %s, want 42", w)
	}
}

func TestTreeGlobalWeightCycle(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, ParentID: 2, Name: "A", TargetWeight: dec("100")},
		{ID: 2, ParentID: 1, Name: "B", TargetWeight: dec("100")},
	})
	var die *DataIntegrityError
	if _, err := tree.GlobalWeight(1); !errors.As(err, &die) {
		t.Fatalf("got %v, want DataIntegrityError", err)
	}
}

func TestTreePath(t *testing.T) {
	tree := fixtureTree(t)
	p, err := tree.Path(3)
	if err != nil {
		t.Fatal(err)
	}
	if p != "Equity / Europe" {
		t.Errorf("got %q", p)
	}
}

func TestTreeLeaves(t *testing.T) {
	tree := fixtureTree(t)
	leaves := tree.Leaves()
	want := []int64{2, 3, 4}
	if len(leaves) != len(want) {
		t.Fatalf("got %d leaves, want %d", len(leaves), len(want))
	}
	for i, id := range want {
		if leaves[i].ID != id {
			t.Errorf("leaf %d: got %d, want %d", i, leaves[i].ID, id)
		}
	}
	if tree.IsLeaf(1) {
		t.Error("node with children reported as leaf")
	}
	if !tree.IsLeaf(2) {
		t.Error("childless node not reported as leaf")
	}
}

func TestTreeUpdateRejectsSelfParent(t *testing.T) {
	tree := fixtureTree(t)
	n, _ := tree.Node(2)
	n.ParentID = 2
	if err := tree.Update(n); err == nil {
		t.Error("self-parent accepted")
	}
}

func TestTreeUpdateRejectsDescendantParent(t *testing.T) {
	tree := fixtureTree(t)
	n, _ := tree.Node(1)
	n.ParentID = 3
	if err := tree.Update(n); err == nil {
		t.Error("move under own descendant accepted")
	}
	got, _ := tree.Node(1)
	if got.ParentID != 0 {
		t.Error("rejected update mutated the node")
	}
}

func TestTreeSetWeightsMustCoverGroup(t *testing.T) {
	tree := fixtureTree(t)
	err := tree.SetWeights(1, map[int64]decimal.Decimal{3: dec("100")})
	if err == nil {
		t.Fatal("partial weight batch accepted")
	}
	if err := tree.SetWeights(1, map[int64]decimal.Decimal{3: dec("55"), 4: dec("45")}); err != nil {
		t.Fatal(err)
	}
	n, _ := tree.Node(3)
	if !n.TargetWeight.Equal(dec("55")) {
		t.Errorf("got %s, want 55", n.TargetWeight)
	}
}

func TestTreeDeleteRemovesSubtreeAndRenormalizes(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("50"), OrderIndex: 0},
		{ID: 2, Name: "B", TargetWeight: dec("30"), OrderIndex: 1},
		{ID: 3, Name: "C", TargetWeight: dec("20"), OrderIndex: 2},
		{ID: 4, ParentID: 1, Name: "A1", TargetWeight: dec("100")},
	})
	removed, err := tree.Delete(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Fatalf("removed %v, want node and its child", removed)
	}
	// 30/50 and 20/50 of 100, truncated; last sibling absorbs the remainder.
	b, _ := tree.Node(2)
	c, _ := tree.Node(3)
	if !b.TargetWeight.Equal(dec("60")) {
		t.Errorf("B: got %s, want 60", b.TargetWeight)
	}
	if !c.TargetWeight.Equal(dec("40")) {
		t.Errorf("C: got %s, want 40", c.TargetWeight)
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("tree invalid after delete: %v", err)
	}
}

func TestTreeDeleteSingleSurvivorGetsHundred(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("60")},
		{ID: 2, Name: "B", TargetWeight: dec("40")},
	})
	if _, err := tree.Delete(1); err != nil {
		t.Fatal(err)
	}
	n, _ := tree.Node(2)
	if !n.TargetWeight.Equal(dec("100")) {
		t.Errorf("got %s, want 100", n.TargetWeight)
	}
}

func TestTreeDeleteRenormalizeTruncatesWithRemainder(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("40"), OrderIndex: 0},
		{ID: 2, Name: "B", TargetWeight: dec("20"), OrderIndex: 1},
		{ID: 3, Name: "C", TargetWeight: dec("20"), OrderIndex: 2},
		{ID: 4, Name: "D", TargetWeight: dec("20"), OrderIndex: 3},
	})
	if _, err := tree.Delete(1); err != nil {
		t.Fatal(err)
	}
	// Each survivor held 20/60: 33.3333 truncated, D takes the remainder.
	b, _ := tree.Node(2)
	d, _ := tree.Node(4)
	if !b.TargetWeight.Equal(dec("33.3333")) {
		t.Errorf("B: got %s, want 33.3333", b.TargetWeight)
	}
	if !d.TargetWeight.Equal(dec("33.3334")) {
		t.Errorf("D: got %s, want 33.3334", d.TargetWeight)
	}
}

func TestTreeDeleteZeroTotalFallsBackToEqualSplit(t *testing.T) {
	tree := NewTree([]AllocationNode{
		{ID: 1, Name: "A", TargetWeight: dec("100"), OrderIndex: 0},
		{ID: 2, Name: "B", TargetWeight: dec("0"), OrderIndex: 1},
		{ID: 3, Name: "C", TargetWeight: dec("0"), OrderIndex: 2},
		{ID: 4, Name: "D", TargetWeight: dec("0"), OrderIndex: 3},
	})
	if _, err := tree.Delete(1); err != nil {
		t.Fatal(err)
	}
	b, _ := tree.Node(2)
	d, _ := tree.Node(4)
	if !b.TargetWeight.Equal(dec("33.3333")) {
		t.Errorf("B: got %s, want 33.3333", b.TargetWeight)
	}
	if !d.TargetWeight.Equal(dec("33.3334")) {
		t.Errorf("D: got %s, want 33.3334", d.TargetWeight)
	}
}

func TestTreeDrift(t *testing.T) {
	tree := fixtureTree(t)
	actual := map[int64]decimal.Decimal{
		3: dec("500"), // Europe, target 42
		4: dec("100"), // US, target 18
		2: dec("400"), // Bonds, target 40
	}
	items, err := tree.Drift(actual, dec("1000"), dec("5"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	// Sorted by absolute drift: Europe +8, US -8, Bonds 0.
	if items[0].NodeID != 3 || !items[0].DriftPct.Equal(dec("8")) {
		t.Errorf("first item: %+v", items[0])
	}
	if !items[0].Alerted {
		t.Error("8pt drift with threshold 5 not alerted")
	}
	last := items[2]
	if last.NodeID != 2 || !last.DriftPct.IsZero() || last.Alerted {
		t.Errorf("last item: %+v", last)
	}
}

func TestTreeDriftZeroAssets(t *testing.T) {
	tree := fixtureTree(t)
	items, err := tree.Drift(nil, decimal.Zero, dec("5"))
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if !it.ActualWeight.IsZero() {
			t.Errorf("node %d: actual %s, want 0", it.NodeID, it.ActualWeight)
		}
	}
}
