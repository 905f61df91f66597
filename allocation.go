package portfolio

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// weightTolerance bounds the accepted deviation of a sibling group's weight
// sum from 100.
var (
	weightTolerance = decimal.RequireFromString("0.0001")
	hundred         = decimal.NewFromInt(100)
)

// Tree is the target-allocation hierarchy as a flat arena keyed by node id.
// A ParentID of 0 marks a root. Every sibling group, roots included, must
// keep target weights summing to 100 within tolerance, so mutations validate
// the touched groups and reject violations before the arena changes shape.
type Tree struct {
	nodes map[int64]AllocationNode
}

// NewTree builds a tree over a copy of the given nodes.
func NewTree(nodes []AllocationNode) *Tree {
	t := &Tree{nodes: make(map[int64]AllocationNode, len(nodes))}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	return t
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given id.
func (t *Tree) Node(id int64) (AllocationNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Nodes lists all nodes ordered by parent, order index, then id.
func (t *Tree) Nodes() []AllocationNode {
	out := make([]AllocationNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParentID != out[j].ParentID {
			return out[i].ParentID < out[j].ParentID
		}
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Children lists the nodes under the given parent id (0 for roots), ordered
// by order index then id.
func (t *Tree) Children(parentID int64) []AllocationNode {
	var out []AllocationNode
	for _, n := range t.nodes {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Leaves lists the nodes without children.
func (t *Tree) Leaves() []AllocationNode {
	hasChild := make(map[int64]bool)
	for _, n := range t.nodes {
		if n.ParentID != 0 {
			hasChild[n.ParentID] = true
		}
	}
	var out []AllocationNode
	for _, n := range t.nodes {
		if !hasChild[n.ID] {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsLeaf reports whether the node exists and has no children. Instruments
// and accounts may only bind to leaves.
func (t *Tree) IsLeaf(id int64) bool {
	if _, ok := t.nodes[id]; !ok {
		return false
	}
	for _, n := range t.nodes {
		if n.ParentID == id {
			return false
		}
	}
	return true
}

// SubtreeIDs returns the node and all its descendants. Callers use it to
// unbind instruments and accounts before a subtree is removed.
func (t *Tree) SubtreeIDs(id int64) []int64 {
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	visited := map[int64]bool{}
	pending := []int64{id}
	var out []int64
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		for _, n := range t.nodes {
			if n.ParentID == cur {
				pending = append(pending, n.ID)
			}
		}
	}
	return out
}

// validateGroup checks that a sibling group's weights sum to 100. Empty
// groups are valid.
func (t *Tree) validateGroup(parentID int64) error {
	children := t.Children(parentID)
	if len(children) == 0 {
		return nil
	}
	total := decimal.Zero
	for _, n := range children {
		total = total.Add(n.TargetWeight)
	}
	if total.Sub(hundred).Abs().GreaterThan(weightTolerance) {
		return &WeightSumError{ParentID: parentID, Sum: total.String()}
	}
	return nil
}

// Validate checks every sibling group in the tree.
func (t *Tree) Validate() error {
	groups := map[int64]bool{0: true}
	for _, n := range t.nodes {
		groups[n.ParentID] = true
	}
	for parentID := range groups {
		if err := t.validateGroup(parentID); err != nil {
			return err
		}
	}
	return nil
}

// Add inserts a node. The parent must exist when set, the id must be new,
// and the resulting sibling group must sum to 100.
func (t *Tree) Add(n AllocationNode) error {
	if n.ID == 0 {
		return Invalidf("allocation node needs an id")
	}
	if _, ok := t.nodes[n.ID]; ok {
		return Invalidf("allocation node %d already exists", n.ID)
	}
	if n.ParentID != 0 {
		if _, ok := t.nodes[n.ParentID]; !ok {
			return Invalidf("allocation node parent %d not found", n.ParentID)
		}
	}
	t.nodes[n.ID] = n
	if err := t.validateGroup(n.ParentID); err != nil {
		delete(t.nodes, n.ID)
		return err
	}
	return nil
}

// Update replaces a node's fields. Re-parenting rejects the node itself and
// any of its descendants as the new parent, and both the old and the new
// sibling group must still sum to 100.
func (t *Tree) Update(n AllocationNode) error {
	old, ok := t.nodes[n.ID]
	if !ok {
		return Invalidf("allocation node %d not found", n.ID)
	}
	if n.ParentID != old.ParentID && n.ParentID != 0 {
		if n.ParentID == n.ID {
			return Invalidf("allocation node cannot be its own parent")
		}
		if _, ok := t.nodes[n.ParentID]; !ok {
			return Invalidf("allocation node parent %d not found", n.ParentID)
		}
		for _, id := range t.SubtreeIDs(n.ID) {
			if id == n.ParentID {
				return Invalidf("allocation node cannot move under its own descendant")
			}
		}
	}
	t.nodes[n.ID] = n
	if err := t.validateGroup(n.ParentID); err != nil {
		t.nodes[n.ID] = old
		return err
	}
	if n.ParentID != old.ParentID {
		if err := t.validateGroup(old.ParentID); err != nil {
			t.nodes[n.ID] = old
			return err
		}
	}
	return nil
}

// SetWeights rewrites the target weights of one sibling group. The weights
// map must cover exactly the group's members, and the new weights must sum
// to 100.
func (t *Tree) SetWeights(parentID int64, weights map[int64]decimal.Decimal) error {
	children := t.Children(parentID)
	if len(children) == 0 {
		return Invalidf("allocation sibling group under %d not found", parentID)
	}
	if len(weights) != len(children) {
		return Invalidf("weights must cover all %d siblings under %d", len(children), parentID)
	}
	saved := make(map[int64]AllocationNode, len(children))
	for _, c := range children {
		w, ok := weights[c.ID]
		if !ok {
			return Invalidf("weights missing sibling %d", c.ID)
		}
		saved[c.ID] = c
		c.TargetWeight = w
		t.nodes[c.ID] = c
	}
	if err := t.validateGroup(parentID); err != nil {
		for id, n := range saved {
			t.nodes[id] = n
		}
		return err
	}
	return nil
}

// Delete removes a node and its whole subtree, then renormalizes the
// surviving siblings so their weights sum to 100 again. It returns the ids
// of the removed nodes.
func (t *Tree) Delete(id int64) ([]int64, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, Invalidf("allocation node %d not found", id)
	}
	removed := t.SubtreeIDs(id)
	for _, rid := range removed {
		delete(t.nodes, rid)
	}
	t.rebalance(node.ParentID)
	return removed, t.validateGroup(node.ParentID)
}

// rebalance renormalizes a sibling group after a deletion. Each survivor
// keeps its share of the prior total, truncated to 4 decimals, with the last
// sibling absorbing the rounding remainder so the sum lands exactly on 100.
// A lone survivor gets 100. A prior total of zero or less falls back to an
// equal split with the same remainder rule.
func (t *Tree) rebalance(parentID int64) {
	siblings := t.Children(parentID)
	if len(siblings) == 0 {
		return
	}
	if len(siblings) == 1 {
		s := siblings[0]
		s.TargetWeight = hundred
		t.nodes[s.ID] = s
		return
	}

	total := decimal.Zero
	for _, s := range siblings {
		total = total.Add(s.TargetWeight)
	}

	if total.Sign() <= 0 {
		each := hundred.Div(decimal.NewFromInt(int64(len(siblings)))).RoundDown(4)
		assigned := decimal.Zero
		for i, s := range siblings {
			if i < len(siblings)-1 {
				s.TargetWeight = each
				assigned = assigned.Add(each)
			} else {
				s.TargetWeight = hundred.Sub(assigned)
			}
			t.nodes[s.ID] = s
		}
		return
	}

	assigned := decimal.Zero
	for i, s := range siblings {
		if i < len(siblings)-1 {
			normalized := s.TargetWeight.Div(total).Mul(hundred).RoundDown(4)
			s.TargetWeight = normalized
			assigned = assigned.Add(normalized)
		} else {
			s.TargetWeight = hundred.Sub(assigned)
		}
		t.nodes[s.ID] = s
	}
}

// GlobalWeight returns the node's effective share of the whole portfolio:
// its own weight multiplied down through every ancestor. A cycle or a
// dangling parent reference is corrupt storage, not bad input.
func (t *Tree) GlobalWeight(id int64) (decimal.Decimal, error) {
	node, ok := t.nodes[id]
	if !ok {
		return decimal.Zero, Invalidf("allocation node %d not found", id)
	}
	weight := node.TargetWeight
	visited := map[int64]bool{}
	for node.ParentID != 0 {
		if visited[node.ID] {
			return decimal.Zero, &DataIntegrityError{Msg: "allocation node cycle detected"}
		}
		visited[node.ID] = true
		parent, ok := t.nodes[node.ParentID]
		if !ok {
			return decimal.Zero, &DataIntegrityError{Msg: "allocation node parent missing"}
		}
		weight = weight.Mul(parent.TargetWeight).Div(hundred)
		node = parent
	}
	return weight, nil
}

// Path returns the node's ancestry as "root / ... / node".
func (t *Tree) Path(id int64) (string, error) {
	node, ok := t.nodes[id]
	if !ok {
		return "", Invalidf("allocation node %d not found", id)
	}
	names := []string{node.Name}
	visited := map[int64]bool{}
	for node.ParentID != 0 {
		if visited[node.ID] {
			return "", &DataIntegrityError{Msg: "allocation node cycle detected"}
		}
		visited[node.ID] = true
		parent, ok := t.nodes[node.ParentID]
		if !ok {
			return "", &DataIntegrityError{Msg: "allocation node parent missing"}
		}
		names = append([]string{parent.Name}, names...)
		node = parent
	}
	return strings.Join(names, " / "), nil
}

// DriftItem compares a leaf node's effective target against its actual
// weight of the portfolio.
type DriftItem struct {
	NodeID       int64
	Name         string
	TargetWeight decimal.Decimal
	ActualWeight decimal.Decimal
	DriftPct     decimal.Decimal
	Alerted      bool
}

// Drift computes per-leaf drift between target and actual allocation.
// actualByNode carries each leaf's market value in the reporting currency;
// totalAssets is the full portfolio value, including unbound holdings, so
// actual weights are shares of everything owned. Items come back sorted by
// absolute drift, largest first.
func (t *Tree) Drift(actualByNode map[int64]decimal.Decimal, totalAssets, threshold decimal.Decimal) ([]DriftItem, error) {
	var items []DriftItem
	for _, leaf := range t.Leaves() {
		target, err := t.GlobalWeight(leaf.ID)
		if err != nil {
			return nil, err
		}
		path, err := t.Path(leaf.ID)
		if err != nil {
			return nil, err
		}
		actual := decimal.Zero
		if totalAssets.Sign() > 0 {
			actual = actualByNode[leaf.ID].Div(totalAssets).Mul(hundred)
		}
		drift := actual.Sub(target)
		items = append(items, DriftItem{
			NodeID:       leaf.ID,
			Name:         path,
			TargetWeight: target.Round(4),
			ActualWeight: actual.Round(4),
			DriftPct:     drift.Round(4),
			Alerted:      drift.Abs().GreaterThanOrEqual(threshold),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DriftPct.Abs().GreaterThan(items[j].DriftPct.Abs())
	})
	return items, nil
}
