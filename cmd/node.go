package cmd

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/smoky96/portfolio"
	"github.com/smoky96/portfolio/renderer"
)

// nodeAddCmd inserts an allocation target node.
type nodeAddCmd struct {
	parent int64
	name   string
	weight string
	order  int
}

func (*nodeAddCmd) Name() string     { return "node-add" }
func (*nodeAddCmd) Synopsis() string { return "add an allocation target node" }
func (*nodeAddCmd) Usage() string {
	return `pft node-add -name <name> -w <weight> [-parent <id>]

  Adds a node to the allocation tree. The weights of a sibling group must
  sum to 100, so add a full group before expecting validation to pass, or
  rebalance with node-set.
`
}

func (c *nodeAddCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.parent, "parent", 0, "Parent node id, 0 for a top level node")
	f.StringVar(&c.name, "name", "", "Node name")
	f.StringVar(&c.weight, "w", "", "Target weight within the sibling group, in percent")
	f.IntVar(&c.order, "order", 0, "Display order within the group")
}

func (c *nodeAddCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	weight, err := decimal.NewFromString(c.weight)
	if err != nil {
		return fail(fmt.Errorf("invalid weight %q", c.weight))
	}
	var id int64
	for _, n := range s.System.Tree.Nodes() {
		if n.ID > id {
			id = n.ID
		}
	}
	id++

	node := portfolio.AllocationNode{
		ID:           id,
		ParentID:     c.parent,
		Name:         c.name,
		TargetWeight: weight,
		OrderIndex:   c.order,
	}
	moved, err := s.System.AddNode(node)
	if err != nil {
		return fail(err)
	}
	if err := s.DB.SaveTree(s.System.Tree); err != nil {
		return fail(err)
	}
	if len(moved) > 0 {
		// Bindings on the parent followed onto the new leaf.
		if err := s.SaveLedger(nil); err != nil {
			return fail(err)
		}
	}
	fmt.Printf("Added node #%d %q (%s%%)\n", node.ID, node.Name, node.TargetWeight)
	for _, inst := range moved {
		fmt.Printf("Moved %s binding to node #%d\n", inst.Symbol, node.ID)
	}
	return subcommands.ExitSuccess
}

// nodeSetCmd rewrites the weights of one sibling group.
type nodeSetCmd struct {
	parent  int64
	weights string
}

func (*nodeSetCmd) Name() string     { return "node-set" }
func (*nodeSetCmd) Synopsis() string { return "rewrite the weights of a sibling group" }
func (*nodeSetCmd) Usage() string {
	return `pft node-set [-parent <id>] -w <id=weight,id=weight,...>

  Rewrites the target weights of one sibling group. The weights must cover
  exactly the group's members and sum to 100.
`
}

func (c *nodeSetCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.parent, "parent", 0, "Parent node id, 0 for the top level group")
	f.StringVar(&c.weights, "w", "", "Comma separated id=weight pairs")
}

func (c *nodeSetCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	weights := make(map[int64]decimal.Decimal)
	for _, pair := range strings.Split(c.weights, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, w, found := strings.Cut(pair, "=")
		if !found {
			return fail(fmt.Errorf("invalid weight pair %q, want id=weight", pair))
		}
		nodeID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return fail(fmt.Errorf("invalid node id %q", id))
		}
		weight, err := decimal.NewFromString(strings.TrimSpace(w))
		if err != nil {
			return fail(fmt.Errorf("invalid weight %q", w))
		}
		weights[nodeID] = weight
	}

	if err := s.System.Tree.SetWeights(c.parent, weights); err != nil {
		return fail(err)
	}
	if err := s.DB.SaveTree(s.System.Tree); err != nil {
		return fail(err)
	}
	fmt.Printf("Updated %d weight(s)\n", len(weights))
	return subcommands.ExitSuccess
}

// nodeMvCmd moves a node under a new parent.
type nodeMvCmd struct {
	id     int64
	parent int64
	weight string
}

func (*nodeMvCmd) Name() string     { return "node-mv" }
func (*nodeMvCmd) Synopsis() string { return "move a node under a new parent" }
func (*nodeMvCmd) Usage() string {
	return `pft node-mv -id <id> -parent <id> [-w <weight>]

  Moves a node, and its whole subtree, under a new parent. A node cannot
  move under itself or one of its descendants. Both the old and the new
  sibling groups must still sum to 100, so pass -w when the node's weight
  has to change, and rebalance the groups with node-set afterwards.
`
}

func (c *nodeMvCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Node id to move")
	f.Int64Var(&c.parent, "parent", 0, "New parent node id, 0 for the top level")
	f.StringVar(&c.weight, "w", "", "New target weight within the new group, in percent")
}

func (c *nodeMvCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	node, ok := s.System.Tree.Node(c.id)
	if !ok {
		return fail(fmt.Errorf("unknown node %d", c.id))
	}
	node.ParentID = c.parent
	if c.weight != "" {
		weight, err := decimal.NewFromString(c.weight)
		if err != nil {
			return fail(fmt.Errorf("invalid weight %q", c.weight))
		}
		node.TargetWeight = weight
	}
	if err := s.System.Tree.Update(node); err != nil {
		return fail(err)
	}
	if err := s.DB.SaveTree(s.System.Tree); err != nil {
		return fail(err)
	}
	fmt.Printf("Moved node #%d under #%d\n", node.ID, node.ParentID)
	return subcommands.ExitSuccess
}

// nodeRmCmd deletes a node and its subtree, rebalancing the survivors.
type nodeRmCmd struct {
	id int64
}

func (*nodeRmCmd) Name() string     { return "node-rm" }
func (*nodeRmCmd) Synopsis() string { return "delete an allocation node and its subtree" }
func (*nodeRmCmd) Usage() string {
	return `pft node-rm -id <node>

  Deletes a node and everything under it. The surviving siblings are
  renormalized to 100.
`
}

func (c *nodeRmCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Node id to delete")
}

func (c *nodeRmCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	removed, err := s.System.DeleteNode(c.id)
	if err != nil {
		return fail(err)
	}
	if err := s.DB.SaveTree(s.System.Tree); err != nil {
		return fail(err)
	}
	// Instruments bound inside the subtree were detached.
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted %d node(s)\n", len(removed))
	return subcommands.ExitSuccess
}

// bindCmd attaches an instrument to an allocation leaf.
type bindCmd struct {
	instrument string
	node       int64
}

func (*bindCmd) Name() string     { return "bind" }
func (*bindCmd) Synopsis() string { return "bind an instrument to an allocation leaf" }
func (*bindCmd) Usage() string {
	return `pft bind -i <symbol> -node <id>

  Binds an instrument to an allocation leaf so its market value counts
  toward that leaf's actual weight. Node 0 detaches.
`
}

func (c *bindCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.instrument, "i", "", "Instrument symbol")
	f.Int64Var(&c.node, "node", 0, "Allocation leaf id, 0 to detach")
}

func (c *bindCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	inst, ok := s.System.Ledger.InstrumentBySymbol(strings.ToUpper(c.instrument))
	if !ok {
		return fail(fmt.Errorf("unknown instrument %q", c.instrument))
	}
	if err := s.System.BindInstrument(inst.ID, c.node); err != nil {
		return fail(err)
	}
	if err := s.SaveLedger(nil); err != nil {
		return fail(err)
	}
	if c.node == 0 {
		fmt.Printf("Detached %s\n", inst.Symbol)
	} else {
		fmt.Printf("Bound %s to node #%d\n", inst.Symbol, c.node)
	}
	return subcommands.ExitSuccess
}

// treeCmd shows the allocation tree with global weights.
type treeCmd struct{}

func (*treeCmd) Name() string     { return "tree" }
func (*treeCmd) Synopsis() string { return "display the allocation tree" }
func (*treeCmd) Usage() string {
	return `pft tree

  Displays the allocation tree with each node's local and global weight.
`
}

func (*treeCmd) SetFlags(*flag.FlagSet) {}

func (c *treeCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenSession()
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	printMarkdown(renderer.TreeMarkdown(s.System.Tree))
	return subcommands.ExitSuccess
}
