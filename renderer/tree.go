package renderer

import (
	"strings"

	"github.com/smoky96/portfolio"
)

// TreeMarkdown renders the allocation targets with each node's local and
// global weight.
func TreeMarkdown(t *portfolio.Tree) string {
	var b strings.Builder
	h1(&b, "Allocation Targets")

	nodes := t.Nodes()
	if len(nodes) == 0 {
		b.WriteString("No allocation targets defined.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		path, err := t.Path(n.ID)
		if err != nil {
			path = n.Name
		}
		global := "?"
		if g, err := t.GlobalWeight(n.ID); err == nil {
			global = pct(g)
		}
		kind := "group"
		if t.IsLeaf(n.ID) {
			kind = "leaf"
		}
		rows = append(rows, []string{path, kind, pct(n.TargetWeight), global})
	}
	table(&b, []string{"Node", "Kind", "Weight", "Global"}, rows)
	return b.String()
}
