package styler

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/benoitkugler/pagestyle/document"
)

// DumpFlows renders the discovered flow registry as a tree, for debugging.
// Flows are attached under their parent flow; each chunk shows its start
// offset, flags and latent break-before.
func (s *Styler) DumpFlows() string {
	tree := treeprint.New()
	branches := map[string]treeprint.Tree{"": tree}

	// attach flows under their parents, resolving forward references
	var attach func(flow *Flow) treeprint.Tree
	attach = func(flow *Flow) treeprint.Tree {
		if br, in := branches[flow.Name]; in {
			return br
		}
		parent := branches[""]
		if p, in := s.flows[flow.Parent]; in && p != flow {
			parent = attach(p)
		}
		br := parent.AddBranch(fmt.Sprintf("flow %q (breaks at %v)", flow.Name, flow.forcedBreakOffsets))
		branches[flow.Name] = br
		return br
	}
	for _, flow := range s.flows {
		attach(flow)
	}

	for _, chunk := range s.chunks {
		br := branches[chunk.FlowName]
		label := fmt.Sprintf("chunk <%s> @%d", document.Tag(chunk.Element), chunk.StartOffset)
		if chunk.Exclusive {
			label += " exclusive"
		}
		if chunk.Repeated {
			label += " static"
		}
		if chunk.Last {
			label += " last"
		}
		if chunk.BreakBefore != "" {
			label += " break-before:" + chunk.BreakBefore
		}
		br.AddNode(label)
	}
	return tree.String()
}
