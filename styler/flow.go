package styler

import (
	"math"
	"strings"

	"golang.org/x/net/html"

	pr "github.com/benoitkugler/pagestyle/css/properties"
)

// Flow is a named logical channel of content, created lazily on first
// reference. Its forced-break offset list is append-only and consumed by
// the pagination algorithm.
type Flow struct {
	Name string
	// Parent is the flow active where this flow was first declared.
	Parent string

	forcedBreakOffsets []int
}

// AddForcedBreakOffset registers a forced fragmentation point, in fixed
// offset coordinates.
func (f *Flow) AddForcedBreakOffset(offset int) {
	f.forcedBreakOffsets = append(f.forcedBreakOffsets, offset)
}

// ForcedBreakOffsets returns the registered fragmentation points, in
// registration order.
func (f *Flow) ForcedBreakOffsets() []int { return f.forcedBreakOffsets }

// FlowChunk is a contiguous run of source content assigned to a flow,
// starting at one element. Identity and start offset never change after
// discovery.
type FlowChunk struct {
	FlowName string
	Element  *html.Node
	// StartOffset is in full document order.
	StartOffset int

	Priority int
	// Linger is the number of pages the chunk content stays available on;
	// defaults to unbounded.
	Linger    int
	Exclusive bool
	// Repeated marks static content, rendered again on each target page.
	Repeated bool
	Last     bool

	// BreakBefore is the chunk's latent break memory : forced break-before
	// values of boxes opening the chunk are folded in here, whether or not
	// the originating box survives downstream skipping.
	BreakBefore string
}

// FlowListener is notified once per newly discovered chunk, in discovery
// order, which may differ from final document order under replay.
type FlowListener interface {
	OnFlowChunk(chunk *FlowChunk, flow *Flow)
}

// newFlowChunk reads the flow assignment properties of `style`.
// It returns nil when the element carries no flow-into declaration.
func newFlowChunk(style pr.Style, element *html.Node, offset int) *FlowChunk {
	name := style.GetIdent(pr.PFlowInto)
	if name == "" || name == "none" {
		return nil
	}
	chunk := &FlowChunk{
		FlowName:    name,
		Element:     element,
		StartOffset: offset,
		Linger:      math.MaxInt32,
	}
	for _, opt := range strings.Fields(style.GetIdent(pr.PFlowOptions)) {
		switch opt {
		case "exclusive":
			chunk.Exclusive = true
		case "static":
			chunk.Repeated = true
		case "last":
			chunk.Last = true
		}
	}
	if v := style.Get(pr.PFlowLinger); !v.IsNone() && v.Keyword != "none" {
		chunk.Linger = int(v.Num)
	}
	if v := style.Get(pr.PFlowPriority); !v.IsNone() {
		chunk.Priority = int(v.Num)
	}
	return chunk
}
