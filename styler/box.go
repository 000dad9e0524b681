package styler

import (
	"fmt"

	"github.com/benoitkugler/pagestyle/css/display"
	pr "github.com/benoitkugler/pagestyle/css/properties"
)

// boolCache is a write-once memoized boolean.
type boolCache struct {
	computed bool
	value    bool
}

// Box carries the per-node state of one visited element (or pseudo-element) :
// the cascaded style snapshot, block-ness and displayed-ness caches, the
// generated before/after boxes and the folded break values.
//
// HasBox and IsBlock are computed at most once and never re-evaluated, even
// if ancestor displayed-ness would have changed afterwards.
type Box struct {
	style     pr.ElementStyle
	offset    int
	isRoot    bool
	isPseudo  bool
	flowChunk *FlowChunk

	// frozen at construction
	atBlockStart bool
	atFlowStart  bool

	beforeBox *Box
	afterBox  *Box

	// memoized effective break-before, before-pseudo folded in
	breakBefore string

	parentDisplayed bool
	hasBox          boolCache
	isBlock         boolCache
	resolved        map[string]pr.Value
}

func newBox(style pr.ElementStyle, offset int, isRoot bool, chunk *FlowChunk,
	parentDisplayed, atBlockStart, atFlowStart bool,
) *Box {
	b := &Box{
		style:           style,
		offset:          offset,
		isRoot:          isRoot,
		flowChunk:       chunk,
		atBlockStart:    atBlockStart,
		atFlowStart:     atFlowStart,
		parentDisplayed: parentDisplayed,
	}

	if b.HasBox() {
		if before := style.Before; hasPseudoContent(before) {
			b.beforeBox = newPseudoBox(before, offset, chunk, atBlockStart, atFlowStart)
		}
	}

	b.breakBefore = b.BreakValue("before")
	if b.beforeBox != nil {
		b.breakBefore = ResolveEffectiveBreakValue(b.breakBefore, b.beforeBox.breakBefore)
	}
	// a forced break opening a flow chunk is remembered by the chunk itself,
	// independently of whether this box survives downstream skipping
	if chunk != nil && offset == chunk.StartOffset && IsForcedBreakValue(b.breakBefore) {
		chunk.BreakBefore = ResolveEffectiveBreakValue(chunk.BreakBefore, b.breakBefore)
	}
	return b
}

func newPseudoBox(style pr.Style, offset int, chunk *FlowChunk, atBlockStart, atFlowStart bool) *Box {
	b := &Box{
		style:           pr.ElementStyle{Style: style},
		offset:          offset,
		isPseudo:        true,
		flowChunk:       chunk,
		atBlockStart:    atBlockStart,
		atFlowStart:     atFlowStart,
		parentDisplayed: true,
	}
	b.breakBefore = style.GetIdent("break-before")
	return b
}

// hasPseudoContent reports whether the pseudo style generates content.
func hasPseudoContent(style pr.Style) bool {
	if style == nil {
		return false
	}
	v := style.Get("content")
	return !v.IsNone() && v.Keyword != "none" && v.Keyword != "normal"
}

// HasBox reports whether the node generates a box at all : its own display
// must not be none, and every ancestor must be displayed. Write-once.
func (b *Box) HasBox() bool {
	if !b.hasBox.computed {
		b.hasBox.computed = true
		b.hasBox.value = b.parentDisplayed && !display.IsNone(b.displayValue())
	}
	return b.hasBox.value
}

// IsBlock reports whether the box is block-level. Write-once.
func (b *Box) IsBlock() bool {
	if !b.isBlock.computed {
		b.isBlock.computed = true
		style := b.style.Style
		b.isBlock.value = b.HasBox() && display.IsBlock(
			b.displayValue(),
			style.GetIdent("position"),
			style.GetIdent("float"),
			b.isRoot,
		)
	}
	return b.isBlock.value
}

func (b *Box) displayValue() string {
	d := b.style.Style.GetIdent("display")
	if d == "" && b.isPseudo {
		d = "inline"
	}
	return d
}

// BreakValue returns the raw break-{edge} value, only for block boxes :
// inline boxes never force fragmentation boundaries.
func (b *Box) BreakValue(edge string) string {
	if !b.IsBlock() {
		return ""
	}
	return b.style.Style.GetIdent("break-" + edge)
}

// BreakBefore is the memoized effective break-before of the box, with the
// before-pseudo contribution folded in.
func (b *Box) BreakBefore() string { return b.breakBefore }

// Offset is the start offset of the box, in full document order.
func (b *Box) Offset() int { return b.offset }

// FlowChunk is the chunk owning the box content.
func (b *Box) FlowChunk() *FlowChunk { return b.flowChunk }

// buildAfterPseudoElementBox builds the ::after box once the end offset of
// the element is known, at pop time. The box is retained only if its
// resolved content is non trivial.
func (b *Box) buildAfterPseudoElementBox(offset int, atBlockStart, atFlowStart bool) {
	if !b.HasBox() {
		return
	}
	if after := b.style.After; hasPseudoContent(after) {
		b.afterBox = newPseudoBox(after, offset, b.flowChunk, atBlockStart, atFlowStart)
	}
}

// ResolvedValue computes the used form of a property through the evaluator,
// memoized per box.
func (b *Box) ResolvedValue(ev Evaluator, property string) pr.Value {
	if v, in := b.resolved[property]; in {
		return v
	}
	v := ev.Evaluate(b.style.Style.Get(property), property)
	if b.resolved == nil {
		b.resolved = map[string]pr.Value{}
	}
	b.resolved[property] = v
	return v
}

// isFlowRoot reports whether the box is the root of its flow : the document
// root, or the element opening its flow chunk.
func (b *Box) isFlowRoot() bool {
	return b.isRoot || (b.flowChunk != nil && b.offset == b.flowChunk.StartOffset)
}

// BoxStack tracks the nesting of boxes along the traversal, together with
// the "at block start" / "at flow start" predicates. The predicate pair is
// saved when a flow-boundary transition is pushed, and restored on the
// matching pop.
type BoxStack struct {
	stack []*Box
	saved [][2]bool

	atBlockStart bool
	atFlowStart  bool
}

func NewBoxStack() *BoxStack {
	return &BoxStack{atBlockStart: true, atFlowStart: true}
}

// Top returns the innermost box, or nil.
func (s *BoxStack) Top() *Box {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of open boxes.
func (s *BoxStack) Depth() int { return len(s.stack) }

// AtBlockStart reports whether no content has been produced since the last
// open block edge.
func (s *BoxStack) AtBlockStart() bool { return s.atBlockStart }

// AtFlowStart reports whether no content has been produced since the current
// flow chunk was opened.
func (s *BoxStack) AtFlowStart() bool { return s.atFlowStart }

// Push enters an element. A non-nil newFlowChunk marks a flow-boundary
// transition; otherwise the element stays in the flow of the current top.
func (s *BoxStack) Push(style pr.ElementStyle, offset int, isRoot bool, newFlowChunk *FlowChunk) *Box {
	top := s.Top()
	chunk := newFlowChunk
	if chunk == nil && top != nil {
		chunk = top.flowChunk
	}
	flowTransition := top != nil && newFlowChunk != nil && newFlowChunk != top.flowChunk
	if flowTransition {
		s.saved = append(s.saved, [2]bool{s.atBlockStart, s.atFlowStart})
		s.atBlockStart, s.atFlowStart = true, true
	}

	parentDisplayed := true
	for _, b := range s.stack {
		parentDisplayed = parentDisplayed && b.HasBox()
	}

	box := newBox(style, offset, isRoot, chunk, parentDisplayed, s.atBlockStart, s.atFlowStart)
	s.stack = append(s.stack, box)

	// the predicates may only be turned on here; they are cleared by
	// encountered content and by pops
	if box.HasBox() && box.beforeBox == nil {
		if box.IsBlock() {
			s.atBlockStart = true
		}
		if box.atFlowStart {
			s.atFlowStart = true
		}
	}
	return box
}

// Pop leaves the innermost box, now that its end offset is known, builds its
// after-pseudo box and returns the box together with its effective
// break-after value.
func (s *BoxStack) Pop(offset int) (*Box, string) {
	n := len(s.stack)
	if n == 0 {
		panic("styler: unbalanced box pop")
	}
	box := s.stack[n-1]
	s.stack = s.stack[:n-1]

	box.buildAfterPseudoElementBox(offset, s.atBlockStart, s.atFlowStart)

	// an after-pseudo break-before at flow start still belongs to the chunk
	if s.atFlowStart && box.afterBox != nil && box.flowChunk != nil {
		if bb := box.afterBox.breakBefore; IsForcedBreakValue(bb) {
			box.flowChunk.BreakBefore = ResolveEffectiveBreakValue(box.flowChunk.BreakBefore, bb)
		}
	}

	breakAfter := box.BreakValue("after")
	if box.afterBox != nil {
		breakAfter = ResolveEffectiveBreakValue(box.afterBox.style.Style.GetIdent("break-after"), breakAfter)
	}

	top := s.Top()
	if top != nil && box.flowChunk != top.flowChunk {
		m := len(s.saved) - 1
		if m < 0 {
			panic("styler: flow transition pop without saved state")
		}
		s.atBlockStart, s.atFlowStart = s.saved[m][0], s.saved[m][1]
		s.saved = s.saved[:m]
	} else if box.HasBox() {
		s.atBlockStart, s.atFlowStart = false, false
	}
	return box, breakAfter
}

// NearestBlockStartOffset resolves the offset a break value of `box` anchors
// to : the box's own offset when content already precedes it, else the
// offset of the outermost enclosing block start within the same flow.
func (s *BoxStack) NearestBlockStartOffset(box *Box) int {
	if !box.atBlockStart {
		return box.offset
	}
	i := len(s.stack) - 1
	if i >= 0 && s.stack[i] == box {
		i--
	}
	for ; i >= 0; i-- {
		ancestor := s.stack[i]
		if ancestor.flowChunk != box.flowChunk || !ancestor.atBlockStart {
			return ancestor.offset
		}
		if ancestor.isFlowRoot() {
			return ancestor.offset
		}
	}
	if box.isFlowRoot() {
		return box.offset
	}
	panic(fmt.Sprintf("styler: no flow boundary above box at offset %d", box.offset))
}

// EncounteredTextNode clears the block/flow start predicates when actual
// content shows up, unless the text is ignorable whitespace under the
// current white-space mode.
func (s *BoxStack) EncounteredTextNode(text string) {
	if !(s.atBlockStart || s.atFlowStart) {
		return
	}
	top := s.Top()
	if top == nil || !top.HasBox() {
		return
	}
	whiteSpace := top.style.Style.GetIdent("white-space")
	if whiteSpace == "" {
		whiteSpace = "normal"
	}
	if pr.IsWhitespaceIgnorable(whiteSpace, text) {
		return
	}
	s.atBlockStart, s.atFlowStart = false, false
}
