// Package styler implements the incremental styling core : a forward-only,
// on-demand traversal of a content tree producing cascaded styles, named
// content flows and forced fragmentation points, together with a compressed
// mapping between full-document offsets and primary-content-only offsets.
//
// Parsing of style syntax, cascade storage and value computation, display
// classification and the page fragmentation algorithm itself are external
// collaborators, consumed through the interfaces below.
package styler

import (
	"fmt"
	"math"

	"golang.org/x/net/html"

	"github.com/benoitkugler/pagestyle/css/parser"
	pr "github.com/benoitkugler/pagestyle/css/properties"
	"github.com/benoitkugler/pagestyle/document"
	"github.com/benoitkugler/pagestyle/utils"
)

// OffsetInfinity is returned by StyleUntil once the content tree is
// exhausted.
const OffsetInfinity = math.MaxInt

// AssertionLevel selects the amount of internal consistency checking.
// Failures are defects, never recoverable conditions : they panic.
type AssertionLevel uint8

const (
	AssertionsNone AssertionLevel = iota
	// AssertionsOffsets checks the traversal offsets against the external
	// offset index of the content tree, once per visited element.
	AssertionsOffsets
)

// Assertions is the active assertion level, resolved by the embedding
// application configuration.
var Assertions = AssertionsNone

// ContentTree is the read-only traversal surface consumed by the styler.
// The *document.Document type implements it.
type ContentTree interface {
	Root() *html.Node
	OffsetOf(n *html.Node) int
	NodeAtOffset(offset int) *html.Node
	NodeOffset(n *html.Node, innerOffset int, deep bool) int
	ElementByID(id string) *html.Node
}

// Cascade maintains specificity/origin/importance resolution and
// inheritance for the element stack driven by the styler.
// The *cascade.Cascade type implements it.
type Cascade interface {
	PushElement(node *html.Node, inline []pr.Declaration, offset int) pr.ElementStyle
	PopElement(node *html.Node)
	AddPreCascadeHook(h func(pr.Declaration) pr.Declaration)
	// FlowStyle resolves only the flow assignment properties of an element,
	// without full value computation nor element stack updates.
	FlowStyle(node *html.Node, inline []pr.Declaration) pr.Style
}

// Evaluator computes the used form of a resolved value (unit conversion,
// expression evaluation).
type Evaluator interface {
	Evaluate(v pr.Value, property string) pr.Value
}

// DeclarationParser validates raw declaration text before it reaches the
// cascade. The *parser.Parser type implements it.
type DeclarationParser interface {
	ParseDeclarationList(data []byte, source ...string) []pr.Declaration
}

// DocumentStyle receives the root-level promoted properties.
type DocumentStyle struct {
	WritingMode string
	Direction   string
	// Background holds the first assigned background property group.
	Background pr.Style
	// Columns holds the first assigned multi-column property group.
	Columns pr.Style
	// RootFontSize is the evaluated font-size of the root element, in px.
	RootFontSize pr.Value
}

// Options configures a styling session.
type Options struct {
	// PrimaryFlows names the flows treated as primary content; content
	// assigned elsewhere is compressed out of the slipped coordinate space.
	// Defaults to {"body"}.
	PrimaryFlows []string
	// RootFlowName is the flow owning content without explicit assignment.
	// Defaults to "body".
	RootFlowName string
	Listener     FlowListener
	Evaluator    Evaluator
	Parser       DeclarationParser
}

// Styler coordinates one styling session : it owns the traversal cursor,
// the slip map, the box stack, the style cache and the flow registry, all
// bound to one document. It is single-writer and must not be driven from
// two logical threads of control.
type Styler struct {
	tree      ContentTree
	cascade   Cascade
	evaluator Evaluator
	parser    DeclarationParser

	primaryFlows utils.Set
	rootFlowName string

	slipMap  SlipMap
	boxStack *BoxStack

	// traversal cursor : next node to enter, nil once exhausted
	current *html.Node
	offset  int

	styleMap map[int]pr.ElementStyle

	flows          map[string]*Flow
	chunks         []*FlowChunk
	chunkByElement map[*html.Node]*FlowChunk
	listener       FlowListener

	// active seek targets
	flowToReach string
	idToReach   string

	docStyle DocumentStyle
}

type identityEvaluator struct{}

func (identityEvaluator) Evaluate(v pr.Value, _ string) pr.Value { return v }

// New creates a styler over the given tree and cascade. The legacy
// page-break alias conversion is registered on the cascade as a pre-cascade
// hook.
func New(tree ContentTree, cascade Cascade, opts Options) *Styler {
	if opts.RootFlowName == "" {
		opts.RootFlowName = "body"
	}
	if opts.PrimaryFlows == nil {
		opts.PrimaryFlows = []string{opts.RootFlowName}
	}
	if opts.Evaluator == nil {
		opts.Evaluator = identityEvaluator{}
	}
	if opts.Parser == nil {
		opts.Parser = parser.NewParser(nil)
	}
	cascade.AddPreCascadeHook(ConvertPageBreakAliases)
	return &Styler{
		tree:           tree,
		cascade:        cascade,
		evaluator:      opts.Evaluator,
		parser:         opts.Parser,
		primaryFlows:   utils.NewSet(opts.PrimaryFlows...),
		rootFlowName:   opts.RootFlowName,
		boxStack:       NewBoxStack(),
		current:        tree.Root(),
		styleMap:       map[int]pr.ElementStyle{},
		flows:          map[string]*Flow{},
		chunkByElement: map[*html.Node]*FlowChunk{},
		listener:       opts.Listener,
	}
}

// DocumentStyle returns the root-level promoted properties gathered so far.
func (s *Styler) DocumentStyle() DocumentStyle { return s.docStyle }

// SlipMap exposes the fixed/slipped offset mapping built so far.
func (s *Styler) SlipMap() *SlipMap { return &s.slipMap }

// Flow returns the named flow, or nil if not discovered yet.
func (s *Styler) Flow(name string) *Flow { return s.flows[name] }

// StyleUntil advances the traversal, depth first, until the primary-only
// offset targetOffset+lookahead has been passed, and returns the fixed
// offset reached. Once the tree is exhausted it returns OffsetInfinity.
//
// The loop is iterative : arbitrarily deep trees do not grow the call
// stack. There is no suspension point; each call runs its seek to
// completion.
func (s *Styler) StyleUntil(targetOffset, lookahead int) int {
	target := targetOffset + lookahead
	for s.current != nil {
		if s.slipMap.MaxSlipped() > target {
			return s.offset
		}
		s.step()
	}
	return OffsetInfinity
}

// step enters the cursor node and moves the cursor to the next node in
// document order, leaving every element whose subtree is complete.
func (s *Styler) step() {
	node := s.current
	switch node.Type {
	case html.ElementNode:
		s.enterElement(node)
		if node.FirstChild != nil {
			s.current = node.FirstChild
			return
		}
	case html.TextNode:
		s.enterText(node)
	}
	// bubble up, closing finished elements
	for {
		if node.Type == html.ElementNode {
			s.leaveElement(node)
		}
		if node == s.tree.Root() {
			s.current = nil
			return
		}
		if sibling := node.NextSibling; sibling != nil {
			s.current = sibling
			return
		}
		node = node.Parent
	}
}

func (s *Styler) enterElement(node *html.Node) {
	offset := s.offset

	if Assertions >= AssertionsOffsets {
		if external := s.tree.OffsetOf(node); external != offset {
			panic(fmt.Sprintf("styler: offset mismatch for <%s>: traversal %d, index %d",
				document.Tag(node), offset, external))
		}
	}

	var inline []pr.Declaration
	if attr := document.Attr(node, "style"); attr != "" {
		inline = s.parser.ParseDeclarationList([]byte(attr), document.Tag(node))
	}

	style := s.cascade.PushElement(node, inline, offset)

	isRoot := node == s.tree.Root()
	chunk := newFlowChunk(style.Style, node, offset)
	if chunk == nil && isRoot {
		// content without explicit assignment belongs to the root flow
		chunk = &FlowChunk{FlowName: s.rootFlowName, Element: node, StartOffset: offset, Linger: math.MaxInt32}
	}
	if chunk != nil {
		var parent string
		if top := s.boxStack.Top(); top != nil && top.FlowChunk() != nil {
			parent = top.FlowChunk().FlowName
		}
		s.registerFlowChunk(chunk, parent)
	}

	box := s.boxStack.Push(style, offset, isRoot, chunk)

	if breakBefore := box.BreakBefore(); IsForcedBreakValue(breakBefore) {
		s.registerForcedBreak(box.FlowChunk(), s.boxStack.NearestBlockStartOffset(box))
	}

	if isRoot || document.IsBody(node) {
		s.promoteRootProperties(box, isRoot)
	}

	s.offset++
	s.extendSlipMap(box.FlowChunk())
	s.styleMap[offset] = style

	if s.idToReach != "" && document.Attr(node, "id") == s.idToReach {
		s.idToReach = ""
	}
}

func (s *Styler) leaveElement(node *html.Node) {
	s.cascade.PopElement(node)
	box, breakAfter := s.boxStack.Pop(s.offset)
	if IsForcedBreakValue(breakAfter) {
		s.registerForcedBreak(box.FlowChunk(), s.boxStack.NearestBlockStartOffset(box))
	}
}

func (s *Styler) enterText(node *html.Node) {
	s.boxStack.EncounteredTextNode(node.Data)
	s.offset += len(node.Data)
	var chunk *FlowChunk
	if top := s.boxStack.Top(); top != nil {
		chunk = top.FlowChunk()
	}
	s.extendSlipMap(chunk)
}

func (s *Styler) extendSlipMap(chunk *FlowChunk) {
	if chunk != nil && s.primaryFlows.Has(chunk.FlowName) {
		s.slipMap.AddStuckRange(s.offset)
	} else {
		s.slipMap.AddSlippedRange(s.offset)
	}
}

func (s *Styler) registerFlowChunk(chunk *FlowChunk, parentFlow string) {
	flow := s.flows[chunk.FlowName]
	if flow == nil {
		flow = &Flow{Name: chunk.FlowName, Parent: parentFlow}
		s.flows[chunk.FlowName] = flow
	}
	s.chunks = append(s.chunks, chunk)
	s.chunkByElement[chunk.Element] = chunk
	if s.listener != nil {
		s.listener.OnFlowChunk(chunk, flow)
	}
	if s.flowToReach == chunk.FlowName {
		s.flowToReach = ""
	}
}

func (s *Styler) registerForcedBreak(chunk *FlowChunk, offset int) {
	if chunk == nil {
		return
	}
	flow := s.flows[chunk.FlowName]
	if flow == nil {
		panic(fmt.Sprintf("styler: break registered against unknown flow %q", chunk.FlowName))
	}
	flow.AddForcedBreakOffset(offset)
}

// promoteRootProperties copies selected properties of the root (and
// body-equivalent) element to the document-level style record. Promotion is
// sticky per property group, except writing-mode and direction which are
// re-copied when the body is reached.
func (s *Styler) promoteRootProperties(box *Box, isRoot bool) {
	style := box.style.Style
	if v := style.GetIdent("writing-mode"); v != "" {
		s.docStyle.WritingMode = v
	}
	if v := style.GetIdent("direction"); v != "" {
		s.docStyle.Direction = v
	}
	if isRoot {
		if fs := style.Get("font-size"); !fs.IsNone() && s.docStyle.RootFontSize.IsNone() {
			s.docStyle.RootFontSize = box.ResolvedValue(s.evaluator, "font-size")
		}
	}
	if s.docStyle.Background == nil {
		if group := collectGroup(style, pr.BackgroundProps.Has); group != nil {
			s.docStyle.Background = group
		}
	}
	if s.docStyle.Columns == nil {
		if group := collectGroup(style, pr.ColumnProps.Has); group != nil {
			s.docStyle.Columns = group
		}
	}
}

func collectGroup(style pr.Style, in func(string) bool) pr.Style {
	var group pr.Style
	for name, v := range style {
		if in(name) {
			if group == nil {
				group = pr.Style{}
			}
			group[name] = v
		}
	}
	return group
}

// GetStyle returns the cached cascaded style of the element, advancing the
// traversal first if its offset (or, if deep, the last offset of its
// subtree) has not been reached yet.
func (s *Styler) GetStyle(node *html.Node, deep bool) pr.ElementStyle {
	target := s.tree.NodeOffset(node, 0, deep)
	for s.current != nil && s.offset <= target {
		s.step()
	}
	return s.styleMap[s.tree.OffsetOf(node)]
}

// lookaheadQuantum is the initial primary-offset window of the seek loops.
const lookaheadQuantum = 256

// StyleUntilFlowIsReached advances the traversal until the named flow is
// discovered, or the tree is exhausted. Flow assignments behind the cursor
// are replayed first.
func (s *Styler) StyleUntilFlowIsReached(name string) {
	if _, in := s.flows[name]; in {
		return
	}
	s.ReplayFlowElementsFromOffset(0)
	if _, in := s.flows[name]; in {
		return
	}
	s.flowToReach = name
	s.seek()
	s.flowToReach = ""
}

// StyleUntilIdIsReached advances the traversal until an element with the
// given id has been styled, or the tree is exhausted.
func (s *Styler) StyleUntilIdIsReached(id string) {
	if id == "" {
		return
	}
	// the element may already lie behind the cursor
	if node := s.tree.ElementByID(id); node != nil && s.tree.OffsetOf(node) < s.offset {
		return
	}
	s.idToReach = id
	s.seek()
	s.idToReach = ""
}

func (s *Styler) seek() {
	lookahead := lookaheadQuantum
	for s.flowToReach != "" || s.idToReach != "" {
		if s.StyleUntil(s.slipMap.MaxSlipped(), lookahead) == OffsetInfinity {
			return
		}
		lookahead *= 2
	}
}

// ReplayFlowElementsFromOffset re-walks the ancestor/sibling spine from the
// given offset up to the traversal cursor, re-resolving only the flow
// assignment properties : it discovers flow chunks lying behind a cursor
// that was advanced by an earlier, unrelated seek, without recomputing full
// cascaded styles.
func (s *Styler) ReplayFlowElementsFromOffset(offset int) {
	node := s.tree.NodeAtOffset(offset)
	if node == nil {
		return
	}
	// ancestors first, in tree order
	var ancestors []*html.Node
	for p := node; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			ancestors = append(ancestors, p)
		}
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		s.replayElement(ancestors[i])
	}
	// then forward along the sibling spine, up to the cursor
	for node != nil && s.tree.OffsetOf(node) < s.offset {
		if sibling := node.NextSibling; sibling != nil {
			node = sibling
			if node.Type == html.ElementNode {
				s.replayElement(node)
			}
			continue
		}
		node = node.Parent
	}
}

func (s *Styler) replayElement(node *html.Node) {
	if _, seen := s.chunkByElement[node]; seen {
		return
	}
	var inline []pr.Declaration
	if attr := document.Attr(node, "style"); attr != "" {
		inline = s.parser.ParseDeclarationList([]byte(attr), document.Tag(node))
	}
	flowStyle := s.cascade.FlowStyle(node, inline)
	if chunk := newFlowChunk(flowStyle, node, s.tree.OffsetOf(node)); chunk != nil {
		s.registerFlowChunk(chunk, s.replayParentFlow(node))
	}
}

// replayParentFlow resolves the flow active where a replayed element was
// declared, from the chunks of its ancestors.
func (s *Styler) replayParentFlow(node *html.Node) string {
	for p := node.Parent; p != nil; p = p.Parent {
		if chunk := s.chunkByElement[p]; chunk != nil {
			return chunk.FlowName
		}
	}
	return s.rootFlowName
}

// ResetFlowChunkStream replays every chunk discovered so far to the
// listener, in discovery order, then subscribes it to future discoveries.
func (s *Styler) ResetFlowChunkStream(listener FlowListener) {
	if listener != nil {
		for _, chunk := range s.chunks {
			listener.OnFlowChunk(chunk, s.flows[chunk.FlowName])
		}
	}
	s.listener = listener
}
