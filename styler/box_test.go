package styler

import (
	"testing"

	pr "github.com/benoitkugler/pagestyle/css/properties"
	"github.com/benoitkugler/pagestyle/utils/testutils"
)

func blockStyle() pr.ElementStyle {
	return pr.ElementStyle{Style: pr.Style{"display": pr.Ident("block")}}
}

func inlineStyle() pr.ElementStyle {
	return pr.ElementStyle{Style: pr.Style{"display": pr.Ident("inline")}}
}

func rootChunkAt(offset int) *FlowChunk {
	return &FlowChunk{FlowName: "body", StartOffset: offset}
}

func TestBoxStackDiscipline(t *testing.T) {
	stack := NewBoxStack()
	chunk := rootChunkAt(0)

	root := stack.Push(blockStyle(), 0, true, chunk)
	inner := stack.Push(blockStyle(), 1, false, nil)
	leaf := stack.Push(inlineStyle(), 2, false, nil)

	testutils.AssertEqual(t, stack.Depth(), 3)
	testutils.AssertEqual(t, stack.Top(), leaf)

	got, _ := stack.Pop(3)
	testutils.AssertEqual(t, got, leaf)
	got, _ = stack.Pop(3)
	testutils.AssertEqual(t, got, inner)
	got, _ = stack.Pop(3)
	testutils.AssertEqual(t, got, root)
	testutils.AssertEqual(t, stack.Depth(), 0)
}

func TestHasBoxIsWriteOnce(t *testing.T) {
	style := blockStyle()
	box := newBox(style, 0, false, rootChunkAt(0), true, true, true)
	testutils.AssertEqual(t, box.HasBox(), true)
	testutils.AssertEqual(t, box.IsBlock(), true)

	// later style mutations must not be observed
	style.Style.Set("display", pr.Ident("none"))
	testutils.AssertEqual(t, box.HasBox(), true)
	testutils.AssertEqual(t, box.IsBlock(), true)
}

type countingEvaluator struct{ calls int }

func (e *countingEvaluator) Evaluate(v pr.Value, _ string) pr.Value {
	e.calls++
	return pr.Value{Num: v.Num * 2, Unit: "px"}
}

func TestResolvedValueMemoized(t *testing.T) {
	style := pr.ElementStyle{Style: pr.Style{
		"display":   pr.Ident("block"),
		"font-size": pr.Value{Num: 8, Unit: "pt", Raw: "8pt"},
	}}
	box := newBox(style, 0, false, rootChunkAt(0), true, true, true)

	ev := &countingEvaluator{}
	first := box.ResolvedValue(ev, "font-size")
	testutils.AssertEqual(t, first, pr.Value{Num: 16, Unit: "px"})

	// later style mutations are not observed, the evaluator runs once
	style.Style.Set("font-size", pr.Value{Num: 100, Unit: "pt"})
	testutils.AssertEqual(t, box.ResolvedValue(ev, "font-size"), first)
	testutils.AssertEqual(t, ev.calls, 1)

	// other properties get their own slot
	box.ResolvedValue(ev, "line-height")
	testutils.AssertEqual(t, ev.calls, 2)
}

func TestHasBoxUndisplayedAncestor(t *testing.T) {
	stack := NewBoxStack()
	stack.Push(blockStyle(), 0, true, rootChunkAt(0))
	hidden := pr.ElementStyle{Style: pr.Style{"display": pr.Ident("none")}}
	stack.Push(hidden, 1, false, nil)
	child := stack.Push(blockStyle(), 2, false, nil)

	testutils.AssertEqual(t, child.HasBox(), false)
	testutils.AssertEqual(t, child.IsBlock(), false)
}

func TestBeforePseudoBreakFold(t *testing.T) {
	chunk := rootChunkAt(4)
	style := pr.ElementStyle{
		Style: pr.Style{"display": pr.Ident("block")},
		Before: pr.Style{
			"content":      pr.Ident("note"),
			"break-before": pr.Ident("page"),
		},
	}
	box := newBox(style, 4, false, chunk, true, true, true)

	testutils.AssertEqual(t, box.BreakBefore(), "page")
	// the box opens its chunk: the chunk remembers the forced break
	testutils.AssertEqual(t, chunk.BreakBefore, "page")
}

func TestBeforePseudoWithoutContent(t *testing.T) {
	style := pr.ElementStyle{
		Style:  pr.Style{"display": pr.Ident("block")},
		Before: pr.Style{"break-before": pr.Ident("page")},
	}
	box := newBox(style, 0, false, rootChunkAt(0), true, true, true)
	if box.beforeBox != nil {
		t.Fatal("expected no before box without content")
	}
	testutils.AssertEqual(t, box.BreakBefore(), "")
}

func TestInlineBoxHasNoBreakValue(t *testing.T) {
	style := pr.ElementStyle{Style: pr.Style{
		"display":      pr.Ident("inline"),
		"break-before": pr.Ident("page"),
		"break-after":  pr.Ident("page"),
	}}
	box := newBox(style, 0, false, rootChunkAt(0), true, true, true)
	testutils.AssertEqual(t, box.BreakValue("before"), "")
	testutils.AssertEqual(t, box.BreakValue("after"), "")
}

func TestAfterPseudoBreakAfter(t *testing.T) {
	stack := NewBoxStack()
	stack.Push(blockStyle(), 0, true, rootChunkAt(0))
	style := pr.ElementStyle{
		Style: pr.Style{
			"display":     pr.Ident("block"),
			"break-after": pr.Ident("column"),
		},
		After: pr.Style{
			"content":     pr.Ident("end"),
			"break-after": pr.Ident("page"),
		},
	}
	stack.Push(style, 1, false, nil)
	box, breakAfter := stack.Pop(2)

	if box.afterBox == nil {
		t.Fatal("expected an after box")
	}
	// resolve(after-pseudo break-after, own break-after) : page wins
	testutils.AssertEqual(t, breakAfter, "page")
}

func TestEncounteredTextNode(t *testing.T) {
	stack := NewBoxStack()
	stack.Push(blockStyle(), 0, true, rootChunkAt(0))

	stack.EncounteredTextNode("   \n  ")
	testutils.AssertEqual(t, stack.AtBlockStart(), true)
	testutils.AssertEqual(t, stack.AtFlowStart(), true)

	stack.EncounteredTextNode("  hello")
	testutils.AssertEqual(t, stack.AtBlockStart(), false)
	testutils.AssertEqual(t, stack.AtFlowStart(), false)
}

func TestEncounteredTextNodePre(t *testing.T) {
	stack := NewBoxStack()
	style := pr.ElementStyle{Style: pr.Style{
		"display":     pr.Ident("block"),
		"white-space": pr.Ident("pre"),
	}}
	stack.Push(style, 0, true, rootChunkAt(0))

	// under pre, whitespace is significant
	stack.EncounteredTextNode("   ")
	testutils.AssertEqual(t, stack.AtBlockStart(), false)
}

func TestFlowTransitionSavesPredicates(t *testing.T) {
	stack := NewBoxStack()
	stack.Push(blockStyle(), 0, true, rootChunkAt(0))
	stack.Push(blockStyle(), 1, false, nil)
	stack.EncounteredTextNode("content")
	testutils.AssertEqual(t, stack.AtBlockStart(), false)

	// entering a new flow resets the predicates...
	note := &FlowChunk{FlowName: "footnote", StartOffset: 9}
	stack.Push(blockStyle(), 9, false, note)
	testutils.AssertEqual(t, stack.AtBlockStart(), true)
	testutils.AssertEqual(t, stack.AtFlowStart(), true)
	stack.EncounteredTextNode("note text")
	testutils.AssertEqual(t, stack.AtFlowStart(), false)

	// ...and leaving it restores them
	stack.Pop(11)
	testutils.AssertEqual(t, stack.AtBlockStart(), false)
	testutils.AssertEqual(t, stack.AtFlowStart(), false)
}

func TestNearestBlockStartOffset(t *testing.T) {
	stack := NewBoxStack()
	chunk := rootChunkAt(0)
	stack.Push(blockStyle(), 0, true, chunk)
	stack.Push(blockStyle(), 1, false, nil)
	inner := stack.Push(blockStyle(), 2, false, nil)

	// nothing rendered yet: the anchor walks up to the flow root
	testutils.AssertEqual(t, stack.NearestBlockStartOffset(inner), 0)

	stack.Pop(3)
	stack.EncounteredTextNode("text")
	late := stack.Push(blockStyle(), 7, false, nil)
	// content precedes it: the box anchors at its own offset
	testutils.AssertEqual(t, stack.NearestBlockStartOffset(late), 7)
}

func TestNearestBlockStartAcrossFlows(t *testing.T) {
	stack := NewBoxStack()
	stack.Push(blockStyle(), 0, true, rootChunkAt(0))
	note := &FlowChunk{FlowName: "footnote", StartOffset: 3}
	noteRoot := stack.Push(blockStyle(), 3, false, note)
	inner := stack.Push(blockStyle(), 4, false, nil)

	// the walk stops at the flow root, never crossing into "body"
	testutils.AssertEqual(t, stack.NearestBlockStartOffset(inner), 3)
	testutils.AssertEqual(t, stack.NearestBlockStartOffset(noteRoot), 3)
}
