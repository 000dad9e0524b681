// Package display classifies computed display/position/float idents into
// block/inline and formatting-context semantics.
//
// The functions are pure : they never look at the document tree, only at
// the idents handed to them.
package display

import "github.com/benoitkugler/pagestyle/utils"

var (
	blockLevel = utils.NewSet(
		"block", "list-item", "table", "flex", "grid", "flow-root",
	)
	inlineLevel = utils.NewSet(
		"inline", "inline-block", "inline-table", "inline-flex", "inline-grid",
		"ruby",
	)
	internalTable = utils.NewSet(
		"table-row-group", "table-header-group", "table-footer-group",
		"table-row", "table-cell", "table-column-group", "table-column",
		"table-caption",
	)
)

// IsNone reports whether the element generates no box at all.
func IsNone(display string) bool { return display == "none" }

// IsBlock reports whether the element is block-level, after blockification
// of floated, absolutely positioned and root elements.
// See https://drafts.csswg.org/css-display/#transformations
func IsBlock(display, position, float string, isRoot bool) bool {
	if display == "" || display == "none" {
		return false
	}
	if isRoot || float == "left" || float == "right" ||
		position == "absolute" || position == "fixed" {
		return !internalTable.Has(display)
	}
	return blockLevel.Has(display) || internalTable.Has(display)
}

// IsInlineLevel reports whether the display value is inline-level.
func IsInlineLevel(display string) bool {
	return display == "" || inlineLevel.Has(display)
}

// EstablishesBFC reports whether the element establishes a new block
// formatting context.
// See https://drafts.csswg.org/css-break-3/#possible-breaks
func EstablishesBFC(display, position, float, overflow string) bool {
	return float == "left" || float == "right" ||
		position == "absolute" || position == "fixed" ||
		display == "flow-root" || display == "inline-block" ||
		display == "table-cell" || display == "table-caption" ||
		(overflow != "" && overflow != "visible")
}

// EstablishesCB reports whether the element establishes a containing block
// for its absolutely positioned descendants.
func EstablishesCB(position string) bool {
	switch position {
	case "relative", "absolute", "fixed":
		return true
	}
	return false
}
