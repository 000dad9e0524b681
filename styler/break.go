// Combination of fragmentation directives across nested boxes, pseudo
// elements and flow boundaries.
//
// See https://drafts.csswg.org/css-break-3/#forced-breaks

package styler

import (
	pr "github.com/benoitkugler/pagestyle/css/properties"
	"github.com/benoitkugler/pagestyle/utils"
)

var (
	forcedBreakValues = utils.NewSet("page", "left", "right", "recto", "verso", "column", "region")
	spreadBreakValues = utils.NewSet("left", "right", "recto", "verso")
	avoidBreakValues  = utils.NewSet("avoid", "avoid-page", "avoid-column", "avoid-region")
)

// IsForcedBreakValue reports whether the directive mandates a fragmentation
// boundary regardless of available space.
func IsForcedBreakValue(v string) bool { return forcedBreakValues.Has(v) }

// IsSpreadBreakValue reports whether the directive targets a page side or
// spread face (left/right/recto/verso).
func IsSpreadBreakValue(v string) bool { return spreadBreakValues.Has(v) }

// IsAvoidBreakValue reports whether the directive discourages a boundary.
func IsAvoidBreakValue(v string) bool { return avoidBreakValues.Has(v) }

func isNoneBreakValue(v string) bool {
	return v == "" || v == "none" || v == "auto"
}

// ResolveEffectiveBreakValue folds two fragmentation directives that apply
// at the same point into one, `first` preceding `second` in document and
// nesting order.
//
// The chain below is asymmetric by construction (avoid-class is only
// considered once neither side is forced) : real documents depend on this
// exact tie-break, keep the order as is.
func ResolveEffectiveBreakValue(first, second string) string {
	// a spread directive always wins, later one first
	if IsSpreadBreakValue(second) {
		return second
	}
	if IsSpreadBreakValue(first) {
		return first
	}
	if IsForcedBreakValue(first) && IsForcedBreakValue(second) {
		// page beats region beats column, the later value winning ties
		if second == "column" {
			return first
		}
		if second == "region" && first == "page" {
			return first
		}
		return second
	}
	if IsForcedBreakValue(first) {
		return first
	}
	if IsForcedBreakValue(second) {
		return second
	}
	if IsAvoidBreakValue(second) {
		return second
	}
	if IsAvoidBreakValue(first) {
		return first
	}
	if !isNoneBreakValue(second) {
		return second
	}
	return first
}

// ConvertPageBreakAliases rewrites the legacy page-break-{before,after,inside}
// declarations to their break-* form, mapping `always` to `page`. It is
// registered as a pre-cascade hook, so the cascade only ever stores the
// modern form.
func ConvertPageBreakAliases(decl pr.Declaration) pr.Declaration {
	var name string
	switch decl.Name {
	case "page-break-before":
		name = "break-before"
	case "page-break-after":
		name = "break-after"
	case "page-break-inside":
		name = "break-inside"
	default:
		return decl
	}
	value := decl.Value
	if value.Keyword == "always" {
		value = pr.Ident("page")
	}
	return pr.Declaration{Name: name, Value: value, Important: decl.Important}
}
