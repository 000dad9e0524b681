// Value model shared by the declaration parser, the cascade and the styler.
//
// The styler core never interprets values beyond their keyword form : unit
// conversion and expression evaluation belong to the cascade collaborator.
package properties

import "strings"

// Value is the parsed value of one declaration.
// Keyword holds the lowercased ident (or the content of a quoted string),
// Raw the serialized source form. For dimensions and numbers, Num and Unit
// are filled as well.
type Value struct {
	Keyword string
	Raw     string
	Unit    string
	Num     float64
}

// Ident builds a keyword-only value.
func Ident(kw string) Value { return Value{Keyword: kw, Raw: kw} }

func (v Value) IsNone() bool { return v == Value{} }

func (v Value) String() string {
	if v.Raw != "" {
		return v.Raw
	}
	return v.Keyword
}

// Declaration is one validated `name: value` pair, ready for the cascade.
type Declaration struct {
	Name      string
	Value     Value
	Important bool
}

// Style is the cascaded style of one element or pseudo-element.
type Style map[string]Value

func (s Style) Get(name string) Value { return s[name] }

// GetIdent returns the keyword form of a property, or "" when unset.
func (s Style) GetIdent(name string) string { return s[name].Keyword }

func (s Style) Set(name string, v Value) { s[name] = v }

// ElementStyle groups the style of an element with the styles of its
// rendered pseudo-elements. Before and After are nil when no rule matched.
type ElementStyle struct {
	Style  Style
	Before Style
	After  Style
}

// Pseudo returns the style for the given pseudo-element name ("before" or
// "after"), or nil.
func (e ElementStyle) Pseudo(name string) Style {
	switch name {
	case "before":
		return e.Before
	case "after":
		return e.After
	}
	return nil
}

// Inherited lists the properties propagated from parent to child by the
// cascade.
// See https://www.w3.org/TR/CSS21/propidx.html
var Inherited = newSet(
	"border-collapse", "border-spacing", "caption-side", "color", "direction",
	"empty-cells", "font-family", "font-size", "font-style", "font-variant",
	"font-weight", "hyphens", "letter-spacing", "line-height", "list-style-image",
	"list-style-position", "list-style-type", "orphans", "quotes", "text-align",
	"text-indent", "text-transform", "visibility", "white-space", "widows",
	"word-spacing", "writing-mode",
)

// Validator groups, used by the styler to decide which property group
// triggers a root-level promotion.
var (
	BackgroundProps = newSet(
		"background", "background-attachment", "background-clip",
		"background-color", "background-image", "background-origin",
		"background-position", "background-repeat", "background-size",
	)
	ColumnProps = newSet(
		"columns", "column-count", "column-fill", "column-gap", "column-rule",
		"column-rule-color", "column-rule-style", "column-rule-width",
		"column-span", "column-width",
	)
)

// Flow assignment properties, consumed by the styler when discovering flows.
const (
	PFlowInto     = "flow-into"
	PFlowOptions  = "flow-options"
	PFlowLinger   = "flow-linger"
	PFlowPriority = "flow-priority"
)

type set map[string]struct{}

func newSet(values ...string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) Has(key string) bool {
	_, in := s[key]
	return in
}

// IsInherited reports whether the property propagates from parent to child.
func IsInherited(name string) bool { return Inherited.Has(name) }

// IsWhitespaceIgnorable reports whether a text node made of `text` may be
// skipped without breaking the "at block start" predicate, under the given
// white-space mode.
func IsWhitespaceIgnorable(whiteSpace, text string) bool {
	switch whiteSpace {
	case "pre", "pre-wrap":
		return false
	case "pre-line":
		return strings.TrimLeft(text, " \t") == ""
	default: // normal, nowrap
		return strings.TrimLeft(text, " \t\r\n\f") == ""
	}
}
