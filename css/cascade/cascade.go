// Package cascade resolves the winning declared value of each property among
// matching rules, by origin, importance, specificity and order, and maintains
// inheritance along the element stack driven by the styler.
//
// Selector matching relies on the cascadia engine.
package cascade

import (
	_ "embed"
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/benoitkugler/pagestyle/css/parser"
	pr "github.com/benoitkugler/pagestyle/css/properties"
	"github.com/benoitkugler/pagestyle/logger"
)

// Origin of a stylesheet, in growing normal-declaration precedence.
type Origin uint8

const (
	OriginUserAgent Origin = iota
	OriginUser
	OriginAuthor
)

// declarationPrecedence ranks the (origin, importance) pairs.
// See http://www.w3.org/TR/CSS21/cascade.html#cascading-order
func declarationPrecedence(origin Origin, important bool) uint8 {
	switch {
	case origin == OriginUserAgent && !important:
		return 1
	case origin == OriginUser && !important:
		return 2
	case origin == OriginAuthor && !important:
		return 3
	case origin == OriginAuthor: // and important
		return 4
	case origin == OriginUser: // and important
		return 5
	default: // user agent and important
		return 6
	}
}

type weight struct {
	precedence  uint8
	specificity cascadia.Specificity
	order       int
}

func (w weight) isNone() bool { return w == weight{} }

func (w weight) Less(other weight) bool {
	if w.precedence != other.precedence {
		return w.precedence < other.precedence
	}
	if w.specificity != other.specificity {
		return w.specificity.Less(other.specificity)
	}
	return w.order < other.order
}

// inline style attributes carry author origin and maximal specificity
var inlineSpecificity = cascadia.Specificity{1e5, 1e5, 1e5}

type rule struct {
	sel    cascadia.Sel
	pseudo string // "", "before" or "after"
	decls  []pr.Declaration
	origin Origin
	order  int
}

type entry struct {
	node  *html.Node
	style pr.ElementStyle
}

// Hook rewrites one declaration before it enters the cascade.
type Hook = func(pr.Declaration) pr.Declaration

// Cascade holds the stylesheet rules and the element stack of one styling
// session.
type Cascade struct {
	rules []rule
	stack []entry
	hooks []Hook
	order int
}

// New creates a cascade loaded with the user-agent stylesheet.
func New() *Cascade {
	c := &Cascade{}
	c.mustAddSheet(uaSheet, OriginUserAgent)
	return c
}

//go:embed ua.css
var uaCSS string

var uaSheet = parser.NewParser(nil).ParseRules([]byte(uaCSS), "ua.css")

// AddPreCascadeHook registers a rewrite applied once per raw declaration
// before it reaches the cascade.
func (c *Cascade) AddPreCascadeHook(h Hook) { c.hooks = append(c.hooks, h) }

// AddSheet registers parsed rules under the given origin. Selectors that
// cascadia rejects are skipped with a warning.
func (c *Cascade) AddSheet(rules []parser.Rule, origin Origin) {
	for _, r := range rules {
		sel, err := cascadia.ParseWithPseudoElement(r.Selector)
		if err != nil {
			logger.WarningLogger.Printf("ignored selector %q: %s", r.Selector, err)
			continue
		}
		pseudo := sel.PseudoElement()
		if pseudo != "" && pseudo != "before" && pseudo != "after" {
			logger.WarningLogger.Printf("ignored unsupported pseudo-element %q", r.Selector)
			continue
		}
		c.order++
		c.rules = append(c.rules, rule{
			sel: sel, pseudo: pseudo, decls: r.Declarations,
			origin: origin, order: c.order,
		})
	}
}

func (c *Cascade) mustAddSheet(rules []parser.Rule, origin Origin) {
	before := len(rules)
	c.AddSheet(rules, origin)
	if got := len(c.rules); got < before {
		panic(fmt.Sprintf("invalid embedded stylesheet: %d rules rejected", before-got))
	}
}

type weighted struct {
	weight weight
	value  pr.Value
}

type cascaded map[string]weighted

func (cs cascaded) apply(decl pr.Declaration, w weight) {
	if old := cs[decl.Name].weight; old.isNone() || old.Less(w) {
		cs[decl.Name] = weighted{weight: w, value: decl.Value}
	}
}

func (cs cascaded) toStyle(parent pr.Style) pr.Style {
	style := pr.Style{}
	for name := range parent {
		if pr.IsInherited(name) {
			style[name] = parent[name]
		}
	}
	for name, wv := range cs {
		if wv.value.Keyword == "inherit" {
			if v, in := parent[name]; in {
				style[name] = v
			}
			continue
		}
		style[name] = wv.value
	}
	return style
}

// PushElement enters an element : its cascaded style is resolved against the
// current parent and returned, together with the styles of its rendered
// pseudo-elements. `inline` holds the declarations of its style attribute.
func (c *Cascade) PushElement(node *html.Node, inline []pr.Declaration, offset int) pr.ElementStyle {
	var parent pr.Style
	if n := len(c.stack); n != 0 {
		parent = c.stack[n-1].style.Style
	}

	main := cascaded{}
	pseudos := map[string]cascaded{}
	for _, r := range c.rules {
		if !r.sel.Match(node) {
			continue
		}
		w := weight{
			precedence:  declarationPrecedence(r.origin, false),
			specificity: r.sel.Specificity(),
			order:       r.order,
		}
		target := main
		if r.pseudo != "" {
			target = pseudos[r.pseudo]
			if target == nil {
				target = cascaded{}
				pseudos[r.pseudo] = target
			}
		}
		for _, decl := range r.decls {
			decl = c.preprocess(decl)
			wd := w
			wd.precedence = declarationPrecedence(r.origin, decl.Important)
			target.apply(decl, wd)
		}
	}
	for _, decl := range inline {
		decl = c.preprocess(decl)
		main.apply(decl, weight{
			precedence:  declarationPrecedence(OriginAuthor, decl.Important),
			specificity: inlineSpecificity,
			order:       1 << 30,
		})
	}

	out := pr.ElementStyle{Style: main.toStyle(parent)}
	// pseudo-elements inherit from their originating element
	if before := pseudos["before"]; before != nil {
		out.Before = before.toStyle(out.Style)
	}
	if after := pseudos["after"]; after != nil {
		out.After = after.toStyle(out.Style)
	}

	c.stack = append(c.stack, entry{node: node, style: out})
	return out
}

// PopElement leaves the element pushed last.
func (c *Cascade) PopElement(node *html.Node) {
	n := len(c.stack)
	if n == 0 || c.stack[n-1].node != node {
		panic("cascade: unbalanced pop")
	}
	c.stack = c.stack[:n-1]
}

func (c *Cascade) preprocess(decl pr.Declaration) pr.Declaration {
	for _, h := range c.hooks {
		decl = h(decl)
	}
	return decl
}

// FlowStyle re-resolves only the flow assignment properties of an element,
// without touching the element stack. It backs the styler replay of flow
// discoveries behind its cursor.
func (c *Cascade) FlowStyle(node *html.Node, inline []pr.Declaration) pr.Style {
	flow := cascaded{}
	for _, r := range c.rules {
		if r.pseudo != "" || !hasFlowProps(r.decls) || !r.sel.Match(node) {
			continue
		}
		for _, decl := range r.decls {
			if !isFlowProp(decl.Name) {
				continue
			}
			flow.apply(decl, weight{
				precedence:  declarationPrecedence(r.origin, decl.Important),
				specificity: r.sel.Specificity(),
				order:       r.order,
			})
		}
	}
	for _, decl := range inline {
		if isFlowProp(decl.Name) {
			flow.apply(decl, weight{
				precedence:  declarationPrecedence(OriginAuthor, decl.Important),
				specificity: inlineSpecificity,
				order:       1 << 30,
			})
		}
	}
	return flow.toStyle(nil)
}

func isFlowProp(name string) bool {
	switch name {
	case pr.PFlowInto, pr.PFlowOptions, pr.PFlowLinger, pr.PFlowPriority:
		return true
	}
	return false
}

func hasFlowProps(decls []pr.Declaration) bool {
	for _, d := range decls {
		if isFlowProp(d.Name) {
			return true
		}
	}
	return false
}

// LengthsToPixels maps absolute length units to their pixel ratio.
var LengthsToPixels = map[string]float64{
	"px": 1, "pt": 96. / 72., "pc": 16., "in": 96.,
	"cm": 96. / 2.54, "mm": 96. / 25.4, "q": 96. / 25.4 / 4.,
}

const defaultFontSize = 16 // CSS "medium"

// Evaluate computes the used form of a resolved value : absolute lengths are
// converted to pixels, font-relative units are resolved against the root
// font size. Other values are returned unchanged.
func (c *Cascade) Evaluate(v pr.Value, property string) pr.Value {
	switch v.Unit {
	case "":
		return v
	case "em", "rem":
		// the core only evaluates root-level values, where em and rem
		// both refer to the initial font size
		return pr.Value{Num: v.Num * defaultFontSize, Unit: "px", Raw: v.Raw}
	default:
		if ratio, in := LengthsToPixels[v.Unit]; in {
			return pr.Value{Num: v.Num * ratio, Unit: "px", Raw: v.Raw}
		}
		return v
	}
}
