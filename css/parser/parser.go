// Package parser turns raw CSS text into validated declarations, using
// the tdewolff/parse tokenizer.
//
// It is the "declaration parsing" collaborator of the styler core : every
// declaration handed to the cascade goes through it first, so the core may
// treat its input as well formed.
package parser

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	pr "github.com/benoitkugler/pagestyle/css/properties"
)

// Rule associates a raw selector with its declarations.
// Selector parsing is left to the cascade.
type Rule struct {
	Selector     string
	Declarations []pr.Declaration
}

// Parser parses CSS declaration lists and flat rulesets.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser. A nil logger disables debug output.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// ParseDeclarationList parses an inline-style declaration list such as
// `break-before: page; color: red !important`.
// The optional source parameter identifies what's being parsed (for debug
// logging).
func (p *Parser) ParseDeclarationList(data []byte, source ...string) []pr.Declaration {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing declaration list", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, true)

	var out []pr.Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(err))
			}
			return out
		case css.DeclarationGrammar:
			if decl, ok := p.declaration(string(data), parser.Values()); ok {
				out = append(out, decl)
			}
		case css.CustomPropertyGrammar:
			// custom properties are not used by the pagination engine
			continue
		}
	}
}

// ParseRules parses a flat stylesheet (rulesets only; @-rules are skipped).
func (p *Parser) ParseRules(data []byte, source ...string) []Rule {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing stylesheet", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var out []Rule
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(err))
			}
			return out
		case css.BeginAtRuleGrammar:
			p.skipAtRuleBlock(parser)
			p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))
		case css.AtRuleGrammar:
			p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))
		case css.BeginRulesetGrammar, css.QualifiedRuleGrammar:
			selectors := p.selectors(data, parser.Values())
			decls := p.declarations(parser)
			for _, sel := range selectors {
				out = append(out, Rule{Selector: sel, Declarations: decls})
			}
		}
	}
}

// declarations parses property declarations until EndRulesetGrammar.
func (p *Parser) declarations(parser *css.Parser) []pr.Declaration {
	var out []pr.Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return out
		case css.DeclarationGrammar:
			if decl, ok := p.declaration(string(data), parser.Values()); ok {
				out = append(out, decl)
			}
		}
	}
}

func (p *Parser) declaration(name string, values []css.Token) (pr.Declaration, bool) {
	values, important := cutImportant(values)
	if len(values) == 0 {
		p.log.Debug("Empty declaration", zap.String("property", name))
		return pr.Declaration{}, false
	}
	return pr.Declaration{
		Name:      strings.ToLower(strings.TrimSpace(name)),
		Value:     parseValue(values),
		Important: important,
	}, true
}

// cutImportant strips a trailing `!important` from the value tokens.
func cutImportant(tokens []css.Token) ([]css.Token, bool) {
	var kept []css.Token
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			kept = append(kept, t)
		}
	}
	n := len(kept)
	if n >= 2 && kept[n-2].TokenType == css.DelimToken && string(kept[n-2].Data) == "!" &&
		kept[n-1].TokenType == css.IdentToken && strings.EqualFold(string(kept[n-1].Data), "important") {
		return kept[:n-2], true
	}
	return kept, false
}

// parseValue converts CSS tokens (whitespace already removed) to a Value.
func parseValue(tokens []css.Token) pr.Value {
	var rawParts []string
	for _, t := range tokens {
		rawParts = append(rawParts, string(t.Data))
	}
	raw := strings.Join(rawParts, " ")

	val := pr.Value{Raw: raw}
	if len(tokens) == 1 {
		t := tokens[0]
		switch t.TokenType {
		case css.DimensionToken:
			val.Num, val.Unit = parseDimension(string(t.Data))
		case css.PercentageToken:
			val.Num, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
			val.Unit = "%"
		case css.NumberToken:
			val.Num, _ = strconv.ParseFloat(string(t.Data), 64)
		case css.IdentToken:
			val.Keyword = strings.ToLower(string(t.Data))
		case css.StringToken:
			val.Keyword = unquote(string(t.Data))
		case css.HashToken:
			val.Keyword = string(t.Data)
		default:
			val.Keyword = raw
		}
		return val
	}

	// multi-value properties keep the serialized form
	val.Keyword = strings.ToLower(raw)
	return val
}

// parseDimension extracts numeric value and unit from a dimension token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	return num, strings.ToLower(s[numEnd:])
}

// selectors extracts selector strings from token data.
func (p *Parser) selectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	var out []string
	for _, s := range strings.Split(sb.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
