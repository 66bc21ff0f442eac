// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"strings"
)

// node is a compiled expression.
type node interface {
	eval(s Symbols) (Value, error)
}

type (
	numberNode struct{ v float64 }
	stringNode struct{ s string }
	identNode  struct{ name string }
	unaryNode  struct {
		op string
		x  node
	}
	binaryNode struct {
		op   string
		l, r node
	}
	callNode struct {
		fn   node
		args []node
	}
	memberNode struct {
		x    node
		name string
	}
	indexNode struct {
		x   node
		key node
	}
)

// Expr is a parsed expression, reusable across evaluations.
type Expr struct {
	src  string
	root node
}

// String returns the source text.
func (e *Expr) String() string { return e.src }

// Eval evaluates the expression against s.
func (e *Expr) Eval(s Symbols) (Value, error) { return e.root.eval(s) }

// Parse compiles src. Surrounding whitespace and a leading '@' are ignored.
//
// Errors: ErrSyntax with the offending position.
func Parse(src string) (*Expr, error) {
	text := strings.TrimSpace(src)
	text = strings.TrimSpace(strings.TrimPrefix(text, "@"))
	if text == "" {
		return nil, fmt.Errorf("empty expression: %w", ErrSyntax)
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d: %w", t.text, t.pos, ErrSyntax)
	}

	return &Expr{src: src, root: root}, nil
}

// Eval parses and evaluates src in one step.
func Eval(src string, s Symbols) (Value, error) {
	e, err := Parse(src)
	if err != nil {
		return Value{}, err
	}

	return e.Eval(s)
}

// EvalScalar evaluates src and requires a scalar result (coefficients, constants).
func EvalScalar(src string, s Symbols) (float64, error) {
	v, err := Eval(src, s)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, evalErrorf("%q is a %s, want scalar", src, v.Kind())
	}

	return f, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}

	return t
}

// accept consumes the next token when it is one of the given operators or keywords.
func (p *parser) accept(words ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return "", false
	}
	for _, w := range words {
		if t.text == w {
			p.i++
			return w, true
		}
	}

	return "", false
}

func (p *parser) expect(op string) error {
	if _, ok := p.accept(op); !ok {
		t := p.peek()
		return fmt.Errorf("expected %q at %d, found %q: %w", op, t.pos, t.text, ErrSyntax)
	}

	return nil
}

// logical words are normalised onto the symbolic operators.
var logicalOps = map[string]string{"or": "|", "and": "&", "not": "~"}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("|", "or"); !ok {
			return l, nil
		}
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: "|", l: l, r: r}
	}
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("&", "and"); !ok {
			return l, nil
		}
		r, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: "&", l: l, r: r}
	}
}

func (p *parser) parseNot() (node, error) {
	if op, ok := p.accept("~", "not"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if mapped, isWord := logicalOps[op]; isWord {
			op = mapped
		}
		return &unaryNode{op: op, x: x}, nil
	}

	return p.parseCmp()
}

// parseCmp chains comparisons as a conjunction: a < b < c is
// (a < b) & (b < c).
func (p *parser) parseCmp() (node, error) {
	l, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	var chain node
	for {
		op, ok := p.accept("<", "<=", ">", ">=", "==", "!=")
		if !ok {
			if chain == nil {
				return l, nil
			}
			return chain, nil
		}
		r, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		link := &binaryNode{op: op, l: l, r: r}
		if chain == nil {
			chain = link
		} else {
			chain = &binaryNode{op: "&", l: chain, r: link}
		}
		l = r
	}
}

func (p *parser) parseAdd() (node, error) {
	l, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseMul() (node, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("*", "/", "//", "%")
		if !ok {
			return l, nil
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.accept("-", "+"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: op, x: x}, nil
	}

	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("**"); ok {
		exp, err := p.parseUnary() // right associative, binds a signed exponent
		if err != nil {
			return nil, err
		}
		return &binaryNode{op: "**", l: base, r: exp}, nil
	}

	return base, nil
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.peek().kind == tokOp && p.peek().text == "(":
			p.next()
			var args []node
			if _, ok := p.accept(")"); !ok {
				for {
					a, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if _, ok := p.accept(","); ok {
						continue
					}
					if err := p.expect(")"); err != nil {
						return nil, err
					}
					break
				}
			}
			x = &callNode{fn: x, args: args}
		case p.peek().kind == tokOp && p.peek().text == ".":
			p.next()
			t := p.next()
			if t.kind != tokIdent {
				return nil, fmt.Errorf("expected member name at %d: %w", t.pos, ErrSyntax)
			}
			x = &memberNode{x: x, name: t.text}
		case p.peek().kind == tokOp && p.peek().text == "[":
			p.next()
			key, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &indexNode{x: x, key: key}
		default:
			return x, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{v: t.num}, nil
	case tokString:
		return &stringNode{s: t.text}, nil
	case tokIdent:
		switch t.text {
		case "True":
			return &numberNode{v: 1}, nil
		case "False":
			return &numberNode{v: 0}, nil
		case "and", "or", "not":
			return nil, fmt.Errorf("unexpected %q at %d: %w", t.text, t.pos, ErrSyntax)
		}
		return &identNode{name: t.text}, nil
	case tokOp:
		if t.text == "(" {
			x, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression: %w", ErrSyntax)
	}

	return nil, fmt.Errorf("unexpected %q at %d: %w", t.text, t.pos, ErrSyntax)
}
