// Package parser turns FHIRPath expression text into a parse tree whose
// rule nodes mirror the productions of the FHIRPath grammar.
package parser

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every lexical and syntax error.
var ErrSyntax = errors.New("fhirpath: syntax error")

// Parse tokenizes and parses input. Blank input yields a Tree with a nil
// Root and no error.
func Parse(input string) (*Tree, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	tree := &Tree{Input: input}
	if len(tokens) == 1 {
		return tree, nil
	}

	p := &parser{tokens: tokens}
	root, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != EOF {
		return nil, fmt.Errorf("%w: unexpected token %q at position %d", ErrSyntax, tok.Text, tok.Pos)
	}
	tree.Root = root
	return tree, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) peekAt(offset int) Token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind Kind) (Token, error) {
	t := p.advance()
	if t.Kind != kind {
		return t, unexpected(t, kind.String())
	}
	return t, nil
}

func unexpected(t Token, want string) error {
	if t.Kind == EOF {
		return fmt.Errorf("%w: expected %s but reached end of expression", ErrSyntax, want)
	}
	return fmt.Errorf("%w: expected %s but got %q at position %d", ErrSyntax, want, t.Text, t.Pos)
}

// Operator precedence (lowest to highest):
//
//	implies        (1)
//	or xor         (2)
//	and            (3)
//	in contains    (4)
//	= ~ != !~      (5)
//	< <= > >=      (6)
//	|              (7)
//	is as          (8)
//	+ - &          (9)
//	* / div mod    (10)
//	unary + -      (11)
//	. []           (postfix)
const polarityPrec = 11

func infixInfo(tok Token) (int, Rule, bool) {
	switch tok.Kind {
	case Ident:
		switch tok.Text {
		case "implies":
			return 1, ImpliesExpression, true
		case "or", "xor":
			return 2, OrExpression, true
		case "and":
			return 3, AndExpression, true
		case "in", "contains":
			return 4, MembershipExpression, true
		case "is", "as":
			return 8, TypeExpression, true
		case "div", "mod":
			return 10, MultiplicativeExpression, true
		}
	case Eq, Equiv, Ne, NotEquiv:
		return 5, EqualityExpression, true
	case Lt, Le, Gt, Ge:
		return 6, InequalityExpression, true
	case Pipe:
		return 7, UnionExpression, true
	case Plus, Minus, Amp:
		return 9, AdditiveExpression, true
	case Star, Slash:
		return 10, MultiplicativeExpression, true
	}
	return -1, 0, false
}

func (p *parser) parseExpression(minPrec int) (*Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		prec, r, ok := infixInfo(p.peek())
		if !ok || prec < minPrec {
			break
		}
		op := leaf(p.advance())
		if r == TypeExpression {
			spec, err := p.parseTypeSpecifier()
			if err != nil {
				return nil, err
			}
			left = rule(TypeExpression, left, op, spec)
			continue
		}
		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = rule(r, left, op, right)
	}
	return left, nil
}

func (p *parser) parsePrefix() (*Node, error) {
	if k := p.peek().Kind; k == Plus || k == Minus {
		op := leaf(p.advance())
		operand, err := p.parseExpression(polarityPrec)
		if err != nil {
			return nil, err
		}
		return rule(PolarityExpression, op, operand), nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*Node, error) {
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	node := rule(TermExpression, term)

	for {
		switch p.peek().Kind {
		case Dot:
			dot := leaf(p.advance())
			inv, err := p.parseInvocation()
			if err != nil {
				return nil, err
			}
			node = rule(InvocationExpression, node, dot, inv)
		case LBrack:
			open := leaf(p.advance())
			index, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			closeTok, err := p.expect(RBrack)
			if err != nil {
				return nil, err
			}
			node = rule(IndexerExpression, node, open, index, leaf(closeTok))
		default:
			return node, nil
		}
	}
}

func (p *parser) parseTerm() (*Node, error) {
	tok := p.peek()

	switch tok.Kind {
	case LParen:
		open := leaf(p.advance())
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expect(RParen)
		if err != nil {
			return nil, err
		}
		return rule(ParenthesizedTerm, open, inner, leaf(closeTok)), nil

	case LBrace, String, Number, Date, DateTime, Time:
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return rule(LiteralTerm, lit), nil

	case Percent:
		pct := leaf(p.advance())
		var name *Node
		switch next := p.peek(); {
		case next.Kind == String:
			name = leaf(p.advance())
		case isIdentifier(next):
			name = rule(Identifier, leaf(p.advance()))
		default:
			return nil, unexpected(next, "external constant name")
		}
		return rule(ExternalConstantTerm, rule(ExternalConstant, pct, name)), nil

	case Ident:
		if tok.Text == "true" || tok.Text == "false" {
			return rule(LiteralTerm, rule(BooleanLiteral, leaf(p.advance()))), nil
		}
	}

	inv, err := p.parseInvocation()
	if err != nil {
		return nil, err
	}
	return rule(InvocationTerm, inv), nil
}

func (p *parser) parseLiteral() (*Node, error) {
	tok := p.advance()
	switch tok.Kind {
	case LBrace:
		closeTok, err := p.expect(RBrace)
		if err != nil {
			return nil, err
		}
		return rule(NullLiteral, leaf(tok), leaf(closeTok)), nil
	case String:
		return rule(StringLiteral, leaf(tok)), nil
	case Date:
		return rule(DateLiteral, leaf(tok)), nil
	case DateTime:
		return rule(DateTimeLiteral, leaf(tok)), nil
	case Time:
		return rule(TimeLiteral, leaf(tok)), nil
	case Number:
		next := p.peek()
		if next.Kind == String || (next.Kind == Ident && calendarUnits[next.Text]) {
			unit := rule(Unit, leaf(p.advance()))
			return rule(QuantityLiteral, rule(Quantity, leaf(tok), unit)), nil
		}
		return rule(NumberLiteral, leaf(tok)), nil
	}
	return nil, unexpected(tok, "literal")
}

func (p *parser) parseInvocation() (*Node, error) {
	tok := p.peek()
	if tok.Kind == Special {
		p.advance()
		switch tok.Text {
		case "$this":
			return rule(ThisInvocation, leaf(tok)), nil
		case "$index":
			return rule(IndexInvocation, leaf(tok)), nil
		default:
			return rule(TotalInvocation, leaf(tok)), nil
		}
	}
	if !isIdentifier(tok) {
		return nil, unexpected(tok, "identifier")
	}
	ident := rule(Identifier, leaf(p.advance()))
	if p.peek().Kind != LParen {
		return rule(MemberInvocation, ident), nil
	}

	open := leaf(p.advance())
	children := []*Node{ident, open}
	if p.peek().Kind != RParen {
		params, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		children = append(children, params)
	}
	closeTok, err := p.expect(RParen)
	if err != nil {
		return nil, err
	}
	children = append(children, leaf(closeTok))
	return rule(FunctionInvocation, rule(Function, children...)), nil
}

func (p *parser) parseParamList() (*Node, error) {
	var children []*Node
	for {
		param, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		children = append(children, param)
		if p.peek().Kind != Comma {
			break
		}
		children = append(children, leaf(p.advance()))
	}
	return rule(ParamList, children...), nil
}

func (p *parser) parseTypeSpecifier() (*Node, error) {
	tok := p.peek()
	if !isIdentifier(tok) {
		return nil, unexpected(tok, "type name")
	}
	children := []*Node{rule(Identifier, leaf(p.advance()))}
	for p.peek().Kind == Dot && isIdentifier(p.peekAt(1)) {
		children = append(children, leaf(p.advance()), rule(Identifier, leaf(p.advance())))
	}
	return rule(TypeSpecifier, rule(QualifiedIdentifier, children...)), nil
}

// isIdentifier reports whether tok may be used as an identifier. The
// keywords as, contains, in and is double as identifiers.
func isIdentifier(tok Token) bool {
	switch tok.Kind {
	case Delimited:
		return true
	case Ident:
		return !reserved[tok.Text]
	}
	return false
}
