package fhirpath

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
)

// paramTypes are the node types accepted as function parameters.
var paramTypes = map[ast.NodeType]bool{
	ast.Equality:   true,
	ast.Inequality: true,
	ast.And:        true,
	ast.Or:         true,
}

// Compile builds the evaluator tree for node. enclosing is the evaluator
// whose output feeds node, or nil at the top of an expression.
func Compile(node *ast.Node, enclosing Evaluator) (Evaluator, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil node", ErrCompile)
	}

	switch node.Type {
	case ast.TermExpression, ast.InvocationTerm:
		if err := expectChildren(node, 1); err != nil {
			return nil, err
		}
		return Compile(node.Children[0], enclosing)

	case ast.MemberInvocation:
		if err := expectChildren(node, 1); err != nil {
			return nil, err
		}
		ident := node.Children[0]
		if ident.Type != ast.Identifier {
			return nil, malformed(node, "child is %s, want Identifier", ident.Type)
		}
		name, err := identifierName(ident)
		if err != nil {
			return nil, err
		}
		return &memberInvocation{identifier: name, expr: node.Text}, nil

	case ast.ParenthesizedTerm:
		if err := expectChildren(node, 1); err != nil {
			return nil, err
		}
		operand, err := Compile(node.Children[0], enclosing)
		if err != nil {
			return nil, err
		}
		return &parenthesizedTerm{operand: operand, predecessor: enclosing, expr: node.Text}, nil

	case ast.InvocationExpression:
		if err := expectChildren(node, 2); err != nil {
			return nil, err
		}
		left, err := Compile(node.Children[0], enclosing)
		if err != nil {
			return nil, err
		}
		right, err := Compile(node.Children[1], left)
		if err != nil {
			return nil, err
		}
		return &invocationExpression{left: left, right: right, expr: node.Text}, nil

	case ast.FunctionInvocation:
		return compileFunction(node)

	case ast.And, ast.Or, ast.Equality, ast.Inequality, ast.Membership, ast.Implies, ast.Type, ast.Indexer:
		return compileOperator(node, enclosing)
	}

	return nil, fmt.Errorf("%w: unknown construct %s in %q", ErrCompile, node.Type, node.Text)
}

func expectChildren(node *ast.Node, n int) error {
	if len(node.Children) != n {
		return malformed(node, "has %d children, want %d", len(node.Children), n)
	}
	return nil
}

// malformed reports an AST shape the grammar cannot produce.
func malformed(node *ast.Node, format string, args ...interface{}) error {
	return fmt.Errorf("%w: malformed %s node %q: %s", ErrCompile, node.Type, node.Text, fmt.Sprintf(format, args...))
}

func identifierName(ident *ast.Node) (string, error) {
	if len(ident.LeafTokens) != 1 {
		return "", malformed(ident, "has %d tokens, want 1", len(ident.LeafTokens))
	}
	text := ident.LeafTokens[0]
	if strings.HasPrefix(text, "`") {
		return unquote(text)
	}
	return text, nil
}

func compileFunction(node *ast.Node) (Evaluator, error) {
	if err := expectChildren(node, 1); err != nil {
		return nil, err
	}
	fn := node.Children[0]
	if fn.Type != ast.Function || len(fn.Children) == 0 || len(fn.Children) > 2 {
		return nil, malformed(node, "unexpected function node %s", fn.Type)
	}
	name, err := identifierName(fn.Children[0])
	if err != nil {
		return nil, err
	}

	entry, ok := functions[registryName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported function %s()", ErrCompile, name)
	}
	if entry.call == nil {
		return nil, fmt.Errorf("%w: function %s()", ErrUnsupported, name)
	}

	var params []Evaluator
	if len(fn.Children) == 2 {
		list := fn.Children[1]
		if list.Type != ast.ParamList {
			return nil, malformed(fn, "second child is %s, want ParamList", list.Type)
		}
		for _, p := range list.Children {
			if !paramTypes[p.Type] {
				return nil, fmt.Errorf("%w: %s() does not accept %s parameter %q", ErrCompile, name, p.Type, p.Text)
			}
			ev, err := Compile(p, nil)
			if err != nil {
				return nil, err
			}
			params = append(params, ev)
		}
	}
	if len(params) < entry.minParams || (entry.maxParams >= 0 && len(params) > entry.maxParams) {
		return nil, fmt.Errorf("%w: %s() called with %d parameters", ErrCompile, name, len(params))
	}

	return &functionInvocation{name: name, params: params, call: entry.call, expr: node.Text}, nil
}

func compileOperator(node *ast.Node, enclosing Evaluator) (Evaluator, error) {
	if err := expectChildren(node, 2); err != nil {
		return nil, err
	}
	if len(node.LeafTokens) == 0 {
		return nil, malformed(node, "missing operator token")
	}
	method, err := lookupOperator(node.Type, node.LeafTokens[0])
	if err != nil {
		return nil, err
	}
	left, err := compileOperand(node.Children[0], enclosing)
	if err != nil {
		return nil, err
	}
	right, err := compileOperand(node.Children[1], enclosing)
	if err != nil {
		return nil, err
	}
	return &logicalOperator{
		family: node.Type,
		symbol: node.LeafTokens[0],
		left:   left,
		right:  right,
		method: method,
		expr:   node.Text,
	}, nil
}

// compileOperand folds a literal term into its value; anything else is
// compiled into an evaluator.
func compileOperand(node *ast.Node, enclosing Evaluator) (interface{}, error) {
	if lit := literalNode(node); lit != nil {
		return foldLiteral(lit)
	}
	return Compile(node, enclosing)
}

// literalNode returns the literal below a TermExpression/LiteralTerm chain.
func literalNode(node *ast.Node) *ast.Node {
	if node.Type == ast.TermExpression && len(node.Children) == 1 {
		node = node.Children[0]
	}
	if node.Type != ast.LiteralTerm || len(node.Children) != 1 {
		return nil
	}
	if lit := node.Children[0]; lit.IsLiteral() {
		return lit
	}
	return nil
}

func foldLiteral(lit *ast.Node) (interface{}, error) {
	if lit.Type == ast.NullLiteral {
		return Null, nil
	}
	if lit.Type == ast.QuantityLiteral {
		return foldQuantity(lit)
	}
	if len(lit.LeafTokens) != 1 {
		return nil, malformed(lit, "has %d tokens, want 1", len(lit.LeafTokens))
	}
	text := lit.LeafTokens[0]

	switch lit.Type {
	case ast.BooleanLiteral:
		return text == "true", nil
	case ast.StringLiteral:
		return unquote(text)
	case ast.NumberLiteral:
		return parseNumber(text)
	case ast.DateLiteral:
		d, err := ParseDate(strings.TrimPrefix(text, "@"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompile, err)
		}
		return d, nil
	case ast.DateTimeLiteral:
		dt, err := ParseDateTime(strings.TrimPrefix(text, "@"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompile, err)
		}
		return dt, nil
	case ast.TimeLiteral:
		t, err := ParseTime(strings.TrimPrefix(text, "@T"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompile, err)
		}
		return t, nil
	}
	return nil, malformed(lit, "not a literal")
}

func parseNumber(text string) (interface{}, error) {
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid decimal %q", ErrCompile, text)
		}
		return f, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid integer %q", ErrCompile, text)
	}
	return i, nil
}

func foldQuantity(lit *ast.Node) (interface{}, error) {
	if len(lit.Children) != 1 {
		return nil, malformed(lit, "has %d children, want 1", len(lit.Children))
	}
	q := lit.Children[0]
	if q.Type != ast.Quantity || len(q.LeafTokens) != 1 || len(q.Children) != 1 || len(q.Children[0].LeafTokens) != 1 {
		return nil, malformed(lit, "unexpected quantity shape")
	}
	n, err := parseNumber(q.LeafTokens[0])
	if err != nil {
		return nil, err
	}
	value, _ := toFloat(n)

	unit := q.Children[0].LeafTokens[0]
	if strings.HasPrefix(unit, "'") {
		if unit, err = unquote(unit); err != nil {
			return nil, err
		}
	}
	return Quantity{Value: value, Unit: unit}, nil
}

// unquote strips the surrounding quotes of a string literal or delimited
// identifier and decodes FHIRPath escapes.
func unquote(text string) (string, error) {
	if len(text) < 2 || text[0] != text[len(text)-1] || (text[0] != '\'' && text[0] != '`') {
		return "", fmt.Errorf("%w: bad quoted text %q", ErrCompile, text)
	}
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("%w: dangling escape in %s", ErrCompile, text)
		}
		switch body[i] {
		case '\'', '"', '`', '\\', '/':
			sb.WriteByte(body[i])
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			if i+5 > len(body) {
				return "", fmt.Errorf("%w: short unicode escape in %s", ErrCompile, text)
			}
			r, err := strconv.ParseUint(body[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("%w: bad unicode escape in %s", ErrCompile, text)
			}
			var buf [utf8.UTFMax]byte
			n := utf8.EncodeRune(buf[:], rune(r))
			sb.Write(buf[:n])
			i += 4
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c in %s", ErrCompile, body[i], text)
		}
	}
	return sb.String(), nil
}
