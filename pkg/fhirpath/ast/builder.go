package ast

import (
	"fmt"

	"github.com/ehr/fhirpath/pkg/fhirpath/parser"
)

// Build converts a parse tree into an AST. It returns nil when the tree has
// no root, which is the case for blank input.
func Build(tree *parser.Tree) *Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	b := &builder{input: tree.Input}
	b.walk(tree.Root)
	if len(b.stack) != 0 {
		panic(fmt.Sprintf("ast: %d unterminated frames after walk", len(b.stack)))
	}
	return b.root
}

// builder keeps the stack of open frames while the walker descends the
// parse tree. Each frame is the node being populated for one rule.
type builder struct {
	input string
	stack []*Node
	root  *Node
}

func (b *builder) walk(n *parser.Node) {
	if n.Rule == parser.Terminal {
		return
	}
	b.enter(n)
	for _, c := range n.Children {
		b.walk(c)
	}
	b.exit()
}

func (b *builder) enter(n *parser.Node) {
	node := &Node{
		Type: nodeType(n.Rule),
		Text: b.input[n.Start:n.End],
	}
	for _, c := range n.Children {
		if c.Rule == parser.Terminal {
			node.LeafTokens = append(node.LeafTokens, c.Token.Text)
		}
	}
	if len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]
		top.Children = append(top.Children, node)
	} else {
		b.root = node
	}
	b.stack = append(b.stack, node)
}

func (b *builder) exit() {
	if len(b.stack) == 0 {
		panic("ast: exit without matching enter")
	}
	b.stack = b.stack[:len(b.stack)-1]
}

func nodeType(r parser.Rule) NodeType {
	switch r {
	case parser.TermExpression:
		return TermExpression
	case parser.InvocationExpression:
		return InvocationExpression
	case parser.IndexerExpression:
		return Indexer
	case parser.PolarityExpression:
		return Polarity
	case parser.MultiplicativeExpression:
		return Multiplicative
	case parser.AdditiveExpression:
		return Additive
	case parser.TypeExpression:
		return Type
	case parser.UnionExpression:
		return Union
	case parser.InequalityExpression:
		return Inequality
	case parser.EqualityExpression:
		return Equality
	case parser.MembershipExpression:
		return Membership
	case parser.AndExpression:
		return And
	case parser.OrExpression:
		return Or
	case parser.ImpliesExpression:
		return Implies
	}
	// Every other production keeps its grammar name.
	return NodeType(r.String())
}
