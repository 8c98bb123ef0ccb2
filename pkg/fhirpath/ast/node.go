// Package ast holds the typed abstract syntax tree of a FHIRPath
// expression, the builder that derives it from a parse tree and the
// bounded cache that memoizes it by expression text.
package ast

import (
	"fmt"
	"strings"
)

// NodeType tags a node with the grammar production it came from. Binary
// expression productions are normalised to their operator family.
type NodeType string

const (
	TermExpression       NodeType = "TermExpression"
	InvocationExpression NodeType = "InvocationExpression"
	Polarity             NodeType = "Polarity"
	Multiplicative       NodeType = "Multiplicative"
	Additive             NodeType = "Additive"
	Union                NodeType = "Union"

	And        NodeType = "And"
	Or         NodeType = "Or"
	Equality   NodeType = "Equality"
	Inequality NodeType = "Inequality"
	Indexer    NodeType = "Indexer"
	Membership NodeType = "Membership"
	Implies    NodeType = "Implies"
	Type       NodeType = "Type"

	InvocationTerm       NodeType = "InvocationTerm"
	LiteralTerm          NodeType = "LiteralTerm"
	ExternalConstantTerm NodeType = "ExternalConstantTerm"
	ParenthesizedTerm    NodeType = "ParenthesizedTerm"

	NullLiteral     NodeType = "NullLiteral"
	BooleanLiteral  NodeType = "BooleanLiteral"
	StringLiteral   NodeType = "StringLiteral"
	NumberLiteral   NodeType = "NumberLiteral"
	DateLiteral     NodeType = "DateLiteral"
	DateTimeLiteral NodeType = "DateTimeLiteral"
	TimeLiteral     NodeType = "TimeLiteral"
	QuantityLiteral NodeType = "QuantityLiteral"
	Quantity        NodeType = "Quantity"
	Unit            NodeType = "Unit"

	ExternalConstant    NodeType = "ExternalConstant"
	MemberInvocation    NodeType = "MemberInvocation"
	FunctionInvocation  NodeType = "FunctionInvocation"
	ThisInvocation      NodeType = "ThisInvocation"
	IndexInvocation     NodeType = "IndexInvocation"
	TotalInvocation     NodeType = "TotalInvocation"
	Function            NodeType = "Function"
	ParamList           NodeType = "ParamList"
	TypeSpecifier       NodeType = "TypeSpecifier"
	QualifiedIdentifier NodeType = "QualifiedIdentifier"
	Identifier          NodeType = "Identifier"
)

// Node is one AST node. Text is the source text the node spans and
// LeafTokens the texts of its immediate terminal tokens, in source order.
//
// A Node is shared by every caller that compiles the same expression text
// and must not be modified once built.
type Node struct {
	Type       NodeType
	Text       string
	LeafTokens []string
	Children   []*Node
}

// IsLiteral reports whether n is one of the literal productions.
func (n *Node) IsLiteral() bool {
	switch n.Type {
	case NullLiteral, BooleanLiteral, StringLiteral, NumberLiteral,
		DateLiteral, DateTimeLiteral, TimeLiteral, QuantityLiteral:
		return true
	}
	return false
}

// String renders an indented dump of the subtree rooted at n.
func (n *Node) String() string {
	var sb strings.Builder
	n.dump(&sb, 0)
	return sb.String()
}

func (n *Node) dump(sb *strings.Builder, depth int) {
	fmt.Fprintf(sb, "%s%s %q", strings.Repeat("  ", depth), n.Type, n.Text)
	if len(n.LeafTokens) > 0 {
		fmt.Fprintf(sb, " %q", n.LeafTokens)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		c.dump(sb, depth+1)
	}
}
