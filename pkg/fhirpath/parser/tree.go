package parser

import "fmt"

// Rule names a grammar production. Terminal marks a token leaf.
type Rule int

const (
	Terminal Rule = iota

	TermExpression
	InvocationExpression
	IndexerExpression
	PolarityExpression
	MultiplicativeExpression
	AdditiveExpression
	TypeExpression
	UnionExpression
	InequalityExpression
	EqualityExpression
	MembershipExpression
	AndExpression
	OrExpression
	ImpliesExpression

	InvocationTerm
	LiteralTerm
	ExternalConstantTerm
	ParenthesizedTerm

	NullLiteral
	BooleanLiteral
	StringLiteral
	NumberLiteral
	DateLiteral
	DateTimeLiteral
	TimeLiteral
	QuantityLiteral
	Quantity
	Unit

	ExternalConstant
	MemberInvocation
	FunctionInvocation
	ThisInvocation
	IndexInvocation
	TotalInvocation
	Function
	ParamList
	TypeSpecifier
	QualifiedIdentifier
	Identifier
)

var ruleNames = [...]string{
	Terminal:                 "Terminal",
	TermExpression:           "TermExpression",
	InvocationExpression:     "InvocationExpression",
	IndexerExpression:        "IndexerExpression",
	PolarityExpression:       "PolarityExpression",
	MultiplicativeExpression: "MultiplicativeExpression",
	AdditiveExpression:       "AdditiveExpression",
	TypeExpression:           "TypeExpression",
	UnionExpression:          "UnionExpression",
	InequalityExpression:     "InequalityExpression",
	EqualityExpression:       "EqualityExpression",
	MembershipExpression:     "MembershipExpression",
	AndExpression:            "AndExpression",
	OrExpression:             "OrExpression",
	ImpliesExpression:        "ImpliesExpression",
	InvocationTerm:           "InvocationTerm",
	LiteralTerm:              "LiteralTerm",
	ExternalConstantTerm:     "ExternalConstantTerm",
	ParenthesizedTerm:        "ParenthesizedTerm",
	NullLiteral:              "NullLiteral",
	BooleanLiteral:           "BooleanLiteral",
	StringLiteral:            "StringLiteral",
	NumberLiteral:            "NumberLiteral",
	DateLiteral:              "DateLiteral",
	DateTimeLiteral:          "DateTimeLiteral",
	TimeLiteral:              "TimeLiteral",
	QuantityLiteral:          "QuantityLiteral",
	Quantity:                 "Quantity",
	Unit:                     "Unit",
	ExternalConstant:         "ExternalConstant",
	MemberInvocation:         "MemberInvocation",
	FunctionInvocation:       "FunctionInvocation",
	ThisInvocation:           "ThisInvocation",
	IndexInvocation:          "IndexInvocation",
	TotalInvocation:          "TotalInvocation",
	Function:                 "Function",
	ParamList:                "ParamList",
	TypeSpecifier:            "TypeSpecifier",
	QualifiedIdentifier:      "QualifiedIdentifier",
	Identifier:               "Identifier",
}

func (r Rule) String() string {
	if r >= 0 && int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

// Node is a parse tree node. Terminal nodes carry their Token; rule nodes
// carry their children in source order, terminals included. Start and End
// are byte offsets into the parsed input.
type Node struct {
	Rule     Rule
	Token    Token
	Start    int
	End      int
	Children []*Node
}

// Tree is the result of parsing one expression. Root is nil when the input
// holds no tokens.
type Tree struct {
	Input string
	Root  *Node
}

// Text returns the source text spanned by n.
func (t *Tree) Text(n *Node) string {
	return t.Input[n.Start:n.End]
}

func leaf(tok Token) *Node {
	return &Node{Rule: Terminal, Token: tok, Start: tok.Pos, End: tok.End}
}

func rule(r Rule, children ...*Node) *Node {
	n := &Node{Rule: r, Children: children}
	if len(children) > 0 {
		n.Start = children[0].Start
		n.End = children[len(children)-1].End
	}
	return n
}
