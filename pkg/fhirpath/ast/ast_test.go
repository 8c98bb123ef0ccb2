package ast

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/fhirpath/pkg/fhirpath/parser"
)

func mustBuild(t *testing.T, input string) *Node {
	t.Helper()
	tree, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) unexpected error: %v", input, err)
	}
	node := Build(tree)
	if node == nil {
		t.Fatalf("Build(%q) returned nil", input)
	}
	return node
}

func newCache(t *testing.T, size int) *Cache {
	t.Helper()
	c, err := NewCache(size)
	if err != nil {
		t.Fatalf("NewCache(%d): %v", size, err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

func TestBuild_NilForEmpty(t *testing.T) {
	if got := Build(nil); got != nil {
		t.Errorf("Build(nil) = %v, want nil", got)
	}
	tree, err := parser.Parse("  ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := Build(tree); got != nil {
		t.Errorf("Build(blank) = %v, want nil", got)
	}
}

func TestBuild_Equality(t *testing.T) {
	node := mustBuild(t, "use = 'official'")

	want := &Node{
		Type:       Equality,
		Text:       "use = 'official'",
		LeafTokens: []string{"="},
		Children: []*Node{
			{Type: TermExpression, Text: "use", Children: []*Node{
				{Type: InvocationTerm, Text: "use", Children: []*Node{
					{Type: MemberInvocation, Text: "use", Children: []*Node{
						{Type: Identifier, Text: "use", LeafTokens: []string{"use"}},
					}},
				}},
			}},
			{Type: TermExpression, Text: "'official'", Children: []*Node{
				{Type: LiteralTerm, Text: "'official'", Children: []*Node{
					{Type: StringLiteral, Text: "'official'", LeafTokens: []string{"'official'"}},
				}},
			}},
		},
	}
	if diff := cmp.Diff(want, node); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_FamilyNormalisation(t *testing.T) {
	tests := []struct {
		input string
		typ   NodeType
		leaf  []string
	}{
		{"a and b", And, []string{"and"}},
		{"a xor b", Or, []string{"xor"}},
		{"a != b", Equality, []string{"!="}},
		{"a >= b", Inequality, []string{">="}},
		{"a[0]", Indexer, []string{"[", "]"}},
		{"a in b", Membership, []string{"in"}},
		{"a contains b", Membership, []string{"contains"}},
		{"a implies b", Implies, []string{"implies"}},
		{"a is Patient", Type, []string{"is"}},
		{"a | b", Union, []string{"|"}},
		{"a + b", Additive, []string{"+"}},
		{"a mod b", Multiplicative, []string{"mod"}},
		{"-a", Polarity, []string{"-"}},
		{"a.b", InvocationExpression, []string{"."}},
	}
	for _, tt := range tests {
		node := mustBuild(t, tt.input)
		if node.Type != tt.typ {
			t.Errorf("Build(%q).Type = %s, want %s", tt.input, node.Type, tt.typ)
		}
		if diff := cmp.Diff(tt.leaf, node.LeafTokens); diff != "" {
			t.Errorf("Build(%q).LeafTokens mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestBuild_FunctionInvocation(t *testing.T) {
	node := mustBuild(t, "name.where(use = 'x', given.exists())")
	if node.Type != InvocationExpression || len(node.Children) != 2 {
		t.Fatalf("root = %s with %d children", node.Type, len(node.Children))
	}
	fn := node.Children[1]
	if fn.Type != FunctionInvocation || len(fn.Children) != 1 {
		t.Fatalf("right = %s with %d children", fn.Type, len(fn.Children))
	}
	function := fn.Children[0]
	if function.Type != Function {
		t.Fatalf("function node = %s", function.Type)
	}
	if diff := cmp.Diff([]string{"(", ")"}, function.LeafTokens); diff != "" {
		t.Errorf("Function leaf tokens (-want +got):\n%s", diff)
	}
	params := function.Children[1]
	if params.Type != ParamList || len(params.Children) != 2 {
		t.Fatalf("params = %s with %d children", params.Type, len(params.Children))
	}
	if params.Children[0].Type != Equality || params.Children[1].Type != InvocationExpression {
		t.Errorf("param types = %s, %s", params.Children[0].Type, params.Children[1].Type)
	}
}

func TestBuild_Literals(t *testing.T) {
	tests := []struct {
		input string
		typ   NodeType
	}{
		{"{}", NullLiteral},
		{"true", BooleanLiteral},
		{"'s'", StringLiteral},
		{"1.5", NumberLiteral},
		{"@2020-01-01", DateLiteral},
		{"@2020-01-01T10:00", DateTimeLiteral},
		{"@T10:00", TimeLiteral},
		{"10 'mg'", QuantityLiteral},
	}
	for _, tt := range tests {
		node := mustBuild(t, tt.input)
		lit := node.Children[0].Children[0]
		if lit.Type != tt.typ || !lit.IsLiteral() {
			t.Errorf("Build(%q) literal = %s (literal=%v), want %s", tt.input, lit.Type, lit.IsLiteral(), tt.typ)
		}
	}
	if mustBuild(t, "a").IsLiteral() {
		t.Error("TermExpression reported as literal")
	}
}

func TestBuilder_ExitWithoutEnterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("exit on empty stack did not panic")
		}
	}()
	b := &builder{}
	b.exit()
}

func TestNodeString(t *testing.T) {
	out := mustBuild(t, "a = 1").String()
	if !strings.HasPrefix(out, `Equality "a = 1" ["="]`) {
		t.Errorf("String() = %q", out)
	}
	if !strings.Contains(out, `    NumberLiteral "1" ["1"]`) {
		t.Errorf("String() missing indented literal:\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func TestCache_SameTextSameNode(t *testing.T) {
	c := newCache(t, DefaultCacheSize)
	first, err := c.CompileExpression("name.given")
	if err != nil {
		t.Fatalf("CompileExpression: %v", err)
	}
	second, err := c.CompileExpression("name.given")
	if err != nil {
		t.Fatalf("CompileExpression: %v", err)
	}
	if first != second {
		t.Error("compiling the same text twice returned different nodes")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_Errors(t *testing.T) {
	c := newCache(t, 4)
	if _, err := c.CompileExpression("   "); !errors.Is(err, ErrEmptyExpression) {
		t.Errorf("blank expression error = %v, want ErrEmptyExpression", err)
	}
	if _, err := c.CompileExpression("name."); !errors.Is(err, parser.ErrSyntax) {
		t.Errorf("syntax error = %v, want ErrSyntax", err)
	}
	if c.Len() != 0 {
		t.Errorf("failures were cached: Len() = %d", c.Len())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newCache(t, 2)
	for _, expr := range []string{"a", "b"} {
		if _, err := c.CompileExpression(expr); err != nil {
			t.Fatalf("CompileExpression(%q): %v", expr, err)
		}
	}
	// Touch "a" so that "b" becomes the eviction candidate.
	if _, err := c.CompileExpression("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CompileExpression("c"); err != nil {
		t.Fatal(err)
	}
	if !c.Contains("a") || c.Contains("b") || !c.Contains("c") {
		t.Errorf("unexpected residents: a=%v b=%v c=%v", c.Contains("a"), c.Contains("b"), c.Contains("c"))
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d", c.Len())
	}
}

func TestCache_InvalidSize(t *testing.T) {
	if _, err := NewCache(0); err == nil {
		t.Error("NewCache(0) succeeded")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := newCache(t, 16)
	var wg sync.WaitGroup
	nodes := make([]*Node, 32)
	for i := range nodes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := c.CompileExpression(fmt.Sprintf("name.where(use = '%d')", i%4))
			if err != nil {
				t.Errorf("CompileExpression: %v", err)
				return
			}
			nodes[i] = n
		}(i)
	}
	wg.Wait()
	for i := 4; i < len(nodes); i++ {
		if nodes[i] != nodes[i%4] {
			t.Errorf("goroutine %d got a different node than goroutine %d", i, i%4)
		}
	}
}
