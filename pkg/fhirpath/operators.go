package fhirpath

import (
	"fmt"

	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
)

type operatorMethod func(left, right *Result) (*Result, error)

// operatorMethods maps each operator family and symbol to its method. A nil
// method marks an operator FHIRPath defines but this engine does not
// implement.
var operatorMethods = map[ast.NodeType]map[string]operatorMethod{
	ast.And: {
		"and": opAnd,
	},
	ast.Or: {
		"or":  opOr,
		"xor": opXor,
	},
	ast.Equality: {
		"=":  opEqual,
		"!=": opNotEqual,
		"~":  nil,
		"!~": nil,
	},
	ast.Inequality: {
		"<":  compareWith(func(c int) bool { return c < 0 }),
		"<=": compareWith(func(c int) bool { return c <= 0 }),
		">":  compareWith(func(c int) bool { return c > 0 }),
		">=": compareWith(func(c int) bool { return c >= 0 }),
	},
	ast.Membership: {
		"in":       opIn,
		"contains": opContains,
	},
	ast.Indexer: {
		"[": opIndex,
	},
	ast.Implies: {
		"implies": opImplies,
	},
	ast.Type: {
		"is": nil,
		"as": nil,
	},
}

func lookupOperator(family ast.NodeType, symbol string) (operatorMethod, error) {
	method, ok := operatorMethods[family][symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s operator %q", ErrCompile, family, symbol)
	}
	if method == nil {
		return nil, fmt.Errorf("%w: operator %q", ErrUnsupported, symbol)
	}
	return method, nil
}

// logicalOperator is the evaluator for every binary operator. Each operand
// slot holds an Evaluator, a folded literal value or Empty.
type logicalOperator struct {
	family ast.NodeType
	symbol string
	left   interface{}
	right  interface{}
	method operatorMethod
	expr   string
}

func (o *logicalOperator) Expression() string { return o.expr }

func (o *logicalOperator) extractValue(operand interface{}, elements []*Element) (*Result, error) {
	switch v := operand.(type) {
	case EmptyOperand:
		return NewResult(elements), nil
	case Evaluator:
		return v.Evaluate(elements)
	case *Result:
		return v, nil
	case bool:
		return verdictOf(v), nil
	}
	return NewResult(operand), nil
}

func (o *logicalOperator) Evaluate(elements []*Element) (*Result, error) {
	left, err := o.extractValue(o.left, elements)
	if err != nil {
		return nil, err
	}
	right, err := o.extractValue(o.right, elements)
	if err != nil {
		return nil, err
	}
	return o.method(left, right)
}

func opAnd(left, right *Result) (*Result, error) {
	return verdictOf(left.Verdict() && right.Verdict()), nil
}

func opOr(left, right *Result) (*Result, error) {
	return verdictOf(left.Verdict() || right.Verdict()), nil
}

func opXor(left, right *Result) (*Result, error) {
	return verdictOf(left.Verdict() != right.Verdict()), nil
}

func opEqual(left, right *Result) (*Result, error) {
	return verdictOf(valuesEqual(simplify(left.Value(true)), simplify(right.Value(true)))), nil
}

func opNotEqual(left, right *Result) (*Result, error) {
	return verdictOf(!valuesEqual(simplify(left.Value(true)), simplify(right.Value(true)))), nil
}

// compareWith builds an ordering operator. Operands of different sizes,
// empty operands and values that cannot be ordered all yield false.
func compareWith(accept func(int) bool) operatorMethod {
	return func(left, right *Result) (*Result, error) {
		if left.Len() != right.Len() || left.Len() == 0 {
			return verdictOf(false), nil
		}
		c, ok := compareValues(simplify(left.Value(true)), simplify(right.Value(true)))
		if !ok {
			return verdictOf(false), nil
		}
		return verdictOf(accept(c)), nil
	}
}

func opIn(left, right *Result) (*Result, error) {
	if left.Len() == 0 {
		return emptyResult(), nil
	}
	if right.Len() == 0 {
		return verdictOf(false), nil
	}
	if left.Len() > 1 {
		return nil, fmt.Errorf("%w: membership needs a single item on the left, got %d", ErrCardinality, left.Len())
	}
	needle := left.Value(true)[0]
	for _, item := range right.Value(true) {
		if valuesEqual(needle, item) {
			return verdictOf(true), nil
		}
	}
	return verdictOf(false), nil
}

func opContains(left, right *Result) (*Result, error) {
	return opIn(right, left)
}

// opIndex picks one item of left. An index outside the collection, or one
// that is not an integer, selects nothing.
func opIndex(left, right *Result) (*Result, error) {
	if right.Len() == 0 {
		return emptyResult(), nil
	}
	if right.Len() > 1 {
		return nil, fmt.Errorf("%w: index needs a single item, got %d", ErrCardinality, right.Len())
	}
	i, ok := normalize(right.Value(true)[0]).(int64)
	if !ok || i < 0 || i >= int64(left.Len()) {
		return emptyResult(), nil
	}
	return NewResult(left.items[i]), nil
}

func opImplies(left, right *Result) (*Result, error) {
	if left.Len() == 0 {
		if right.Verdict() {
			return verdictOf(true), nil
		}
		return emptyResult(), nil
	}
	if left.Verdict() {
		return verdictOf(right.Verdict()), nil
	}
	return verdictOf(true), nil
}
