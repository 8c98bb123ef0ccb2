package fhirpath

import "fmt"

type resultKind int

const (
	valued resultKind = iota
	verdict
)

// Result is the value every evaluator returns: a flat, ordered collection.
// A valued result's verdict is whether the collection is non-empty; a
// verdict result holds exactly one boolean and that boolean is its verdict.
type Result struct {
	items []interface{}
	kind  resultKind
}

// NewResult builds a valued result from raw. A bare value becomes a
// one-item collection, nil/Null/Empty become the empty collection and
// nested collections are flattened into the outer one.
func NewResult(raw interface{}) *Result {
	return &Result{items: finalizeValue(ensureArray(raw))}
}

// NewVerdict builds a verdict result. It fails with ErrCardinality unless
// raw flattens to exactly one boolean item.
func NewVerdict(raw interface{}) (*Result, error) {
	items := finalizeValue(ensureArray(raw))
	if len(items) != 1 {
		return nil, fmt.Errorf("%w: verdict needs exactly one boolean item, got %d items", ErrCardinality, len(items))
	}
	b, ok := normalize(items[0]).(bool)
	if !ok {
		return nil, fmt.Errorf("%w: verdict needs a boolean item, got %T", ErrCardinality, items[0])
	}
	return verdictOf(b), nil
}

func verdictOf(b bool) *Result {
	return &Result{items: []interface{}{b}, kind: verdict}
}

func emptyResult() *Result {
	return &Result{}
}

func ensureArray(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case nil, NullValue, EmptyOperand:
		return nil
	case *Result:
		if v == nil {
			return nil
		}
		return v.items
	case []interface{}:
		return v
	case []*Element:
		items := make([]interface{}, len(v))
		for i, e := range v {
			items[i] = e
		}
		return items
	}
	return []interface{}{raw}
}

func finalizeValue(items []interface{}) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil, NullValue, EmptyOperand:
		case []interface{}, []*Element, *Result:
			out = append(out, finalizeValue(ensureArray(v))...)
		default:
			out = append(out, item)
		}
	}
	return out
}

// Value returns the result's items. With unwrapElements set, every
// *Element item is replaced by the raw value it wraps.
func (r *Result) Value(unwrapElements bool) []interface{} {
	out := make([]interface{}, len(r.items))
	for i, item := range r.items {
		if e, ok := item.(*Element); ok && unwrapElements {
			out[i] = e.value
			continue
		}
		out[i] = item
	}
	return out
}

// Verdict is the boolean reading of the result.
func (r *Result) Verdict() bool {
	if r.kind == verdict {
		return r.items[0].(bool)
	}
	return len(r.items) > 0
}

// IsVerdict reports whether r was built as a verdict.
func (r *Result) IsVerdict() bool { return r.kind == verdict }

// Len returns the number of items.
func (r *Result) Len() int { return len(r.items) }

// Elements returns the items as elements, wrapping raw values in new root
// elements. It is the input handed to the right side of a path step.
func (r *Result) Elements() []*Element {
	out := make([]*Element, len(r.items))
	for i, item := range r.items {
		if e, ok := item.(*Element); ok {
			out[i] = e
			continue
		}
		out[i] = NewElement(item)
	}
	return out
}

func (r *Result) String() string {
	if r.kind == verdict {
		return fmt.Sprintf("Verdict(%v)", r.items[0])
	}
	return fmt.Sprintf("Result(%v)", r.Value(true))
}

// simplify collapses a one-item collection to its item and an empty one to
// Null. Longer collections are returned unchanged.
func simplify(items []interface{}) interface{} {
	switch len(items) {
	case 0:
		return Null
	case 1:
		return items[0]
	}
	return items
}
