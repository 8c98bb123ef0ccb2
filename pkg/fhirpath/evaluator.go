package fhirpath

// Evaluator is a compiled expression node. Evaluator trees are built once
// and hold no evaluation state, so one tree may be evaluated any number of
// times, concurrently, against different inputs.
type Evaluator interface {
	// Evaluate runs the node against a sequence of elements.
	Evaluate(elements []*Element) (*Result, error)
	// Expression returns the source text the node was compiled from.
	Expression() string
}

// memberInvocation reads one field off every input element.
type memberInvocation struct {
	identifier string
	expr       string
}

func (m *memberInvocation) Expression() string { return m.expr }

func (m *memberInvocation) Evaluate(elements []*Element) (*Result, error) {
	var out []interface{}
	for _, e := range FlattenElements(elements) {
		if e.IsEmpty() {
			continue
		}
		// A type name navigates to the resource itself: Patient.name.
		if isTypeName(m.identifier) && e.resourceType() == m.identifier {
			out = append(out, e)
			continue
		}
		child, ok := e.Child(m.identifier)
		if !ok || child.IsEmpty() {
			continue
		}
		if child.IsCollection() {
			for _, c := range child.children {
				if !c.IsEmpty() {
					out = append(out, c)
				}
			}
			continue
		}
		out = append(out, child)
	}
	return NewResult(out), nil
}

func isTypeName(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// invocationExpression pipes the result of left into right.
type invocationExpression struct {
	left  Evaluator
	right Evaluator
	expr  string
}

func (i *invocationExpression) Expression() string { return i.expr }

func (i *invocationExpression) Evaluate(elements []*Element) (*Result, error) {
	left, err := i.left.Evaluate(elements)
	if err != nil {
		return nil, err
	}
	if i.right == nil {
		return left, nil
	}
	return i.right.Evaluate(left.Elements())
}

// parenthesizedTerm wraps a single operand. predecessor links to the
// evaluator whose output feeds the term, if any.
type parenthesizedTerm struct {
	operand     Evaluator
	predecessor Evaluator
	expr        string
}

func (p *parenthesizedTerm) Expression() string { return p.expr }

// Predecessor returns the evaluator piped into the term, or nil.
func (p *parenthesizedTerm) Predecessor() Evaluator { return p.predecessor }

func (p *parenthesizedTerm) Evaluate(elements []*Element) (*Result, error) {
	return p.operand.Evaluate(elements)
}
