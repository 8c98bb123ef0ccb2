package fhirpath

import (
	"fmt"
	"reflect"
)

type functionHandler func(params []Evaluator, input []*Element) (*Result, error)

// function is a registry entry. maxParams < 0 accepts any number of
// parameters; a nil call marks a function that is recognised but not
// implemented.
type function struct {
	minParams int
	maxParams int
	call      functionHandler
}

// functions is the fixed registry of FHIRPath functions. Names that are
// also keywords (not, is, as) are registered with a trailing underscore.
var functions = map[string]function{
	"where":    {minParams: 1, maxParams: -1, call: fnWhere},
	"exists":   {minParams: 0, maxParams: -1, call: fnExists},
	"count":    {call: fnCount},
	"empty":    {call: fnEmpty},
	"not_":     {call: fnNot},
	"hasValue": {call: fnHasValue},
	"children": {call: fnChildren},

	"trace":       {maxParams: -1},
	"descendants": {maxParams: -1},
	"is_":         {maxParams: -1},
	"as_":         {maxParams: -1},
	"contains":    {maxParams: -1},

	"toBoolean":          {maxParams: -1},
	"convertsToBoolean":  {maxParams: -1},
	"toInteger":          {maxParams: -1},
	"convertsToInteger":  {maxParams: -1},
	"toDecimal":          {maxParams: -1},
	"convertsToDecimal":  {maxParams: -1},
	"toString":           {maxParams: -1},
	"convertsToString":   {maxParams: -1},
	"toDate":             {maxParams: -1},
	"convertsToDate":     {maxParams: -1},
	"toDateTime":         {maxParams: -1},
	"convertsToDateTime": {maxParams: -1},
	"toTime":             {maxParams: -1},
	"convertsToTime":     {maxParams: -1},
	"toQuantity":         {maxParams: -1},
	"convertsToQuantity": {maxParams: -1},
}

func registryName(name string) string {
	switch name {
	case "not", "is", "as":
		return name + "_"
	}
	return name
}

// functionInvocation calls a registered function on its input.
type functionInvocation struct {
	name   string
	params []Evaluator
	call   functionHandler
	expr   string
}

func (f *functionInvocation) Expression() string { return f.expr }

func (f *functionInvocation) Evaluate(elements []*Element) (*Result, error) {
	return f.call(f.params, elements)
}

// fnWhere keeps the input items for which every criterion holds.
func fnWhere(params []Evaluator, input []*Element) (*Result, error) {
	var out []interface{}
	for _, e := range FlattenElements(input) {
		keep := true
		for _, p := range params {
			r, err := p.Evaluate([]*Element{e})
			if err != nil {
				return nil, err
			}
			if !r.Verdict() {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return NewResult(out), nil
}

func fnExists(params []Evaluator, input []*Element) (*Result, error) {
	if len(params) == 0 {
		return verdictOf(len(FlattenElements(input)) > 0), nil
	}
	matched, err := fnWhere(params, input)
	if err != nil {
		return nil, err
	}
	return verdictOf(matched.Len() > 0), nil
}

func fnCount(_ []Evaluator, input []*Element) (*Result, error) {
	return NewResult(int64(len(FlattenElements(input)))), nil
}

func fnEmpty(_ []Evaluator, input []*Element) (*Result, error) {
	return verdictOf(len(FlattenElements(input)) == 0), nil
}

// fnNot negates a single boolean. Empty input yields true and a single
// non-boolean item, which reads as true, yields false.
func fnNot(_ []Evaluator, input []*Element) (*Result, error) {
	switch len(input) {
	case 0:
		return verdictOf(true), nil
	case 1:
		b, ok := normalize(input[0]).(bool)
		if !ok {
			return verdictOf(false), nil
		}
		return verdictOf(!b), nil
	}
	return nil, fmt.Errorf("%w: not() needs a single item, got %d", ErrCardinality, len(input))
}

// ignoredFields never count towards hasValue().
var ignoredFields = map[string]bool{
	"id":           true,
	"resourceType": true,
}

// fnHasValue reports whether any item carries a value: a primitive field
// other than id and resourceType, or a primitive value of its own.
func fnHasValue(_ []Evaluator, input []*Element) (*Result, error) {
	for _, e := range input {
		if e.IsEmpty() {
			continue
		}
		if isPrimitive(e.value) {
			return verdictOf(true), nil
		}
		for name, i := range e.names {
			if ignoredFields[name] {
				continue
			}
			if c := e.children[i]; !c.IsEmpty() && isPrimitive(c.value) {
				return verdictOf(true), nil
			}
		}
	}
	return verdictOf(false), nil
}

func isPrimitive(v interface{}) bool {
	if v == nil {
		return false
	}
	if isScalarType(v) {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return false
	}
	return true
}

// fnChildren returns the field values of every item, with list-valued
// fields expanded into their items.
func fnChildren(_ []Evaluator, input []*Element) (*Result, error) {
	var out []interface{}
	for _, e := range input {
		if e.names == nil {
			continue
		}
		for _, c := range e.children {
			if c.IsEmpty() {
				continue
			}
			if c.IsCollection() {
				out = append(out, FlattenElements(c.children))
				continue
			}
			out = append(out, c)
		}
	}
	return NewResult(out), nil
}
