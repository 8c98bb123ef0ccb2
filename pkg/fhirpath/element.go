package fhirpath

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Element is a read-only node in the navigable projection of a resource.
// Children are materialized when the element is built: each list item
// becomes an index-addressed child, each declared field of a record a
// name-addressed child. Scalars have no children.
//
// Records may be map[string]T values, as decoded from JSON, or structs
// from a typed model. Map fields are ordered by key since JSON objects
// carry no declared order; struct fields keep their declaration order and
// take their names from the json tag.
type Element struct {
	value    interface{}
	parent   *Element
	name     string
	index    int
	children []*Element
	names    map[string]int
}

// NewElement builds the element tree rooted at value.
func NewElement(value interface{}) *Element {
	return newElement(value, nil, "", -1)
}

func newElement(value interface{}, parent *Element, name string, index int) *Element {
	e := &Element{
		value:  indirect(value),
		parent: parent,
		name:   name,
		index:  index,
	}
	e.materialize()
	return e
}

func indirect(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func (e *Element) materialize() {
	switch v := e.value.(type) {
	case nil:
		return
	case []interface{}:
		e.children = make([]*Element, 0, len(v))
		for i, item := range v {
			e.children = append(e.children, newElement(item, e, "", i))
		}
		return
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.addField(k, v[k])
		}
		return
	}
	if isScalarType(e.value) {
		return
	}

	rv := reflect.ValueOf(e.value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		e.children = make([]*Element, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e.children = append(e.children, newElement(rv.Index(i).Interface(), e, "", i))
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			e.addField(k.String(), rv.MapIndex(k).Interface())
		}
	case reflect.Struct:
		e.addStructFields(rv)
	}
}

func (e *Element) addStructFields(rv reflect.Value) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip := fieldName(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if f.Anonymous && name == "" {
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				e.addStructFields(fv)
				continue
			}
			name = f.Name
		}
		e.addField(name, fv.Interface())
	}
}

// fieldName returns the json name of a struct field. An empty name with
// skip unset marks an untagged embedded field.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", true
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name != "" {
		return name, false
	}
	if f.Anonymous {
		return "", false
	}
	return f.Name, false
}

func (e *Element) addField(name string, value interface{}) {
	if e.names == nil {
		e.names = make(map[string]int)
	}
	e.names[name] = len(e.children)
	e.children = append(e.children, newElement(value, e, name, -1))
}

// Value returns the raw value the element wraps.
func (e *Element) Value() interface{} { return e.value }

// Parent returns the enclosing element, or nil for a root.
func (e *Element) Parent() *Element { return e.parent }

// Name returns the field name under the parent, or "" for roots and list
// items.
func (e *Element) Name() string { return e.name }

// Len returns the number of children.
func (e *Element) Len() int { return len(e.children) }

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	return append([]*Element(nil), e.children...)
}

// Child returns the child for a field name.
func (e *Element) Child(name string) (*Element, bool) {
	i, ok := e.names[name]
	if !ok {
		return nil, false
	}
	return e.children[i], true
}

// At returns the i-th child.
func (e *Element) At(i int) (*Element, bool) {
	if i < 0 || i >= len(e.children) {
		return nil, false
	}
	return e.children[i], true
}

// IsCollection reports whether the wrapped value is a list.
func (e *Element) IsCollection() bool {
	switch e.value.(type) {
	case nil:
		return false
	case []interface{}:
		return true
	}
	if isScalarType(e.value) {
		return false
	}
	rv := reflect.ValueOf(e.value)
	k := rv.Kind()
	return (k == reflect.Slice || k == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8
}

// IsEmpty reports whether the wrapped value is absent.
func (e *Element) IsEmpty() bool { return isEmptyValue(e.value) }

// Path renders the location of e below its root, e.g. "name[0].given[1]".
func (e *Element) Path() string {
	if e.parent == nil {
		return ""
	}
	prefix := e.parent.Path()
	if e.index >= 0 {
		return prefix + "[" + strconv.Itoa(e.index) + "]"
	}
	if prefix == "" {
		return e.name
	}
	return prefix + "." + e.name
}

// resourceType returns the resourceType field of a resource element.
func (e *Element) resourceType() string {
	c, ok := e.Child("resourceType")
	if !ok {
		return ""
	}
	s, _ := normalize(c.value).(string)
	return s
}

// Query evaluates expr against e with DefaultEngine and returns the items
// of the result.
func (e *Element) Query(expr string) ([]interface{}, error) {
	return DefaultEngine.Query(e, expr)
}

// Test evaluates expr against e with DefaultEngine and returns the verdict.
func (e *Element) Test(expr string) (bool, error) {
	return DefaultEngine.Test(e, expr)
}

// FlattenElements replaces, depth first, every element wrapping a list
// with that list's items, yielding a flat list of non-list elements.
func FlattenElements(elements []*Element) []*Element {
	out := make([]*Element, 0, len(elements))
	for _, e := range elements {
		if e == nil {
			continue
		}
		if e.IsCollection() {
			out = append(out, FlattenElements(e.children)...)
			continue
		}
		out = append(out, e)
	}
	return out
}
