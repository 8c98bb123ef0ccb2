package fhirpath

import "errors"

var (
	// ErrCompile is wrapped by every failure to turn an AST into an
	// evaluator: unknown constructs, unregistered functions and wrong
	// parameter counts or kinds.
	ErrCompile = errors.New("fhirpath: compile error")

	// ErrCardinality is wrapped when an operand holds the wrong number of
	// items, and when a verdict is built from anything but a single
	// boolean.
	ErrCardinality = errors.New("fhirpath: cardinality error")

	// ErrUnsupported is wrapped for FHIRPath features this engine does not
	// implement, such as the is/as type operators, equivalence and the
	// conversion functions.
	ErrUnsupported = errors.New("fhirpath: unsupported feature")
)
