package ast

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ehr/fhirpath/pkg/fhirpath/parser"
)

// DefaultCacheSize is the number of expressions a cache holds unless told
// otherwise.
const DefaultCacheSize = 1024

// ErrEmptyExpression is returned when compiling blank expression text.
var ErrEmptyExpression = errors.New("fhirpath: empty expression")

// Cache memoizes AST construction by exact expression text, evicting the
// least recently used entry once full.
//
// A Cache is safe for concurrent use. Two goroutines racing on the same
// uncached text may both parse it; the first node stored wins and is the
// one every later caller receives.
type Cache struct {
	entries *lru.Cache[string, *Node]
}

// NewCache returns a cache holding at most size expressions.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[string, *Node](size)
	if err != nil {
		return nil, fmt.Errorf("expression cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// CompileExpression returns the AST for text, parsing it on first use.
// Parse failures are not cached.
func (c *Cache) CompileExpression(text string) (*Node, error) {
	if node, ok := c.entries.Get(text); ok {
		return node, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyExpression
	}

	tree, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	node := Build(tree)
	if node == nil {
		return nil, ErrEmptyExpression
	}

	if prev, ok, _ := c.entries.PeekOrAdd(text, node); ok {
		return prev, nil
	}
	return node, nil
}

// Contains reports whether text is cached, without touching its recency.
func (c *Cache) Contains(text string) bool {
	return c.entries.Contains(text)
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached expression.
func (c *Cache) Purge() {
	c.entries.Purge()
}
