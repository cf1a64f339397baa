package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth allows every field of the schema to be selected.
const DefaultMaxDepth = 6

// calculateQueryDepth returns the deepest selection of any operation.
func calculateQueryDepth(document *ast.Document) int {
	fragments := make(map[string]*ast.FragmentDefinition)
	for _, definition := range document.Definitions {
		if frag, ok := definition.(*ast.FragmentDefinition); ok {
			fragments[frag.Name.Value] = frag
		}
	}

	maxDepth := 0
	for _, definition := range document.Definitions {
		if op, ok := definition.(*ast.OperationDefinition); ok {
			depth := selectionSetDepth(op.SelectionSet, 0, fragments, map[string]bool{})
			maxDepth = max(maxDepth, depth)
		}
	}
	return maxDepth
}

// selectionSetDepth counts nested object selections. Scalar fields add no
// depth; fragments are expanded in place and cycles are cut.
func selectionSetDepth(set *ast.SelectionSet, depth int, fragments map[string]*ast.FragmentDefinition, visiting map[string]bool) int {
	if set == nil {
		return depth
	}

	deepest := depth
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name.Value, "__") || sel.SelectionSet == nil {
				continue
			}
			deepest = max(deepest, selectionSetDepth(sel.SelectionSet, depth+1, fragments, visiting))

		case *ast.InlineFragment:
			deepest = max(deepest, selectionSetDepth(sel.SelectionSet, depth, fragments, visiting))

		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := fragments[name]
			if !ok || visiting[name] {
				continue
			}
			visiting[name] = true
			deepest = max(deepest, selectionSetDepth(frag.SelectionSet, depth, fragments, visiting))
			delete(visiting, name)
		}
	}
	return deepest
}

// ValidateQueryDepth validates a query against the depth limit
func ValidateQueryDepth(query string, maxDepth int) error {
	document, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}

	if depth := calculateQueryDepth(document); depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}
