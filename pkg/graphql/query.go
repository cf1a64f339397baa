package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Execute runs a query after checking its depth. maxDepth <= 0 disables the check.
func Execute(ctx context.Context, schema graphql.Schema, query string, variables map[string]any, operationName string, maxDepth int) *graphql.Result {
	if maxDepth > 0 {
		if err := ValidateQueryDepth(query, maxDepth); err != nil {
			return &graphql.Result{
				Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)},
			}
		}
	}

	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operationName,
		Context:        ctx,
	})
}
