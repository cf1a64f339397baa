package graphql

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-corridors/pkg/routing"
)

// Error codes reported in the "extensions" member of GraphQL errors.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNodeNotFound     = "NODE_NOT_FOUND"
	CodeNoPath           = "NO_PATH"
	CodeGraphUnavailable = "GRAPH_UNAVAILABLE"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL"
)

// codedError carries a machine-readable code alongside the message.
type codedError struct {
	err  error
	code string
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// Extensions implements gqlerrors.ExtendedError.
func (e *codedError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

func invalidArgument(err error) error {
	return &codedError{err: err, code: CodeInvalidArgument}
}

func wrapError(err error) error {
	code := CodeInternal
	switch {
	case errors.Is(err, routing.ErrNodeNotFound):
		code = CodeNodeNotFound
	case errors.Is(err, routing.ErrNoPathFound):
		code = CodeNoPath
	case errors.Is(err, routing.ErrGraphUnavailable):
		code = CodeGraphUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = CodeTimeout
	}
	return &codedError{err: err, code: code}
}
