package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
)

// DefaultMaxBodyBytes bounds GraphQL request bodies.
const DefaultMaxBodyBytes = 64 << 10

// GraphQLRequest represents a GraphQL HTTP request
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse represents a GraphQL HTTP response
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLHandler handles GraphQL HTTP requests
type GraphQLHandler struct {
	schema       graphql.Schema
	maxDepth     int
	maxBodyBytes int64
}

// NewGraphQLHandler creates a new GraphQL HTTP handler
func NewGraphQLHandler(schema graphql.Schema, maxDepth int) *GraphQLHandler {
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	return &GraphQLHandler{
		schema:       schema,
		maxDepth:     maxDepth,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// ServeHTTP accepts POST with a JSON body, or GET with a "query" parameter.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest
	switch r.Method {
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, GraphQLResponse{
				Errors: []GraphQLError{{Message: "invalid request body"}},
			})
			return
		}
	case http.MethodGet:
		req.Query = r.URL.Query().Get("query")
		req.OperationName = r.URL.Query().Get("operationName")
		if vars := r.URL.Query().Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				writeJSON(w, http.StatusBadRequest, GraphQLResponse{
					Errors: []GraphQLError{{Message: "invalid variables"}},
				})
				return
			}
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, GraphQLResponse{
			Errors: []GraphQLError{{Message: "method not allowed"}},
		})
		return
	}

	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, GraphQLResponse{
			Errors: []GraphQLError{{Message: "query is required"}},
		})
		return
	}

	result := Execute(r.Context(), h.schema, req.Query, req.Variables, req.OperationName, h.maxDepth)

	response := GraphQLResponse{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]GraphQLError, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = GraphQLError{
				Message:    err.Message,
				Path:       err.Path,
				Extensions: err.Extensions,
			}
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
