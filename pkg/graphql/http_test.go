package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) GraphQLResponse {
	t.Helper()
	var resp GraphQLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGraphQLHandler_Post(t *testing.T) {
	handler := NewGraphQLHandler(newTestSchema(t, testGraph(t)), 0)

	body, _ := json.Marshal(GraphQLRequest{
		Query:     `query($s: String!) { routes(source: $s, destination: "C", k: 1) { routes { path } } }`,
		Variables: map[string]any{"s": "A"},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decodeResponse(t, rec)
	assert.Empty(t, resp.Errors)
	routes := resp.Data.(map[string]any)["routes"].(map[string]any)["routes"].([]any)
	assert.Equal(t, []any{"A", "B", "C"}, routes[0].(map[string]any)["path"])
}

func TestGraphQLHandler_Get(t *testing.T) {
	handler := NewGraphQLHandler(newTestSchema(t, testGraph(t)), 0)

	rec := httptest.NewRecorder()
	target := "/graphql?query=" + url.QueryEscape(`{ health }`)
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"health": "ok"}, decodeResponse(t, rec).Data)
}

func TestGraphQLHandler_ErrorsCarryCodes(t *testing.T) {
	handler := NewGraphQLHandler(newTestSchema(t, testGraph(t)), 0)

	body := `{"query": "{ routes(source: \"A\", destination: \"ZZ\") { k } }"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeNodeNotFound, resp.Errors[0].Extensions["code"])
	assert.Equal(t, []any{"routes"}, resp.Errors[0].Path)
}

func TestGraphQLHandler_BadRequests(t *testing.T) {
	handler := NewGraphQLHandler(newTestSchema(t, testGraph(t)), 0)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"invalid json", http.MethodPost, "/graphql", "{", http.StatusBadRequest},
		{"empty query", http.MethodPost, "/graphql", `{"query": ""}`, http.StatusBadRequest},
		{"bad variables", http.MethodGet, "/graphql?query=%7Bhealth%7D&variables=nope", "", http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/graphql", "", http.StatusMethodNotAllowed},
		{"oversized", http.MethodPost, "/graphql", `{"query": "` + strings.Repeat(" ", DefaultMaxBodyBytes) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decodeResponse(t, rec).Errors)
		})
	}
}
