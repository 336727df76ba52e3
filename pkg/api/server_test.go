package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// getUnauthenticated issues a request without the API key header
func getUnauthenticated(t *testing.T, ts *testServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func TestSwagger_ServesJSONDocument(t *testing.T) {
	ts := setupTestServer(t, nil, 0)

	w := getUnauthenticated(t, ts, "/swagger/swagger.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Info     map[string]interface{}     `json:"info"`
		Paths    map[string]json.RawMessage `json:"paths"`
		Security map[string]json.RawMessage `json:"securityDefinitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Equal(t, "Parcel REST API", doc.Info["title"])
	for _, path := range []string{"/health", "/envelope", "/envelopes", "/envelopes/{id}", "/events/{event_id}"} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Contains(t, doc.Security, "ApiKeyAuth")
}

func TestSwagger_ServesYAMLDocument(t *testing.T) {
	ts := setupTestServer(t, nil, 0)

	w := getUnauthenticated(t, ts, "/swagger/swagger.yaml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "{\n")

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/envelopes/{id}")
}

func TestSwagger_UIAndUnknownPaths(t *testing.T) {
	ts := setupTestServer(t, nil, 0)

	w := getUnauthenticated(t, ts, "/swagger/index.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/swagger/swagger.json")

	w = getUnauthenticated(t, ts, "/swagger/missing.txt")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocsHost(t *testing.T) {
	assert.Equal(t, "localhost:8080", docsHost("", 8080))
	assert.Equal(t, "localhost:9000", docsHost("0.0.0.0", 9000))
	assert.Equal(t, "10.0.0.5:8080", docsHost("10.0.0.5", 8080))
}
