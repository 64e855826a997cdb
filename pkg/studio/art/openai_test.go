package art_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testApiKey = "sk-test-" + strings.Repeat("x", 32)

type mockOpenAi struct {
	server *httptest.Server
	calls  atomic.Int32
}

// newMockOpenAi serves a single endpoint path, decoding the request body into
// a map for assertions and replying with the given status and body.
func newMockOpenAi(t *testing.T, path string, status int, body string, inspect func(req map[string]any)) *mockOpenAi {
	t.Helper()

	m := &mockOpenAi{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)

		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+testApiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if inspect != nil {
			inspect(req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(m.server.Close)

	return m
}

func (m *mockOpenAi) baseUrl() string {
	return m.server.URL + "/v1"
}
