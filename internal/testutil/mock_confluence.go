// Package testutil provides testing utilities for the Confluence client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockConfluence is a configurable mock Confluence Cloud server.
type MockConfluence struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount int
	pathCounts   map[string]int
	lastHeader   http.Header
	lastQueries  map[string][]string
}

// NewMockConfluence creates a new mock server.
func NewMockConfluence() *MockConfluence {
	mock := &MockConfluence{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts:  make(map[string]int),
		lastQueries: make(map[string][]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()
		mock.lastQueries[r.URL.Path] = append(mock.lastQueries[r.URL.Path], r.URL.RawQuery)
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"statusCode":404,"message":"No content found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockConfluence) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockConfluence) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockConfluence) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
	m.lastQueries = make(map[string][]string)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockConfluence) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockConfluence) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, responseHandler(resp))
}

// SetSequence answers successive requests to path with resps in order,
// repeating the last one once exhausted.
func (m *MockConfluence) SetSequence(path string, resps ...MockResponse) {
	var mu sync.Mutex
	n := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := n
		if i >= len(resps) {
			i = len(resps) - 1
		}
		n++
		mu.Unlock()
		responseHandler(resps[i])(w, r)
	})
}

// SetAnalyticsCount serves {"count": n} for a content analytics endpoint.
func (m *MockConfluence) SetAnalyticsCount(contentID, kind string, n int) {
	m.SetResponse(AnalyticsPath(contentID, kind), NewJSONResponse(map[string]int{"count": n}))
}

// SetListing serves pages at path, selecting the page by the "start" query
// parameter and linking each page to the next one.
func (m *MockConfluence) SetListing(path string, pages ...[]map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		idx := 0
		if s := r.URL.Query().Get("start"); s != "" {
			fmt.Sscanf(s, "%d", &idx)
		}
		body := map[string]any{
			"results": []map[string]any{},
			"start":   idx,
			"size":    0,
			"_links":  map[string]any{"base": m.server.URL + "/wiki"},
		}
		if idx < len(pages) {
			body["results"] = pages[idx]
			body["size"] = len(pages[idx])
			if idx+1 < len(pages) {
				body["_links"].(map[string]any)["next"] = fmt.Sprintf("%s?next=true&start=%d", strings.TrimPrefix(path, "/wiki"), idx+1)
			}
		}
		responseHandler(NewJSONResponse(body))(w, r)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockConfluence) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockConfluence) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// Queries returns the raw queries received on path in arrival order.
func (m *MockConfluence) Queries(path string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.lastQueries[path]...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockConfluence) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// AnalyticsPath returns the server path of a content analytics endpoint.
func AnalyticsPath(contentID, kind string) string {
	return fmt.Sprintf("/wiki/rest/api/analytics/content/%s/%s", contentID, kind)
}

func responseHandler(resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// NewJSONResponse creates a 200 OK response with v encoded as JSON.
func NewJSONResponse(v any) MockResponse {
	data, _ := json.Marshal(v)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Limit":     "350",
			"X-RateLimit-Remaining": "349",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response. An empty
// retryAfter omits the Retry-After header.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type":          "application/json",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-NearLimit": "true",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"No content found with id"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
