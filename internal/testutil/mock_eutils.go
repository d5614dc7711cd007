// Package testutil provides testing utilities for the E-utilities client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BasePath is where the mock serves the endpoints.
const BasePath = "/entrez/eutils/"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock.
type RecordedRequest struct {
	Method      string
	Endpoint    string
	ContentType string

	// Params holds the query string for GET and the form body for POST.
	Params url.Values

	// Time is when the request arrived.
	Time time.Time
}

// MockEUtils is a configurable mock E-utilities server.
type MockEUtils struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockEUtils creates a new mock server. Endpoints without a handler
// answer 200 with a minimal JSON document naming the endpoint.
func NewMockEUtils() *MockEUtils {
	mock := &MockEUtils{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, BasePath), ".fcgi")

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method:      r.Method,
			Endpoint:    endpoint,
			ContentType: r.Header.Get("Content-Type"),
			Params:      params(r),
			Time:        time.Now(),
		})
		handler, exists := mock.handlers[endpoint]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"header": map[string]any{"type": endpoint}})
	}))

	return mock
}

// URL returns the base address to configure the client with.
func (m *MockEUtils) URL() string {
	return m.server.URL + BasePath
}

// Close shuts down the mock server.
func (m *MockEUtils) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockEUtils) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for an endpoint (e.g. "esearch").
func (m *MockEUtils) SetHandler(endpoint string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[endpoint] = handler
}

// SetResponse configures a fixed response for an endpoint.
func (m *MockEUtils) SetResponse(endpoint string, resp MockResponse) {
	m.SetHandler(endpoint, func(w http.ResponseWriter, r *http.Request) {
		write(w, resp)
	})
}

// SetSequence answers successive requests to endpoint with responses in
// order, then delegates to fallback (or repeats the last response).
func (m *MockEUtils) SetSequence(endpoint string, fallback http.HandlerFunc, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(endpoint, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := next
		next++
		mu.Unlock()

		switch {
		case i < len(responses):
			write(w, responses[i])
		case fallback != nil:
			fallback(w, r)
		case len(responses) > 0:
			write(w, responses[len(responses)-1])
		}
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockEUtils) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to the server.
func (m *MockEUtils) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func write(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func params(r *http.Request) url.Values {
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		return r.PostForm
	}
	return r.URL.Query()
}

// NewSearchHandler serves esearch over total records with UIDs 1..total,
// honouring retstart, retmax and retmode like the real service.
func NewSearchHandler(total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := params(r)
		start, _ := strconv.Atoi(q.Get("retstart"))
		size, err := strconv.Atoi(q.Get("retmax"))
		if err != nil {
			size = 20
		}

		var ids []string
		for i := start; i < total && len(ids) < size; i++ {
			ids = append(ids, strconv.Itoa(i+1))
		}

		if q.Get("retmode") == "xml" {
			var b strings.Builder
			b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>` + "\n<eSearchResult>")
			fmt.Fprintf(&b, "<Count>%d</Count><RetMax>%d</RetMax><RetStart>%d</RetStart><IdList>", total, len(ids), start)
			for _, id := range ids {
				fmt.Fprintf(&b, "<Id>%s</Id>", id)
			}
			b.WriteString("</IdList></eSearchResult>")
			write(w, NewXMLResponse(b.String()))
			return
		}

		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"header": map[string]any{"type": "esearch", "version": "0.3"},
			"esearchresult": map[string]any{
				"count":    strconv.Itoa(total),
				"retmax":   strconv.Itoa(len(ids)),
				"retstart": strconv.Itoa(start),
				"idlist":   ids,
			},
		})
	}
}

// NewSummaryHandler serves esummary, echoing the requested UIDs.
func NewSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(params(r).Get("id"), ",")
		result := map[string]any{"uids": ids}
		for _, id := range ids {
			result[id] = map[string]any{"uid": id, "title": "Record " + id}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"header": map[string]any{"type": "esummary", "version": "0.3"},
			"result": result,
		})
	}
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}

// NewXMLResponse creates a 200 OK XML response.
func NewXMLResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "text/xml; charset=UTF-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}

// NewRateLimitResponse creates the 429 the service returns above its limit.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"API rate limit exceeded","api-key":"","count":"4","limit":"3"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}
