// Package testutil provides testing utilities for the catalog client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog API for testing.
//
// By default it serves GET /courses by paging through Courses with the
// requested page/limit, applying categoryId and level filters, and GET
// /categories from Categories.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	courses    []catalog.Course
	categories []catalog.Category

	// Tracking
	requestCount  int
	requestsByURI map[string]int
	lastHeader    http.Header
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog(courses []catalog.Course, categories []catalog.Category) *MockCatalog {
	mock := &MockCatalog{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		courses:       courses,
		categories:    categories,
		requestsByURI: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.requestsByURI[r.URL.RequestURI()]++
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/courses":
			mock.coursesHandler(w, r)
		case "/categories":
			mock.categoriesHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.requestsByURI = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// ClearHandler restores the default handler for path.
func (m *MockCatalog) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// SetResponse configures a fixed response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockCatalog) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns how often the given request URI (path plus query) was hit.
func (m *MockCatalog) RequestsFor(uri string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsByURI[uri]
}

// LastHeader returns the headers of the most recent request.
func (m *MockCatalog) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

func (m *MockCatalog) coursesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	matched := []catalog.Course{}
	for _, c := range m.courses {
		if id := q.Get("categoryId"); id != "" && (c.Category == nil || c.Category.ID != id) {
			continue
		}
		if level := q.Get("level"); level != "" && string(c.Level) != level {
			continue
		}
		matched = append(matched, c)
	}

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	totalPages := (len(matched) + limit - 1) / limit

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    matched[start:end],
		"pagination": map[string]int{
			"page":         page,
			"limit":        limit,
			"totalCourses": len(matched),
			"totalPages":   totalPages,
		},
	})
}

func (m *MockCatalog) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    m.categories,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("encode mock response: %v", err))
	}
}

// SampleCourses returns n courses spread across two categories and all levels.
func SampleCourses(n int) []catalog.Course {
	categories := []catalog.Category{{ID: "web", Name: "Web Development"}, {ID: "data", Name: "Data Science"}}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	courses := make([]catalog.Course, n)
	for i := range courses {
		price := float64(10 + (i*7)%90)
		enrollments := (i * 37) % 500
		rating := float64((i*3)%50) / 10
		created := base.Add(time.Duration(i) * 24 * time.Hour)
		category := categories[i%len(categories)]

		courses[i] = catalog.Course{
			ID:              fmt.Sprintf("course-%03d", i),
			Title:           fmt.Sprintf("Course %d", i),
			Slug:            fmt.Sprintf("course-%d", i),
			Price:           &price,
			Category:        &category,
			Level:           catalog.Levels[i%len(catalog.Levels)],
			Rating:          &rating,
			EnrollmentCount: &enrollments,
			CreatedAt:       &created,
		}
	}
	return courses
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"success": false, "message": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"success": false, "message": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
