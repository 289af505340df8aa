package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContent checks if a file has expected content
func AssertFileContent(t *testing.T, path string, expected []byte) {
	t.Helper()

	actual, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("File content mismatch in %s\nExpected: %q\nActual: %q", path, expected, actual)
	}
}

// ArticleHTML builds an article page with one data-index block per paragraph
func ArticleHTML(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><article>\n")
	for i, p := range paragraphs {
		fmt.Fprintf(&b, "<div class=\"paragraph\" data-index=\"%d\"><p>%s</p>\n", i, p)
		fmt.Fprintf(&b, "<div id=\"translation-%d\" class=\"hidden\"></div></div>\n", i)
	}
	b.WriteString("</article></body></html>\n")
	return b.String()
}

// RecordedRequest is one request seen by a ReadingServer
type RecordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// ReadingServer is an httptest server standing in for the reading server.
// Routes map a path to a handler; every request is recorded.
type ReadingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewReadingServer starts a server with the given routes and closes it on cleanup
func NewReadingServer(t *testing.T, routes map[string]http.HandlerFunc) *ReadingServer {
	t.Helper()

	rs := &ReadingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{Method: r.Method, Path: r.URL.Path}
		if r.Method == http.MethodPost {
			data, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(data, &rec.Body)
		}

		rs.mu.Lock()
		rs.requests = append(rs.requests, rec)
		rs.mu.Unlock()

		if h, ok := routes[r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(rs.Close)

	return rs
}

// Requests returns the requests recorded so far
func (rs *ReadingServer) Requests() []RecordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]RecordedRequest(nil), rs.requests...)
}

// JSON returns a handler that replies with status and body
func JSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

// Static returns a handler that serves body with the given content type
func Static(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		io.WriteString(w, body)
	}
}
