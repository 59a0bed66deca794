package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected recorder code 404, got %d", w.Code)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten %d, got %d", len(data), rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"regular request", "/convert", DefaultLoggingConfig(), false},
		{"health logged when enabled", "/health", LoggingConfig{LogHealthChecks: true}, false},
		{"health skipped when disabled", "/healthz", LoggingConfig{LogHealthChecks: false}, true},
		{"configured prefix", "/download/output_x.gif", LoggingConfig{SkipPaths: []string{"/download/"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a  b"},
		{"\x1b[31mred", "[31mred"},
		{"nul\x00byte", "nulbyte"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:80", "10.0.0.9"},
		{"remote addr", nil, "192.168.1.5:5555", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatW3C(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/convert?x=1", http.NoBody)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("User-Agent", "curl test")

	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusBadRequest)
	_, _ = rw.Write([]byte("12345"))

	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	got := formatW3C(now, req, rw, 42*time.Millisecond)
	want := `2024-03-09 14:05:06 127.0.0.1 POST /convert x=1 400 5 42 "curl test"`
	if got != want {
		t.Errorf("formatW3C() =\n  %s\nwant\n  %s", got, want)
	}
}

func TestLoggerPassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", http.NoBody))

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("Expected body ok, got %q", w.Body.String())
	}
}

func TestCompressionMiddleware(t *testing.T) {
	largeJSON := `{"data":"` + strings.Repeat("a", 2000) + `"}`

	tests := []struct {
		name           string
		acceptEncoding string
		contentType    string
		body           string
		extraHeader    map[string]string
		wantGzip       bool
	}{
		{"large json", "gzip", "application/json", largeJSON, nil, true},
		{"small json", "gzip", "application/json", `{"ok":true}`, nil, false},
		{"client without gzip", "", "application/json", largeJSON, nil, false},
		{"gif body", "gzip", "image/gif", strings.Repeat("G", 4000), nil, false},
		{"range request", "gzip", "application/json", largeJSON, map[string]string{"Range": "bytes=0-10"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			for k, v := range tt.extraHeader {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			gotGzip := w.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			body := w.Body.Bytes()
			if gotGzip {
				gr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip.NewReader: %v", err)
				}
				body, err = io.ReadAll(gr)
				if err != nil {
					t.Fatalf("reading gzip body: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionPreservesStatus(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"File not found"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for i := 0; i < 10; i++ {
			_, _ = w.Write([]byte(strings.Repeat("x", 200)))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	body, _ := io.ReadAll(gr)
	if len(body) != 2000 {
		t.Errorf("Expected 2000 bytes, got %d", len(body))
	}
}

func TestMetricsRouteLabel(t *testing.T) {
	var label string
	router := mux.NewRouter()
	router.HandleFunc("/download/{filename}", func(_ http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/download/output_abc.gif", http.NoBody))

	if label != "/download/{filename}" {
		t.Errorf("routeLabel() = %q, want /download/{filename}", label)
	}

	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)); got != "unmatched" {
		t.Errorf("routeLabel() without route = %q, want unmatched", got)
	}
}

func TestMetricsMiddlewareCapturesStatus(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/convert", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/convert", "/health"} {
		w := httptest.NewRecorder()
		method := http.MethodPost
		if path == "/health" {
			method = http.MethodGet
		}
		router.ServeHTTP(w, httptest.NewRequest(method, path, http.NoBody))
		if path == "/convert" && w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 from /convert, got %d", w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"wildcard", []string{"*"}, http.MethodPost, "http://a.example", false, http.StatusOK, "*"},
		{"listed origin", []string{"http://a.example"}, http.MethodGet, "http://a.example", false, http.StatusOK, "http://a.example"},
		{"unlisted origin", []string{"http://a.example"}, http.MethodGet, "http://b.example", false, http.StatusOK, ""},
		{"no origin header", []string{"*"}, http.MethodGet, "", false, http.StatusOK, ""},
		{"preflight", []string{"*"}, http.MethodOptions, "http://a.example", true, http.StatusNoContent, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/convert", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			CORS(tt.origins)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.preflight && w.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Error("Expected Allow-Methods on preflight")
			}
		})
	}
}

func TestCORSPreflightAllowsRequestedHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("preflight should not reach the handler")
	})

	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"custom headers echoed", "X-Requested-With, Authorization", "X-Requested-With, Authorization"},
		{"none requested", "", "Content-Type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/convert", http.NoBody)
			req.Header.Set("Origin", "http://a.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			if tt.requested != "" {
				req.Header.Set("Access-Control-Request-Headers", tt.requested)
			}
			w := httptest.NewRecorder()
			CORS([]string{"*"})(next).ServeHTTP(w, req)

			if w.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
			}
			if got := w.Header().Get("Access-Control-Allow-Headers"); got != tt.want {
				t.Errorf("Allow-Headers = %q, want %q", got, tt.want)
			}
		})
	}
}

func BenchmarkCompressionMiddleware(b *testing.B) {
	body := []byte(`{"data":"` + strings.Repeat("a", 4096) + `"}`)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
