package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   string
	}{
		{
			name:       "2xx Success - Green",
			statusCode: http.StatusOK,
			expected:   "\033[32m",
		},
		{
			name:       "204 No Content - Green",
			statusCode: http.StatusNoContent,
			expected:   "\033[32m",
		},
		{
			name:       "3xx Redirect - Cyan",
			statusCode: http.StatusMovedPermanently,
			expected:   "\033[36m",
		},
		{
			name:       "4xx Client Error - Yellow",
			statusCode: http.StatusBadRequest,
			expected:   "\033[33m",
		},
		{
			name:       "404 Not Found - Yellow",
			statusCode: http.StatusNotFound,
			expected:   "\033[33m",
		},
		{
			name:       "429 Too Many Requests - Yellow",
			statusCode: http.StatusTooManyRequests,
			expected:   "\033[33m",
		},
		{
			name:       "5xx Server Error - Red",
			statusCode: http.StatusInternalServerError,
			expected:   "\033[31m",
		},
		{
			name:       "502 Bad Gateway - Red",
			statusCode: http.StatusBadGateway,
			expected:   "\033[31m",
		},
		{
			name:       "Edge case - 100 Continue",
			statusCode: http.StatusContinue,
			expected:   "\033[0m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getStatusColor(tt.statusCode)
			if result != tt.expected {
				t.Errorf("Expected color code %q for status %d, got %q", tt.expected, tt.statusCode, result)
			}
		})
	}
}

func TestNewResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec == nil {
		t.Fatal("Expected ResponseRecorder to be created, got nil")
	}
	if rec.StatusCode != http.StatusOK {
		t.Errorf("Expected default status code %d, got %d", http.StatusOK, rec.StatusCode)
	}
	if rec.BodySize != 0 {
		t.Errorf("Expected initial body size 0, got %d", rec.BodySize)
	}
}

func TestResponseRecorder_WriteHeader(t *testing.T) {
	statusCodes := []int{
		http.StatusOK,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusBadGateway,
		http.StatusTooManyRequests,
	}

	for _, statusCode := range statusCodes {
		w := httptest.NewRecorder()
		rec := NewResponseRecorder(w)

		rec.WriteHeader(statusCode)

		if rec.StatusCode != statusCode {
			t.Errorf("Expected status code %d, got %d", statusCode, rec.StatusCode)
		}
		if w.Code != statusCode {
			t.Errorf("Expected underlying writer to have status code %d, got %d", statusCode, w.Code)
		}
	}
}

func TestResponseRecorder_Write(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "Empty response",
			data: []byte{},
		},
		{
			name: "JSON response",
			data: []byte(`{"id":"6rqhFgbbKwnb9MLmUQDhG6","name":"test"}`),
		},
		{
			name: "Large response",
			data: make([]byte, 1024),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rec := NewResponseRecorder(w)

			n, err := rec.Write(tt.data)
			if err != nil {
				t.Fatalf("Unexpected error writing response: %v", err)
			}
			if n != len(tt.data) {
				t.Errorf("Expected to write %d bytes, wrote %d", len(tt.data), n)
			}
			if rec.BodySize != len(tt.data) {
				t.Errorf("Expected body size %d, got %d", len(tt.data), rec.BodySize)
			}
		})
	}
}

func TestResponseRecorder_MultipleWrites(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	writes := [][]byte{
		[]byte(`{"kind":`),
		[]byte(`"track"`),
		[]byte(`}`),
	}

	totalSize := 0
	for _, data := range writes {
		n, err := rec.Write(data)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		totalSize += n
	}

	if rec.BodySize != totalSize {
		t.Errorf("Expected total body size %d, got %d", totalSize, rec.BodySize)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Test response"))
	})

	middleware := LoggingMiddleware(handler)

	req := httptest.NewRequest("GET", "/track/6rqhFgbbKwnb9MLmUQDhG6", nil)
	rec := httptest.NewRecorder()

	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rec.Code)
	}
	if body := rec.Body.String(); body != "Test response" {
		t.Errorf("Expected body 'Test response', got %q", body)
	}
}

func TestLoggingMiddleware_DifferentStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"Success", http.StatusOK},
		{"Bad Request", http.StatusBadRequest},
		{"Not Found", http.StatusNotFound},
		{"Bad Gateway", http.StatusBadGateway},
		{"Too Many Requests", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			middleware := LoggingMiddleware(handler)
			req := httptest.NewRequest("GET", "/test", nil)
			rec := httptest.NewRecorder()

			middleware.ServeHTTP(rec, req)

			if rec.Code != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, rec.Code)
			}
		})
	}
}
