package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantAllow  string
		wantStatus int
	}{
		{"dashboard dev server", "GET", "http://localhost:3000", "http://localhost:3000", http.StatusOK},
		{"loopback ip", "GET", "http://127.0.0.1:5173", "http://127.0.0.1:5173", http.StatusOK},
		{"foreign origin", "GET", "https://evil.example", "", http.StatusOK},
		{"lookalike host", "GET", "http://localhost.evil.example", "", http.StatusOK},
		{"no origin", "GET", "", "", http.StatusOK},
		{"preflight", "OPTIONS", "http://localhost:3000", "http://localhost:3000", http.StatusNoContent},
	}

	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/summary", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}
