package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func TestRegisterRoutes(t *testing.T) {
	middleware.Configure(config.AuthSettings{Token: "secret"}, config.RateLimitSettings{Disabled: true})
	r := chi.NewRouter()
	RegisterRoutes(r)

	tests := []struct {
		name     string
		method   string
		path     string
		auth     string
		wantCode int
	}{
		{"Health", http.MethodGet, "/health", "Bearer secret", http.StatusOK},
		{"Health_Unauthorized", http.MethodGet, "/health", "", http.StatusUnauthorized},
		{"Unknown_Route", http.MethodGet, "/nope", "Bearer secret", http.StatusNotFound},
		{"Wrong_Method", http.MethodGet, "/chat", "Bearer secret", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("%s %s got %d, want %d", tt.method, tt.path, rr.Code, tt.wantCode)
			}
		})
	}
}
