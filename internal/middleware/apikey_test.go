package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{name: "bearer token", header: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusOK},
		{name: "bearer scheme is case insensitive", header: map[string]string{"Authorization": "bearer s3cret"}, want: http.StatusOK},
		{name: "x-api-key header", header: map[string]string{"X-API-Key": "s3cret"}, want: http.StatusOK},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong bearer", header: map[string]string{"Authorization": "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "wrong x-api-key", header: map[string]string{"X-API-Key": "S3CRET"}, want: http.StatusUnauthorized},
		{name: "prefix of key", header: map[string]string{"X-API-Key": "s3c"}, want: http.StatusUnauthorized},
		{name: "basic scheme", header: map[string]string{"Authorization": "Basic s3cret"}, want: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bodyRead := false
			h := APIKey("s3cret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				bodyRead = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/donations", strings.NewReader(`{"amount":1}`))
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.False(t, bodyRead, "handler must not run")
				assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}

func TestAPIKeyEmptyConfiguredKeyRejectsEverything(t *testing.T) {
	h := APIKey("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/donations", nil)
	req.Header.Set("X-API-Key", "")
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
