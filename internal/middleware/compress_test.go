package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonEcho(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestCompress(t *testing.T) {
	body := `{"success":true,"data":[` + strings.Repeat(`"filler",`, 100) + `"end"]}`

	t.Run("gzips JSON for accepting clients", func(t *testing.T) {
		h := Compress(5)(jsonEcho(body))

		req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", got)
		}
		if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
			t.Errorf("Vary = %q, want Accept-Encoding", got)
		}

		gz, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer gz.Close()
		decoded, err := io.ReadAll(gz)
		if err != nil {
			t.Fatalf("decompress: %v", err)
		}
		if string(decoded) != body {
			t.Errorf("decompressed body does not match original")
		}
	})

	t.Run("skips clients without gzip support", func(t *testing.T) {
		h := Compress(5)(jsonEcho(body))

		req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Content-Encoding"); got != "" {
			t.Errorf("Content-Encoding = %q, want empty", got)
		}
		if rec.Body.String() != body {
			t.Errorf("body was modified for a non-gzip client")
		}
	})

	t.Run("passes binary content through", func(t *testing.T) {
		png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
		h := Compress(5)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		}))

		req := httptest.NewRequest(http.MethodGet, "/uploads/logo.png", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Content-Encoding"); got != "" {
			t.Errorf("Content-Encoding = %q, want empty for image/png", got)
		}
		if rec.Body.String() != string(png) {
			t.Errorf("binary body was modified")
		}
	})
}

func TestIsCompressible(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"text/plain", true},
		{"text/csv", true},
		{"image/svg+xml", true},
		{"IMAGE/SVG+XML", true},
		{"image/png", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isCompressible(tt.contentType); got != tt.want {
			t.Errorf("isCompressible(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
