// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// compressibleContentTypes lists the content types worth gzipping. JSON
// dominates this API; SVG, XML and CSV cover the uploaded assets served
// from /uploads. Raster images and office documents are already
// compressed and are passed through untouched.
var compressibleContentTypes = []string{
	"application/json",
	"image/svg+xml",
	"application/xml",
	"text/xml",
	"application/rss+xml",
}

// Compress gzip-compresses response bodies for clients that accept it,
// deciding per response from the Content-Type the handler set. Level is a
// compress/gzip level.
func Compress(level int) func(http.Handler) http.Handler {
	pool := &sync.Pool{
		New: func() any {
			gz, _ := gzip.NewWriterLevel(io.Discard, level)
			return gz
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, pool: pool}
			defer cw.close()
			next.ServeHTTP(cw, r)
		})
	}
}

// compressWriter wraps the response writer and commits to compression on
// the first write, once the handler's Content-Type is known.
type compressWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	gz      *gzip.Writer
	decided bool
}

// decide runs before the headers freeze. A compressible Content-Type
// switches the body stream to a pooled gzip writer.
func (cw *compressWriter) decide() {
	if cw.decided {
		return
	}
	cw.decided = true

	if !isCompressible(cw.Header().Get("Content-Type")) {
		return
	}

	cw.Header().Set("Content-Encoding", "gzip")
	cw.Header().Add("Vary", "Accept-Encoding")
	// Stale after compression
	cw.Header().Del("Content-Length")

	gz := cw.pool.Get().(*gzip.Writer)
	gz.Reset(cw.ResponseWriter)
	cw.gz = gz
}

func (cw *compressWriter) WriteHeader(statusCode int) {
	cw.decide()
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *compressWriter) Write(b []byte) (int, error) {
	cw.decide()
	if cw.gz != nil {
		return cw.gz.Write(b)
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *compressWriter) close() {
	if cw.gz == nil {
		return
	}
	_ = cw.gz.Close()
	cw.pool.Put(cw.gz)
}

// isCompressible reports whether a Content-Type benefits from gzip.
func isCompressible(contentType string) bool {
	if contentType == "" {
		return false
	}

	// Strip parameters such as charset
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	for _, ct := range compressibleContentTypes {
		if strings.EqualFold(contentType, ct) {
			return true
		}
	}
	return strings.HasPrefix(strings.ToLower(contentType), "text/")
}
