// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
)

// RequirePortalEnabled creates middleware that gates the member portal
// behind a deployment switch. When the portal is disabled every portal
// route answers 503 so clients can tell "off" apart from "not found".
func RequirePortalEnabled(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				jsonError(w, http.StatusServiceUnavailable, "Member portal is disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
