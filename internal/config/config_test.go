// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const validSecret = "aB3!xK9#mQ2$wE5%rT8&yU1*iO4(pL7)"

func TestLoad(t *testing.T) {
	t.Run("valid secret", func(t *testing.T) {
		t.Setenv("CLUB_SESSION_SECRET", validSecret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ServerPort != 8080 {
			t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
		}
		if !cfg.PortalEnabled {
			t.Error("PortalEnabled should default to true")
		}
		if cfg.UseRedisCache() {
			t.Error("UseRedisCache() should be false without CLUB_REDIS_URL")
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("CLUB_SESSION_SECRET", "")

		if _, err := Load(); err == nil {
			t.Fatal("Load() should fail without session secret")
		}
	})

	t.Run("short secret", func(t *testing.T) {
		t.Setenv("CLUB_SESSION_SECRET", "too-short")

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "at least") {
			t.Fatalf("Load() error = %v, want length error", err)
		}
	})

	t.Run("known weak secret", func(t *testing.T) {
		t.Setenv("CLUB_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

		if _, err := Load(); err == nil {
			t.Fatal("Load() should reject known default secret")
		}
	})

	t.Run("portal disabled", func(t *testing.T) {
		t.Setenv("CLUB_SESSION_SECRET", validSecret)
		t.Setenv("CLUB_PORTAL_ENABLED", "false")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.PortalEnabled {
			t.Error("PortalEnabled should be false")
		}
	})
}

func TestServerAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 9090}
	if got := cfg.ServerAddr(); got != "0.0.0.0:9090" {
		t.Errorf("ServerAddr() = %q", got)
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aB3!xK9#mQ2$", true},
		{"abcdefghijklmnop", false},
		{"abcDEF123", true},
		{"12345678901234567890", false},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
