// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestSchemaMask(t *testing.T) {
	tests := []struct {
		name       string
		schema     Schema
		payload    map[string]any
		want       map[string]any
		wantErrKey string
	}{
		{
			name:    "drops unknown keys",
			schema:  SponsorSchema,
			payload: map[string]any{"name": "acme", "role": "evil", "id": "x"},
			want:    map[string]any{"name": "acme"},
		},
		{
			name:    "trims text fields",
			schema:  SponsorSchema,
			payload: map[string]any{"name": "  acme  ", "website": " https://acme.test "},
			want:    map[string]any{"name": "acme", "website": "https://acme.test"},
		},
		{
			name:    "coerces json numbers",
			schema:  PersonSchema,
			payload: map[string]any{"sort_order": float64(7)},
			want:    map[string]any{"sort_order": int64(7)},
		},
		{
			name:       "rejects non-numeric sort order",
			schema:     PersonSchema,
			payload:    map[string]any{"sort_order": "two"},
			wantErrKey: "sort_order",
		},
		{
			name:       "rejects non-string text field",
			schema:     SponsorSchema,
			payload:    map[string]any{"name": 42.0},
			wantErrKey: "name",
		},
		{
			name:    "nil values dropped",
			schema:  SponsorSchema,
			payload: map[string]any{"name": nil, "website": "w"},
			want:    map[string]any{"website": "w"},
		},
		{
			name:    "empty payload masks to empty set",
			schema:  ResourceSchema,
			payload: map[string]any{},
			want:    map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := tt.schema.Mask(tt.payload)
			if tt.wantErrKey != "" {
				if errs == nil || errs[tt.wantErrKey] == "" {
					t.Fatalf("Mask() errs = %v, want error for %q", errs, tt.wantErrKey)
				}
				return
			}
			if errs != nil {
				t.Fatalf("Mask() unexpected errs = %v", errs)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Mask() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Mask()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestSchemaValidateRequired(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		fields  map[string]any
		wantErr []string
	}{
		{
			name:   "sponsor with all required fields",
			schema: SponsorSchema,
			fields: map[string]any{"type": "sponsor", "name": "acme", "display_name": "Acme Corp"},
		},
		{
			name:    "sponsor missing display name",
			schema:  SponsorSchema,
			fields:  map[string]any{"type": "sponsor", "name": "acme"},
			wantErr: []string{"display_name"},
		},
		{
			name:    "required field empty after trim",
			schema:  SponsorSchema,
			fields:  map[string]any{"type": "sponsor", "name": "", "display_name": "Acme"},
			wantErr: []string{"name"},
		},
		{
			name:    "resource requires tab and section",
			schema:  ResourceSchema,
			fields:  map[string]any{"title": "Pitch deck"},
			wantErr: []string{"tab_id", "section"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.schema.ValidateRequired(tt.fields)
			if len(tt.wantErr) == 0 {
				if errs != nil {
					t.Fatalf("ValidateRequired() = %v, want nil", errs)
				}
				return
			}
			for _, key := range tt.wantErr {
				if errs[key] == "" {
					t.Errorf("ValidateRequired() missing error for %q, got %v", key, errs)
				}
			}
		})
	}
}

func TestSchemaFor(t *testing.T) {
	for _, kind := range []Kind{KindPerson, KindSponsor, KindTimeline, KindResource} {
		if SchemaFor(kind) == nil {
			t.Errorf("SchemaFor(%q) = nil", kind)
		}
	}
	if SchemaFor(Kind("bogus")) != nil {
		t.Error("SchemaFor(bogus) should be nil")
	}
}

func TestUploadProfiles(t *testing.T) {
	if !ImageProfile.Allows(MimeTypePNG) {
		t.Error("image profile should allow png")
	}
	if ImageProfile.Allows(MimeTypePDF) {
		t.Error("image profile should not allow pdf")
	}
	if !DocumentProfile.Allows(MimeTypeCSV) {
		t.Error("document profile should allow csv")
	}
	if got := ImageProfile.MaxSizeMB(); got != 5 {
		t.Errorf("image profile max = %dMB, want 5", got)
	}
	if got := DocumentProfile.MaxSizeMB(); got != 25 {
		t.Errorf("document profile max = %dMB, want 25", got)
	}
}
