// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Kind identifies a category of CMS-managed content. Each kind has its own
// table and field schema.
type Kind string

// Content kinds.
const (
	KindPerson   Kind = "person"
	KindSponsor  Kind = "sponsor"
	KindTimeline Kind = "timeline"
	KindResource Kind = "resource"
)

// FieldType is the value type a schema field accepts.
type FieldType int

// Field types.
const (
	FieldText FieldType = iota
	FieldInt
)

// FieldSpec describes one mutable field of a content kind.
type FieldSpec struct {
	Type     FieldType
	Required bool
}

// Schema is the fixed allow-list of mutable fields for a content kind.
// Any payload key not present here is silently dropped, never persisted.
type Schema map[string]FieldSpec

// Mask filters a raw payload down to allow-listed fields. Text values are
// trimmed, numeric values coerced to int64. Keys with nil values are
// dropped (JSON null means "not provided"). Type mismatches are reported
// as field errors; the offending key is excluded from the result.
func (s Schema) Mask(payload map[string]any) (map[string]any, map[string]string) {
	fields := make(map[string]any)
	errs := make(map[string]string)

	for key, spec := range s {
		raw, ok := payload[key]
		if !ok || raw == nil {
			continue
		}
		switch spec.Type {
		case FieldText:
			str, ok := raw.(string)
			if !ok {
				errs[key] = "must be a string"
				continue
			}
			fields[key] = strings.TrimSpace(str)
		case FieldInt:
			switch v := raw.(type) {
			case float64: // encoding/json decodes numbers as float64
				fields[key] = int64(v)
			case int64:
				fields[key] = v
			case int:
				fields[key] = int64(v)
			default:
				errs[key] = "must be a number"
			}
		}
	}

	if len(errs) > 0 {
		return fields, errs
	}
	return fields, nil
}

// ValidateRequired checks that every required field is present and, for
// text fields, non-empty after trimming. Call after Mask.
func (s Schema) ValidateRequired(fields map[string]any) map[string]string {
	errs := make(map[string]string)
	for key, spec := range s {
		if !spec.Required {
			continue
		}
		raw, ok := fields[key]
		if !ok {
			errs[key] = "is required"
			continue
		}
		if str, isStr := raw.(string); isStr && str == "" {
			errs[key] = "is required"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Per-kind field schemas. These are the single source of truth for which
// payload keys each CRUD endpoint may persist.
var (
	PersonSchema = Schema{
		"group_slug":   {Type: FieldText, Required: true},
		"name":         {Type: FieldText, Required: true},
		"title":        {Type: FieldText},
		"school":       {Type: FieldText},
		"company":      {Type: FieldText},
		"linkedin":     {Type: FieldText},
		"headshot_url": {Type: FieldText},
		"sort_order":   {Type: FieldInt},
	}

	SponsorSchema = Schema{
		"type":         {Type: FieldText, Required: true},
		"name":         {Type: FieldText, Required: true},
		"display_name": {Type: FieldText, Required: true},
		"website":      {Type: FieldText},
		"image_path":   {Type: FieldText},
		"description":  {Type: FieldText},
		"sort_order":   {Type: FieldInt},
	}

	TimelineSchema = Schema{
		"title":       {Type: FieldText, Required: true},
		"description": {Type: FieldText},
		"event_date":  {Type: FieldText, Required: true},
		"sort_order":  {Type: FieldInt},
	}

	ResourceSchema = Schema{
		"title":       {Type: FieldText, Required: true},
		"description": {Type: FieldText},
		"url":         {Type: FieldText},
		"link_url":    {Type: FieldText},
		"type":        {Type: FieldText},
		"tab_id":      {Type: FieldText, Required: true},
		"section":     {Type: FieldText, Required: true},
		"sort_order":  {Type: FieldInt},
	}
)

// SchemaFor returns the field schema for a content kind.
func SchemaFor(kind Kind) Schema {
	switch kind {
	case KindPerson:
		return PersonSchema
	case KindSponsor:
		return SponsorSchema
	case KindTimeline:
		return TimelineSchema
	case KindResource:
		return ResourceSchema
	default:
		return nil
	}
}

// Sponsor type values.
const (
	SponsorTypeSponsor = "sponsor"
	SponsorTypePartner = "partner"
)

// Person represents a member, alum or board member shown on a people page.
// People are grouped by GroupSlug (e.g. "board", "alumni", "analysts").
type Person struct {
	ID          string    `json:"id"`
	GroupSlug   string    `json:"group_slug"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	School      string    `json:"school"`
	Company     string    `json:"company"`
	Linkedin    string    `json:"linkedin"`
	HeadshotURL string    `json:"headshot_url"`
	SortOrder   int64     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Sponsor represents a sponsor or partner organization.
type Sponsor struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Website     string    `json:"website"`
	ImagePath   string    `json:"image_path"`
	Description string    `json:"description"`
	SortOrder   int64     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimelineEvent represents one entry on the club history timeline.
// EventDate is an ISO date string (YYYY-MM-DD).
type TimelineEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventDate   string    `json:"event_date"`
	SortOrder   int64     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resource represents a document or link on the member resources page,
// grouped by tab and section.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	LinkURL     string    `json:"link_url"`
	Type        string    `json:"type"`
	TabID       string    `json:"tab_id"`
	Section     string    `json:"section"`
	SortOrder   int64     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
