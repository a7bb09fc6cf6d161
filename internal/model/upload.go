// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "sort"

// Supported MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeWebP = "image/webp"
	MimeTypeSVG  = "image/svg+xml"

	MimeTypePDF  = "application/pdf"
	MimeTypeDoc  = "application/msword"
	MimeTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeXls  = "application/vnd.ms-excel"
	MimeTypeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeTypePpt  = "application/vnd.ms-powerpoint"
	MimeTypePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeTypeCSV  = "text/csv"
	MimeTypeText = "text/plain"
)

// UploadProfile fixes a size limit and MIME allow-list for one class of
// uploads.
type UploadProfile struct {
	Name         string
	MaxSize      int64
	AllowedTypes map[string]bool
}

// Upload profiles: small images for CMS art assets, larger documents for
// member resource files.
var (
	ImageProfile = UploadProfile{
		Name:    "image",
		MaxSize: 5 * 1024 * 1024,
		AllowedTypes: map[string]bool{
			MimeTypePNG:  true,
			MimeTypeJPEG: true,
			MimeTypeWebP: true,
			MimeTypeSVG:  true,
		},
	}

	DocumentProfile = UploadProfile{
		Name:    "document",
		MaxSize: 25 * 1024 * 1024,
		AllowedTypes: map[string]bool{
			MimeTypePDF:  true,
			MimeTypeDoc:  true,
			MimeTypeDocx: true,
			MimeTypeXls:  true,
			MimeTypeXlsx: true,
			MimeTypePpt:  true,
			MimeTypePptx: true,
			MimeTypeCSV:  true,
			MimeTypeText: true,
		},
	}
)

// Allows reports whether the profile accepts the given MIME type.
func (p UploadProfile) Allows(mimeType string) bool {
	return p.AllowedTypes[mimeType]
}

// AllowedList returns the profile's MIME types, sorted so error messages
// are stable.
func (p UploadProfile) AllowedList() []string {
	types := make([]string, 0, len(p.AllowedTypes))
	for t := range p.AllowedTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// MaxSizeMB returns the size limit in whole megabytes.
func (p UploadProfile) MaxSizeMB() int64 {
	return p.MaxSize / (1024 * 1024)
}

// IsImageMime returns true for MIME types the image profile can thumbnail.
// SVG is vector and passes through untouched.
func IsImageMime(mimeType string) bool {
	switch mimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeWebP:
		return true
	default:
		return false
	}
}
