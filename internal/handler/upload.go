// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/olegiv/clubportal-go/internal/middleware"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/service"
)

// UploadHandler handles admin asset uploads. The uploader itself creates
// no database rows; callers persist the returned URL through the CRUD
// endpoints when they need a reference.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// UploadImage handles POST /cms/upload: CMS art assets under the image
// profile. An optional folder query parameter nests the stored key.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.ImageProfile, r.URL.Query().Get("folder"))
}

// UploadDocument handles POST /cms/resources/upload: resource files under
// the document profile.
func (h *UploadHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.DocumentProfile, "")
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, profile model.UploadProfile, folder string) {
	// Cap the whole request at twice the profile limit so grossly
	// oversized bodies fail during parsing instead of buffering fully.
	// Files between the profile limit and the cap still parse and get
	// the precise size error from the upload service.
	r.Body = http.MaxBytesReader(w, r.Body, profile.MaxSize*2)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("file exceeds the size limit: limit is %d MB", profile.MaxSizeMB()))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "A file is required")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.uploads.Upload(r.Context(), file, header, profile, folder, middleware.GetActor(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge), errors.Is(err, service.ErrUnsupportedType):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			writeJSONError(w, http.StatusInternalServerError, "Failed to store upload")
		}
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"url":           result.URL,
		"path":          result.Key,
		"thumbnail_url": result.ThumbnailURL,
		"mime_type":     result.MimeType,
		"size":          result.Size,
		"width":         result.Width,
		"height":        result.Height,
	})
}
