// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/olegiv/clubportal-go/internal/imaging"
	"github.com/olegiv/clubportal-go/internal/model"
	"github.com/olegiv/clubportal-go/internal/util"
)

// Upload errors the handler maps to status codes.
var (
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrUnsupportedType = errors.New("file type is not allowed")
)

// ThumbsDir is the subdirectory of the uploads dir holding thumbnails.
const ThumbsDir = "thumbs"

// UploadResult describes a stored asset.
type UploadResult struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// UploadService stores uploaded assets on local disk under collision-free
// keys and serves back their public URLs.
type UploadService struct {
	uploadsDir string
	baseURL    string
	processor  *imaging.Processor
	events     *EventService
}

// NewUploadService creates a new upload service. baseURL is the public
// origin uploaded asset URLs are built from (no trailing slash).
func NewUploadService(uploadsDir, baseURL string, events *EventService) *UploadService {
	return &UploadService{
		uploadsDir: uploadsDir,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		processor:  imaging.NewProcessor(),
		events:     events,
	}
}

// Upload validates the file against the profile, stores it, and returns
// the asset's key and public URL. Raster images are normalized and get a
// thumbnail; SVG and documents are stored byte-for-byte. A non-empty
// folder nests the asset key under that path segment.
func (s *UploadService) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, profile model.UploadProfile, folder string, actor *model.Actor) (*UploadResult, error) {
	if header.Size > profile.MaxSize {
		s.logRejection(ctx, actor, header.Filename, profile,
			fmt.Sprintf("size %d over limit", header.Size))
		return nil, fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, profile.MaxSizeMB())
	}

	data, err := io.ReadAll(io.LimitReader(file, profile.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > profile.MaxSize {
		s.logRejection(ctx, actor, header.Filename, profile, "stream over limit")
		return nil, fmt.Errorf("%w: limit is %d MB", ErrFileTooLarge, profile.MaxSizeMB())
	}

	mimeType := s.resolveMimeType(data, header)
	if !profile.Allows(mimeType) {
		s.logRejection(ctx, actor, header.Filename, profile, "type "+mimeType)
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedType, mimeType, strings.Join(profile.AllowedList(), ", "))
	}

	result := &UploadResult{MimeType: mimeType}

	// Raster images are re-encoded (EXIF applied and stripped), which may
	// change the stored MIME type. SVG and documents pass through as-is.
	var thumb []byte
	if model.IsImageMime(mimeType) {
		processed, err := s.processor.Process(data)
		if err != nil {
			s.logRejection(ctx, actor, header.Filename, profile, "undecodable image")
			return nil, fmt.Errorf("%w: not a decodable image", ErrUnsupportedType)
		}
		data = processed.Data
		result.MimeType = processed.MimeType
		result.Width = processed.Width
		result.Height = processed.Height

		if thumb, err = s.processor.Thumbnail(data); err != nil {
			// A missing thumbnail never fails the upload
			thumb = nil
		}
	}

	key, err := s.writeAsset(data, sanitizeFolder(folder), extensionFor(result.MimeType, header.Filename))
	if err != nil {
		return nil, err
	}

	result.Key = key
	result.Size = int64(len(data))
	result.URL = s.PublicURL(key)

	if thumb != nil {
		if err := s.writeThumb(key, thumb); err == nil {
			result.ThumbnailURL = s.PublicURL(path.Join(ThumbsDir, key))
		}
	}

	if s.events != nil {
		var userID *int64
		var ip string
		if actor != nil {
			userID = &actor.UserID
		}
		_ = s.events.LogUploadEvent(ctx, model.EventLevelInfo, "asset uploaded",
			userID, ip, map[string]any{
				"key":      key,
				"profile":  profile.Name,
				"mime":     result.MimeType,
				"size":     result.Size,
				"filename": header.Filename,
			})
	}

	return result, nil
}

// PublicURL returns the public URL for a stored asset key.
func (s *UploadService) PublicURL(key string) string {
	return s.baseURL + "/uploads/" + key
}

// writeAsset stores data under a fresh key. O_EXCL guarantees two uploads
// landing in the same millisecond cannot clobber each other; on the
// unlikely collision a new key is generated.
func (s *UploadService) writeAsset(data []byte, folder, ext string) (string, error) {
	dir := s.uploadsDir
	if folder != "" {
		dir = filepath.Join(dir, folder)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating uploads dir: %w", err)
	}

	for attempt := 0; attempt < 5; attempt++ {
		key := newAssetKey(ext)
		if folder != "" {
			key = path.Join(folder, key)
		}
		f, err := os.OpenFile(filepath.Join(s.uploadsDir, key),
			os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("creating asset file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(filepath.Join(s.uploadsDir, key))
			return "", fmt.Errorf("writing asset file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing asset file: %w", err)
		}
		return key, nil
	}

	return "", errors.New("could not allocate a unique asset key")
}

func (s *UploadService) writeThumb(key string, data []byte) error {
	target := filepath.Join(s.uploadsDir, ThumbsDir, key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}

// sanitizeFolder reduces a caller-supplied folder segment to a single safe
// path element. Anything that could escape the uploads dir is dropped.
func sanitizeFolder(folder string) string {
	folder = strings.ToLower(strings.TrimSpace(folder))
	var b strings.Builder
	for _, r := range folder {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveMimeType prefers the client's declared type when plausible and
// falls back to sniffing and the filename extension. Sniffing alone
// cannot distinguish SVG or the Office container formats.
func (s *UploadService) resolveMimeType(data []byte, header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	if idx := strings.Index(declared, ";"); idx != -1 {
		declared = declared[:idx]
	}
	declared = strings.TrimSpace(declared)

	sniffed := s.processor.DetectMimeType(data)

	// For raster images, trust the bytes over the declaration.
	if model.IsImageMime(sniffed) {
		return sniffed
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mimeFromExtension(header.Filename); byExt != "" {
		return byExt
	}
	return sniffed
}

// newAssetKey builds a key from the upload time and a random suffix:
// 1724932800123-x7k2pq.pdf
func newAssetKey(ext string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), util.RandomID(6), ext)
}

func extensionFor(mimeType, filename string) string {
	switch mimeType {
	case model.MimeTypeJPEG:
		return ".jpg"
	case model.MimeTypePNG:
		return ".png"
	case model.MimeTypeWebP:
		return ".webp"
	case model.MimeTypeSVG:
		return ".svg"
	case model.MimeTypePDF:
		return ".pdf"
	case model.MimeTypeDoc:
		return ".doc"
	case model.MimeTypeDocx:
		return ".docx"
	case model.MimeTypeXls:
		return ".xls"
	case model.MimeTypeXlsx:
		return ".xlsx"
	case model.MimeTypePpt:
		return ".ppt"
	case model.MimeTypePptx:
		return ".pptx"
	case model.MimeTypeCSV:
		return ".csv"
	case model.MimeTypeText:
		return ".txt"
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		return ext
	}
	return ".bin"
}

func mimeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return model.MimeTypeJPEG
	case ".png":
		return model.MimeTypePNG
	case ".webp":
		return model.MimeTypeWebP
	case ".svg":
		return model.MimeTypeSVG
	case ".pdf":
		return model.MimeTypePDF
	case ".doc":
		return model.MimeTypeDoc
	case ".docx":
		return model.MimeTypeDocx
	case ".xls":
		return model.MimeTypeXls
	case ".xlsx":
		return model.MimeTypeXlsx
	case ".ppt":
		return model.MimeTypePpt
	case ".pptx":
		return model.MimeTypePptx
	case ".csv":
		return model.MimeTypeCSV
	case ".txt":
		return model.MimeTypeText
	default:
		return ""
	}
}

func (s *UploadService) logRejection(ctx context.Context, actor *model.Actor, filename string, profile model.UploadProfile, reason string) {
	if s.events == nil {
		return
	}
	var userID *int64
	if actor != nil {
		userID = &actor.UserID
	}
	_ = s.events.LogUploadEvent(ctx, model.EventLevelWarning, "upload rejected",
		userID, "", map[string]any{
			"filename": filename,
			"profile":  profile.Name,
			"reason":   reason,
		})
}
