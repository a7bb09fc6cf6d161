package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olegiv/clubportal-go/internal/model"
)

// uploadRequest builds a multipart request and returns the parsed file.
func uploadRequest(t *testing.T, filename, contentType string, data []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("FormFile: %v", err)
	}
	return file, header
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestUploader(t *testing.T) *UploadService {
	t.Helper()
	return NewUploadService(t.TempDir(), "https://club.example.edu", nil)
}

func TestUpload_Image(t *testing.T) {
	svc := newTestUploader(t)
	file, header := uploadRequest(t, "headshot.jpg", model.MimeTypeJPEG, testJPEG(t, 800, 600))
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if result.Key == "" {
		t.Fatal("expected a non-empty key")
	}
	if !strings.HasSuffix(result.Key, ".jpg") {
		t.Errorf("key %q should end in .jpg", result.Key)
	}
	if result.URL != "https://club.example.edu/uploads/"+result.Key {
		t.Errorf("URL = %q", result.URL)
	}
	if result.Width != 800 || result.Height != 600 {
		t.Errorf("dimensions = %dx%d, want 800x600", result.Width, result.Height)
	}
	if result.ThumbnailURL == "" {
		t.Error("expected a thumbnail for an oversized image")
	}

	// Asset and thumbnail exist on disk
	if _, err := os.Stat(filepath.Join(svc.uploadsDir, result.Key)); err != nil {
		t.Errorf("asset file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(svc.uploadsDir, ThumbsDir, result.Key)); err != nil {
		t.Errorf("thumbnail file missing: %v", err)
	}
}

func TestUpload_SmallImageNoThumbnail(t *testing.T) {
	svc := newTestUploader(t)
	file, header := uploadRequest(t, "icon.jpg", model.MimeTypeJPEG, testJPEG(t, 64, 64))
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", result.ThumbnailURL)
	}
}

func TestUpload_SVGPassThrough(t *testing.T) {
	svc := newTestUploader(t)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect width="10" height="10"/></svg>`)
	file, header := uploadRequest(t, "logo.svg", model.MimeTypeSVG, svg)
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if result.MimeType != model.MimeTypeSVG {
		t.Errorf("MimeType = %q, want %q", result.MimeType, model.MimeTypeSVG)
	}
	if result.ThumbnailURL != "" {
		t.Error("SVG should not get a thumbnail")
	}

	// Stored byte-for-byte
	stored, err := os.ReadFile(filepath.Join(svc.uploadsDir, result.Key))
	if err != nil {
		t.Fatalf("reading stored svg: %v", err)
	}
	if !bytes.Equal(stored, svg) {
		t.Error("SVG content was modified")
	}
}

func TestUpload_Document(t *testing.T) {
	svc := newTestUploader(t)
	pdf := []byte("%PDF-1.4\nfake pdf body")
	file, header := uploadRequest(t, "report.pdf", model.MimeTypePDF, pdf)
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.DocumentProfile, "", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(result.Key, ".pdf") {
		t.Errorf("key %q should end in .pdf", result.Key)
	}
	if result.Size != int64(len(pdf)) {
		t.Errorf("Size = %d, want %d", result.Size, len(pdf))
	}
}

func TestUpload_RejectsWrongProfileType(t *testing.T) {
	svc := newTestUploader(t)

	// PDF against the image profile
	file, header := uploadRequest(t, "report.pdf", model.MimeTypePDF, []byte("%PDF-1.4"))
	defer file.Close()

	_, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	svc := newTestUploader(t)

	big := make([]byte, model.ImageProfile.MaxSize+1)
	file, header := uploadRequest(t, "huge.jpg", model.MimeTypeJPEG, big)
	defer file.Close()

	_, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestUpload_AcceptsExactLimit(t *testing.T) {
	svc := newTestUploader(t)

	// An SVG padded to exactly the profile limit; pass-through storage
	// keeps the size stable.
	head := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><!--`)
	tail := []byte(`--></svg>`)
	pad := bytes.Repeat([]byte(" "), int(model.ImageProfile.MaxSize)-len(head)-len(tail))
	data := append(append(head, pad...), tail...)
	if int64(len(data)) != model.ImageProfile.MaxSize {
		t.Fatalf("test payload is %d bytes, want %d", len(data), model.ImageProfile.MaxSize)
	}

	file, header := uploadRequest(t, "banner.svg", model.MimeTypeSVG, data)
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if err != nil {
		t.Fatalf("upload at the exact size limit should succeed, got %v", err)
	}
	if result.Size != model.ImageProfile.MaxSize {
		t.Errorf("Size = %d, want %d", result.Size, model.ImageProfile.MaxSize)
	}
}

func TestUpload_RejectsFakeImage(t *testing.T) {
	svc := newTestUploader(t)

	// Claims JPEG, is not decodable
	file, header := uploadRequest(t, "fake.jpg", model.MimeTypeJPEG, []byte("not an image at all"))
	defer file.Close()

	_, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "", nil)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUpload_FolderNesting(t *testing.T) {
	svc := newTestUploader(t)
	file, header := uploadRequest(t, "headshot.jpg", model.MimeTypeJPEG, testJPEG(t, 400, 400))
	defer file.Close()

	result, err := svc.Upload(context.Background(), file, header, model.ImageProfile, "Head Shots/../x", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// The folder is reduced to a single safe segment
	if !strings.HasPrefix(result.Key, "headshotsx/") {
		t.Errorf("key = %q, want headshotsx/ prefix", result.Key)
	}
	if _, err := os.Stat(filepath.Join(svc.uploadsDir, filepath.FromSlash(result.Key))); err != nil {
		t.Errorf("asset file missing: %v", err)
	}
}

func TestUpload_UniqueKeys(t *testing.T) {
	svc := newTestUploader(t)
	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		file, header := uploadRequest(t, "doc.txt", model.MimeTypeText, []byte("same content"))
		result, err := svc.Upload(context.Background(), file, header, model.DocumentProfile, "", nil)
		file.Close()
		if err != nil {
			t.Fatalf("Upload %d: %v", i, err)
		}
		if seen[result.Key] {
			t.Fatalf("duplicate key %q", result.Key)
		}
		seen[result.Key] = true
	}
}
