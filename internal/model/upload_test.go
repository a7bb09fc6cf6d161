package model

import (
	"reflect"
	"testing"
)

func TestUploadProfileAllows(t *testing.T) {
	if !ImageProfile.Allows(MimeTypePNG) {
		t.Error("image profile should allow png")
	}
	if ImageProfile.Allows(MimeTypePDF) {
		t.Error("image profile should not allow pdf")
	}
	if !DocumentProfile.Allows(MimeTypeCSV) {
		t.Error("document profile should allow csv")
	}
}

func TestUploadProfileAllowedListIsSorted(t *testing.T) {
	want := []string{MimeTypeJPEG, MimeTypePNG, MimeTypeSVG, MimeTypeWebP}

	// Map-backed, so repeated calls must still come out in one order
	for i := 0; i < 10; i++ {
		if got := ImageProfile.AllowedList(); !reflect.DeepEqual(got, want) {
			t.Fatalf("AllowedList() = %v, want %v", got, want)
		}
	}
}
