package handler

import (
	"reflect"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		size        int64
		contentType string
		want        []string
	}{
		{"small jpeg", 1024, "image/jpeg", nil},
		{"png at limit", 5 * 1024 * 1024, "image/png", nil},
		{"oversized image", 5*1024*1024 + 1, "image/jpeg",
			[]string{"File size should be less than 5MB"}},
		{"large pdf within limit", 20 * 1024 * 1024, "application/pdf", nil},
		{"oversized pdf", 32*1024*1024 + 1, "application/pdf",
			[]string{"File size should be less than 32MB"}},
		{"unsupported type", 1024, "image/gif",
			[]string{"File type should be JPEG, PNG or PDF"}},
		{"unsupported type and oversized", 33 * 1024 * 1024, "video/mp4",
			[]string{"File type should be JPEG, PNG or PDF", "File size should be less than 32MB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validateUpload(tt.size, tt.contentType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("validateUpload(%d, %q) = %v, want %v", tt.size, tt.contentType, got, tt.want)
			}
		})
	}
}
