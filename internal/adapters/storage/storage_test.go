package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		folder   string
		fileName string
		want     string
	}{
		{"plain", "targets/abc", "clinic.JPG", "targets/abc/clinic_x1.jpg"},
		{"spaces and unicode", "targets/abc", "dr rao’s desk.png", "targets/abc/dr-rao-s-desk_x1.png"},
		{"path traversal", "targets/abc", "../../etc/passwd", "targets/abc/passwd_x1"},
		{"windows path", "targets/abc", `C:\photos\visit.jpeg`, "targets/abc/visit_x1.jpeg"},
		{"empty stem", "targets/abc", ".png", "targets/abc/proof_x1.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.folder, tt.fileName, "x1"))
		})
	}
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateContentType("image/JPEG; charset=binary"))
	assert.Error(t, ValidateContentType("video/mp4"))
	assert.NoError(t, ValidateFileSize(10, 10))
	assert.Error(t, ValidateFileSize(0, 10))
	assert.Error(t, ValidateFileSize(11, 10))
}
