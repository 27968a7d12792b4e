package archive

import (
	"strings"
	"testing"

	"github.com/newthinker/tradelog/internal/config"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "reports/a.json", "reports/a.json"},
		{"tradelog", "reports/a.json", "tradelog/reports/a.json"},
		{"tradelog/", "reports/a.json", "tradelog/reports/a.json"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"reports/a.json": "application/json",
		"reports/a.xlsx": xlsxContentType,
		"reports/a.bin":  "application/octet-stream",
	}
	for path, want := range tests {
		if got := contentType(path); got != want {
			t.Errorf("contentType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(config.S3Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestNew(t *testing.T) {
	s, err := New(config.ArchiveConfig{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	s, err = New(config.ArchiveConfig{Type: "s3", S3: config.S3Config{Bucket: "reports", Endpoint: "http://localhost:9000"}})
	if err != nil {
		t.Fatalf("New s3: %v", err)
	}
	if _, ok := s.(*S3Storage); !ok {
		t.Errorf("expected *S3Storage, got %T", s)
	}

	if _, err := New(config.ArchiveConfig{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown archive type")
	}
}
