package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/wikigap/internal/model"
)

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 23, 0, 0, 0, time.FixedZone("CAT", 2*3600))
	if got := ExportFilename(now); got != "gap-detector-export-2026-10-18.json" {
		t.Errorf("ExportFilename = %q", got)
	}
}

func TestWriteExport(t *testing.T) {
	st := model.DefaultState()
	st.AnalysisHistory = []model.HistoryEntry{{Page: "Kabwe Municipal Council", Score: 80, Gaps: []model.Gap{}}}
	artifact := model.NewExportArtifact(st, model.Version, time.Now().UTC())

	path := filepath.Join(t.TempDir(), "export.json")
	if err := WriteExport(artifact, path); err != nil {
		t.Fatalf("WriteExport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var decoded model.ExportArtifact
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if decoded.Summary.PagesAnalyzed != 1 || decoded.Summary.AverageScore != 80 {
		t.Errorf("Unexpected summary %+v", decoded.Summary)
	}
	if decoded.Metadata.ExtensionVersion != model.Version {
		t.Errorf("Version = %q", decoded.Metadata.ExtensionVersion)
	}
}

func TestNewS3Uploader_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.ExportConfig
	}{
		{"no endpoint", model.ExportConfig{S3Bucket: "b", S3AccessKey: "a", S3SecretKey: "s"}},
		{"no keys", model.ExportConfig{S3Endpoint: "localhost:9000", S3Bucket: "b"}},
		{"no bucket", model.ExportConfig{S3Endpoint: "localhost:9000", S3AccessKey: "a", S3SecretKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewS3Uploader(tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	u, err := NewS3Uploader(model.ExportConfig{S3Endpoint: "localhost:9000", S3Bucket: "exports", S3AccessKey: "a", S3SecretKey: "s"})
	if err != nil {
		t.Fatalf("NewS3Uploader: %v", err)
	}
	if u.region != "us-east-1" || u.bucket != "exports" {
		t.Errorf("Unexpected uploader %+v", u)
	}
}
