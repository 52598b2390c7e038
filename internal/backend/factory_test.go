package backend

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"takings/internal/config"
	"takings/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{BlobBackend: "gcs", GCSBucket: "b", UploadDir: "u", GoogleSheetName: "Takings"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.BlobType != GCSBlob || cfg.GCSBucket != "b" || cfg.GoogleSheetName != "Takings" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{BlobBackend: "s3"}); err == nil {
		t.Error("expected error for unknown blob backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"local ok", Config{BlobType: LocalBlob, UploadDir: "x"}, false},
		{"local without dir", Config{BlobType: LocalBlob}, true},
		{"gcs ok", Config{BlobType: GCSBlob, GCSBucket: "b"}, false},
		{"gcs without bucket", Config{BlobType: GCSBlob}, true},
		{"unknown", Config{BlobType: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateLocalBlobStore(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")

	res, err := f.CreateBlobStore(ctx, Config{BlobType: LocalBlob, UploadDir: dir})
	if err != nil {
		t.Fatalf("CreateBlobStore: %v", err)
	}
	if res.Cleanup != nil {
		t.Error("local store should not need cleanup")
	}

	data := []byte("raw sheet")
	if err := res.Store.Put(ctx, "excel_uploads/a.xlsx", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := res.Store.Get(ctx, "excel_uploads/a.xlsx")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, data) {
		t.Errorf("read back %q", got)
	}
}

func TestCreateSheetsFallsBackToMemory(t *testing.T) {
	res, err := NewFactory(nil).CreateSheets(context.Background(), Config{BlobType: LocalBlob, UploadDir: "x"})
	if err != nil {
		t.Fatalf("CreateSheets: %v", err)
	}
	if _, ok := res.Writer.(*memory.Store); !ok {
		t.Errorf("writer = %T, want *memory.Store", res.Writer)
	}
	if res.Reader != nil || res.Remote {
		t.Error("memory mirror should not offer a sheet reader")
	}
}
