package backend

import (
	"fmt"

	"takings/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	blobType := BlobType(appConfig.BlobBackend)
	if !blobType.IsValid() {
		return Config{}, fmt.Errorf("invalid blob backend in config: %s", appConfig.BlobBackend)
	}

	return Config{
		BlobType:            blobType,
		UploadDir:           appConfig.UploadDir,
		GCSBucket:           appConfig.GCSBucket,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.BlobType.IsValid() {
		return fmt.Errorf("invalid blob backend: %s", c.BlobType)
	}

	switch c.BlobType {
	case LocalBlob:
		if c.UploadDir == "" {
			return fmt.Errorf("upload directory is required for local blob backend")
		}
	case GCSBlob:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs blob backend")
		}
	}
	return nil
}

// GetBlobTypes returns all valid blob types
func GetBlobTypes() []BlobType {
	return []BlobType{LocalBlob, GCSBlob}
}
