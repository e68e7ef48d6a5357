// Package blob stores opaque payloads (raw webhook bodies kept for audit)
// in either the local filesystem or an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig = errors.New("blob: invalid configuration")
	ErrInvalidKey    = errors.New("blob: invalid key")
	ErrFailedToPut   = errors.New("blob: failed to store payload")
)

// Storage writes immutable payloads under opaque keys. Writes are
// best-effort from the caller's perspective: the webhook handlers log and
// continue when archiving fails.
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config describes payload archive settings loadable from the environment.
// When Bucket is empty a local directory archive is used.
type Config struct {
	Bucket      string `env:"ARCHIVE_S3_BUCKET"`
	Region      string `env:"ARCHIVE_S3_REGION"`
	AccessKeyID string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretKey   string `env:"ARCHIVE_S3_SECRET_KEY"`
	Endpoint    string `env:"ARCHIVE_S3_ENDPOINT"`
	LocalDir    string `env:"ARCHIVE_LOCAL_DIR" envDefault:"var/webhook-archive"`
}
