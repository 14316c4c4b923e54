package port

import "context"

// BlobStore abstracts byte storage for uploaded source files. Stored objects
// are never mutated by the parsing pipeline.
type BlobStore interface {
	// Write stores data under key and returns the key it was stored under.
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
