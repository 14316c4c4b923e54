package s3

import "scoreparse/internal/port"

// NewBlobStoreForTest wires fake S3 APIs into a BlobStore.
func NewBlobStoreForTest(client objectAPI, uploader uploadAPI, bucket string) port.BlobStore {
	return newBlobStore(client, uploader, bucket)
}
