package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/config"
	"scoreparse/internal/domain"
	"scoreparse/internal/storage/s3"
)

type fakeBucket struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBucket) Upload(_ context.Context, in *awss3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &manager.UploadOutput{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &awss3.DeleteObjectOutput{}, nil
}

func TestBlobStore_RoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	store := s3.NewBlobStoreForTest(bucket, bucket, "uploads")
	ctx := context.Background()

	key, err := store.Write(ctx, "parse/u/s/scores.xlsx", []byte("payload"), domain.ContentTypes[domain.FileTypeXLSX])
	require.NoError(t, err)
	assert.Equal(t, "parse/u/s/scores.xlsx", key)
	assert.Equal(t, domain.ContentTypes[domain.FileTypeXLSX], bucket.types[key])

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Read(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, *awss3.PutObjectInput, ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	return nil, errors.New("access denied")
}

func TestBlobStore_WriteError(t *testing.T) {
	store := s3.NewBlobStoreForTest(newFakeBucket(), failingUploader{}, "uploads")

	_, err := store.Write(context.Background(), "k", []byte("x"), "text/plain")

	assert.ErrorContains(t, err, "s3 upload: access denied")
}

func TestNewBlobStore_RequiresBucket(t *testing.T) {
	_, err := s3.NewBlobStore(&config.S3Config{Region: "us-east-1"})

	assert.Error(t, err)
}
