// Package upload puts image blobs into the Cloud Storage bucket backing the
// app and returns their public URLs.
package upload

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const keyPrefix = "image/"

type Uploader struct {
	bucket *storage.BucketHandle
	name   string
}

func New(client *storage.Client, bucket string) *Uploader {
	return &Uploader{
		bucket: client.Bucket(bucket),
		name:   bucket,
	}
}

// Put stores the blob under a fresh image/{uuid} key and returns the public
// URL of the object.
func (u *Uploader) Put(ctx context.Context, r io.Reader) (string, error) {
	key := keyPrefix + uuid.NewString()
	w := u.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.name, key), nil
}
