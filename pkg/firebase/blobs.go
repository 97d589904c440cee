package firebase

import (
	"context"
	"fmt"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const downloadTokenKey = "firebaseStorageDownloadTokens"

// Blobs implements types.BlobStore on the project's default storage bucket.
type Blobs struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

func (a *App) Blobs(ctx context.Context) (*Blobs, error) {
	if a.opts.StorageBucket == "" {
		return nil, errors.New("no storage bucket configured")
	}
	client, err := a.app.Storage(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "storage client")
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, errors.Wrap(err, "default bucket")
	}
	return &Blobs{bucket: bucket, bucketName: a.opts.StorageBucket}, nil
}

// DownloadURL is the token protected url the Firebase clients use for an object.
func DownloadURL(bucket, name, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(name), url.QueryEscape(token))
}

func (b *Blobs) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	token := uuid.NewString()
	w := b.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", errors.Wrapf(err, "write %s", name)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrapf(err, "close %s", name)
	}
	return DownloadURL(b.bucketName, name, token), nil
}
