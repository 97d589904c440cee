package storage

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/go-faster/errors"
)

// DiskBlobStore keeps uploaded blobs below the disk storage root and hands out
// URLs relative to BaseURL.
type DiskBlobStore struct {
	disk    *DiskStorage
	BaseURL string
}

func NewDiskBlobStore(disk *DiskStorage, baseURL string) *DiskBlobStore {
	return &DiskBlobStore{disk: disk, BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (b *DiskBlobStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", errors.New("empty blob name")
	}
	if err := b.disk.SaveBytes(data, path.Join("blobs", clean)); err != nil {
		return "", errors.Wrap(err, "save blob")
	}
	u, err := url.JoinPath(b.BaseURL+"/blobs", strings.Split(strings.TrimPrefix(clean, "/"), "/")...)
	if err != nil {
		return "", errors.Wrap(err, "blob url")
	}
	return u, nil
}

// Folder is the directory blobs are written to, for serving them back.
func (b *DiskBlobStore) Folder() string {
	return path.Join(b.disk.RootFolder, "blobs")
}
