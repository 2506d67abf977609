package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ImageStore persists uploaded cover images under a local directory and
// serves them back by URL path. Saving is independent of any database write,
// so a mutation that fails after a successful save leaves the file behind.
type ImageStore struct {
	dir       string
	urlPrefix string
}

func NewImageStore(dir string) *ImageStore {
	if dir == "" {
		dir = "./uploads"
	}
	return &ImageStore{dir: dir, urlPrefix: "/uploads"}
}

// Dir is the filesystem directory images are written to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file under a fresh uuid name and returns the URL
// path it will be served from.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s%s", uuid.NewString(), mtype.Extension())
	dstPath := filepath.Join(s.dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", err
	}

	return s.urlPrefix + "/" + name, nil
}
