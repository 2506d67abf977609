package storage

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("topImage", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r := multipart.NewReader(body, w.Boundary())
	form, err := r.ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["topImage"][0]
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir)

	fh := makeFileHeader(t, "cover.png", pngBytes)
	url, err := store.Save(fh)

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"), "extension comes from the sniffed MIME type")

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	assert.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestSave_UniqueNames(t *testing.T) {
	store := NewImageStore(t.TempDir())

	url1, err1 := store.Save(makeFileHeader(t, "cover.png", pngBytes))
	url2, err2 := store.Save(makeFileHeader(t, "cover.png", pngBytes))

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NotEqual(t, url1, url2, "same filename twice must not collide")
}

func TestSave_IgnoresClientExtension(t *testing.T) {
	store := NewImageStore(t.TempDir())

	url, err := store.Save(makeFileHeader(t, "cover.exe", pngBytes))

	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"))
}
