package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("receipt", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["receipt"][0]
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 1024)
	require.NoError(t, err)

	ref, err := store.Save(fileHeader(t, "receipt.PNG", pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, PublicPrefix))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestStore_Save_UniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir(), 1024)
	require.NoError(t, err)

	a, err := store.Save(fileHeader(t, "a.png", pngHeader))
	require.NoError(t, err)
	b, err := store.Save(fileHeader(t, "a.png", pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStore_Save_Rejects(t *testing.T) {
	store, err := NewStore(t.TempDir(), 64)
	require.NoError(t, err)

	_, err = store.Save(fileHeader(t, "notes.txt", pngHeader))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Save(fileHeader(t, "fake.png", []byte("just some text, not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = store.Save(fileHeader(t, "big.png", append(pngHeader, make([]byte, 100)...)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Save(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestStore_Remove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 1024)
	require.NoError(t, err)

	ref, err := store.Save(fileHeader(t, "r.png", pngHeader))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ref))
	_, err = os.Stat(filepath.Join(dir, filepath.Base(ref)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(ref))
	assert.NoError(t, store.Remove("https://elsewhere.example/x.png"))
}
