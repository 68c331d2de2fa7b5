package asset

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.Black)
	return img
}

func TestDecodeHeaderFormats(t *testing.T) {
	var pngBuf, jpgBuf, bmpBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, solid(30, 20)))
	require.NoError(t, jpeg.Encode(&jpgBuf, solid(31, 21), nil))
	require.NoError(t, bmp.Encode(&bmpBuf, solid(32, 22)))

	tests := []struct {
		buf  *bytes.Buffer
		want Info
	}{
		{&pngBuf, Info{Width: 30, Height: 20, Format: "png"}},
		{&jpgBuf, Info{Width: 31, Height: 21, Format: "jpeg"}},
		{&bmpBuf, Info{Width: 32, Height: 22, Format: "bmp"}},
	}
	for _, tt := range tests {
		got, err := DecodeHeader(tt.buf)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDecodeHeaderRejectsGarbage(t *testing.T) {
	_, err := DecodeHeader(strings.NewReader("not an image"))
	var le *ImageLoadError
	require.ErrorAs(t, err, &le)
}

func TestLoadAndInfo(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "site.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(40, 10)))
	require.NoError(t, f.Close())

	h := NewHandler(dir)
	info, err := h.Info("site.png")
	require.NoError(t, err)
	assert.Equal(t, 40, info.Width)

	img, err := h.Load("site.png")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dy())

	_, err = h.Load("missing.png")
	var le *ImageLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "missing.png", le.Name)

	_, err = h.Load("../site.png")
	assert.ErrorAs(t, err, &le)
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir)

	var img bytes.Buffer
	require.NoError(t, jpeg.Encode(&img, solid(50, 25), nil))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "junction.jpg")
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.Width)
	assert.Equal(t, "junction.jpg", resp.Name)
	assert.True(t, strings.HasSuffix(resp.File, ".png"))

	info, err := h.Info(resp.File)
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)

	require.NoError(t, h.Delete(resp.File))
	assert.Error(t, h.Delete(resp.File))
}

func TestRemoveRoute(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.png"), []byte("x"), 0o644))

	r := mux.NewRouter()
	r.HandleFunc("/assets/{name}", h.Remove).Methods(http.MethodDelete)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/assets/site.png", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/assets/site.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
