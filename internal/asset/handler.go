package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/siteview/siteview/backend-go/internal/typeid"
)

const maxUploadSize = 20 << 20 // 20MB

// ImageLoadError reports a background image that could not be read or decoded.
type ImageLoadError struct {
	Name string
	Err  error
}

func (e *ImageLoadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("load image: %v", e.Err)
	}
	return fmt.Sprintf("load image %q: %v", e.Name, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// Info is what the editor needs to know about a background image.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// DecodeHeader reads only the image header.
func DecodeHeader(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, &ImageLoadError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, &ImageLoadError{Err: errors.New("image has no pixels")}
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

// Handler serves background image upload and retrieval, and loads images for
// previews and editing sessions.
type Handler struct {
	dir string // directory to store asset files
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

func (h *Handler) path(name string) (string, error) {
	clean := filepath.Base(filepath.Clean("/" + name))
	if clean == "/" || clean == "." || clean != name {
		return "", &ImageLoadError{Name: name, Err: errors.New("invalid file name")}
	}
	return filepath.Join(h.dir, clean), nil
}

// Info reads the header of a stored image by file name.
func (h *Handler) Info(name string) (Info, error) {
	p, err := h.path(name)
	if err != nil {
		return Info{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		return Info{}, &ImageLoadError{Name: name, Err: err}
	}
	defer f.Close()

	info, err := DecodeHeader(f)
	if err != nil {
		var le *ImageLoadError
		if errors.As(err, &le) {
			le.Name = name
		}
		return Info{}, err
	}
	return info, nil
}

// Load decodes a stored image by file name.
func (h *Handler) Load(name string) (image.Image, error) {
	p, err := h.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, &ImageLoadError{Name: name, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ImageLoadError{Name: name, Err: err}
	}
	return img, nil
}

// Upload handles POST /assets/upload (multipart form with "file" field). Any
// decodable format is accepted and stored as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 20MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image: " + err.Error()})
		return
	}

	bounds := img.Bounds()
	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode image"})
		return
	}

	slog.Info("asset uploaded", "id", assetID, "source_format", format, "width", bounds.Dx(), "height", bounds.Dy())
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:     assetID,
		URL:    fmt.Sprintf("/assets/%s", filename),
		File:   filename,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Type:   "png",
		Name:   header.Filename,
	})
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	files := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		if strings.HasPrefix(r.URL.Path, typeid.PrefixAsset+"_") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		files.ServeHTTP(w, r)
	}))
}

// Delete removes a stored image.
func (h *Handler) Delete(name string) error {
	p, err := h.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("asset not found: %s: %w", name, fs.ErrNotExist)
		}
		return err
	}
	return nil
}

// Remove is the HTTP form of Delete.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.Delete(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
