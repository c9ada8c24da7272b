package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/blog-backend/internal/model"
)

var _ Host = (*LocalHost)(nil)

// LocalHost keeps images on the local disk under baseDir. The server exposes
// baseDir over HTTP, and baseURL is where that mount is reachable.
//
// Every path is resolved inside baseDir; ids that would escape it are refused.
type LocalHost struct {
	baseDir string
	baseURL string
}

func NewLocalHost(baseDir, baseURL string) (*LocalHost, error) {
	if baseDir == "" || baseURL == "" {
		return nil, fmt.Errorf("%w: directory and base URL are required", ErrInvalidConfig)
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", ErrInvalidConfig, baseDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrInvalidConfig, abs, err)
	}

	return &LocalHost{baseDir: abs, baseURL: strings.TrimSuffix(baseURL, "/") + "/"}, nil
}

// Dir is the directory the server should serve.
func (h *LocalHost) Dir() string { return h.baseDir }

func (h *LocalHost) path(publicID string) (string, error) {
	p := filepath.Join(h.baseDir, filepath.FromSlash(publicID))
	if !strings.HasPrefix(p, h.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("media: id %q escapes the media directory", publicID)
	}
	return p, nil
}

// Upload writes body to a new file. A partially written file is removed.
func (h *LocalHost) Upload(ctx context.Context, name, contentType string, body io.Reader) (model.Image, error) {
	if err := ctx.Err(); err != nil {
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}

	key := objectKey(name, contentType)
	p, err := h.path(key)
	if err != nil {
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}

	f, err := os.Create(p)
	if err != nil {
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(p)
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return model.Image{}, errors.Join(ErrUploadFailed, err)
	}

	return model.Image{URL: h.baseURL + key, PublicID: key}, nil
}

// Remove deletes the file. A file that is already gone is not an error.
func (h *LocalHost) Remove(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	p, err := h.path(publicID)
	if err != nil {
		return errors.Join(ErrRemoveFailed, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrRemoveFailed, err)
	}
	return nil
}

func (h *LocalHost) RemoveMany(ctx context.Context, publicIDs []string) error {
	var errs []error
	for _, id := range nonEmpty(publicIDs) {
		if err := h.Remove(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
