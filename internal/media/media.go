// Package media stores uploaded images on an external host.
//
// An uploaded file is identified by its PublicID (the host-side object key),
// which is what the stores persist next to the public URL so the file can be
// removed later. Removing an empty PublicID is a no-op: that is the default
// profile photo, which was never uploaded.
package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/blog-backend/internal/model"
)

var (
	ErrInvalidConfig = errors.New("media: invalid configuration")
	ErrUploadFailed  = errors.New("media: upload failed")
	ErrRemoveFailed  = errors.New("media: remove failed")
)

// Host is the media host contract.
type Host interface {
	// Upload stores body and returns its public URL and id. name is the
	// client's file name and is only used for the extension.
	Upload(ctx context.Context, name, contentType string, body io.Reader) (model.Image, error)
	Remove(ctx context.Context, publicID string) error
	RemoveMany(ctx context.Context, publicIDs []string) error
}

// objectKey returns a fresh "images/<xid><ext>" key. The extension comes from
// the file name, or from the content type when the name has none.
func objectKey(name, contentType string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "images/" + xid.New().String() + ext
}

// nonEmpty drops blank ids.
func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
