package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/service"
)

// MaxImageSize is the largest accepted image upload.
const MaxImageSize = 1 << 20

// multipart framing and the text fields that travel with the image
const formOverhead = 64 << 10

// image is an uploaded file that must be closed after use.
type image struct {
	service.Upload
	file multipart.File
	form *multipart.Form
}

func (i *image) Close() error {
	err := i.file.Close()
	if i.form != nil {
		err = errors.Join(err, i.form.RemoveAll())
	}
	return err
}

// readImage parses a multipart request and returns its "image" file.
//
// Only images of at most MaxImageSize bytes are accepted. The type is
// sniffed from the content, not taken from the client's header.
func readImage(w http.ResponseWriter, r *http.Request) (*image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+formOverhead)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperror.ValidationFailed("image", "image is too large, max 1MB")
		}
		return nil, apperror.ValidationFailed("image", "no image provided")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, apperror.ValidationFailed("image", "no image provided")
	}

	img := &image{file: file, form: r.MultipartForm}
	if header.Size > MaxImageSize {
		img.Close()
		return nil, apperror.ValidationFailed("image", "image is too large, max 1MB")
	}

	var sniff [512]byte
	n, err := io.ReadFull(file, sniff[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		img.Close()
		return nil, apperror.ValidationFailed("image", "no image provided")
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		img.Close()
		return nil, apperror.ValidationFailed("image", "Unsupported file format")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		img.Close()
		return nil, err
	}

	img.Upload = service.Upload{
		Name:        header.Filename,
		ContentType: contentType,
		Body:        file,
	}
	return img, nil
}
