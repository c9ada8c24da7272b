package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-backend/internal/apperror"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", apperror.ValidationFailed("title", "bad"), http.StatusBadRequest, "validation_error"},
		{"conflict", apperror.ConflictMessage("user already exist"), http.StatusBadRequest, "conflict"},
		{"credentials", apperror.InvalidCredentials(), http.StatusBadRequest, "invalid_credentials"},
		{"unverified", apperror.Unverified("check mail"), http.StatusBadRequest, "unverified"},
		{"invalid link", apperror.InvalidLink(), http.StatusBadRequest, "invalid_link"},
		{"not found", apperror.NotFoundMessage("post not found"), http.StatusNotFound, "not_found"},
		{"unauthorized", apperror.Unauthorized("no token"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"upstream", apperror.Upstream("mail down", errors.New("dial tcp")), http.StatusBadGateway, "upstream_error"},
		{"wrapped", fmt.Errorf("service/post: %w", apperror.NotFoundMessage("post not found")), http.StatusNotFound, "not_found"},
		{"plain", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.kind, body.Error)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("sqlite: no such table users"))

	assert.NotContains(t, rr.Body.String(), "sqlite")
}

func TestWriteError_FieldOnlyForValidation(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.NotFoundMessage("post not found"))
	assert.NotContains(t, rr.Body.String(), `"field"`)

	rr = httptest.NewRecorder()
	writeError(rr, apperror.ValidationFailed("title", "bad"))
	assert.Contains(t, rr.Body.String(), `"field":"title"`)
}

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("title", "hello"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadImage(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		req := multipartRequest(t, "image", "cat.png", pngHeader)
		img, err := readImage(httptest.NewRecorder(), req)
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, "cat.png", img.Name)
		assert.Equal(t, "image/png", img.ContentType)
		assert.Equal(t, "hello", req.FormValue("title"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readImage(httptest.NewRecorder(), multipartRequest(t, "", "", nil))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("not an image", func(t *testing.T) {
		req := multipartRequest(t, "image", "evil.png", []byte("#!/bin/sh\necho hi\n"))
		_, err := readImage(httptest.NewRecorder(), req)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, "Unsupported file format", err.Error())
	})

	t.Run("too large", func(t *testing.T) {
		big := append(append([]byte{}, pngHeader...), make([]byte, MaxImageSize+formOverhead)...)
		_, err := readImage(httptest.NewRecorder(), multipartRequest(t, "image", "big.png", big))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
