package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ent0n29/scheherazade/internal/extract"
)

const maxUploadBytes = 32 << 20

// handleExtract accepts a multipart document upload and returns its plain
// text. The upload is spooled to a temp file and removed before responding.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if err := tmp.Close(); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	text, err := s.extractor.ExtractText(tmpPath)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			respondError(w, http.StatusUnsupportedMediaType, "unsupported_format", err.Error())
		case errors.Is(err, extract.ErrCorruptInput):
			respondError(w, http.StatusBadRequest, "corrupt_document", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "extraction_error", err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}
