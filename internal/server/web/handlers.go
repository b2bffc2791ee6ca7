package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/djamrezki/storage-stream-api/internal/common"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
	"github.com/djamrezki/storage-stream-api/internal/server/services"
)

// ownerHeader carries the caller's identity. Authentication itself is the
// deployment's business (a gateway or sidecar fills the header).
const ownerHeader = "X-User-Id"

type fileJSON struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Visibility  string    `json:"visibility"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

func toFileJSON(e *models.FileEntry) fileJSON {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return fileJSON{
		ID:          e.ID,
		Filename:    e.Filename,
		ContentType: e.ContentType,
		Size:        e.Size,
		Visibility:  string(e.Visibility),
		Tags:        tags,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Version:     e.Version,
	}
}

// tagsParam splits the comma-separated tags query value. Normalization
// is the service's job.
func tagsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("tags")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)

	q := r.URL.Query()
	tags := tagsParam(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	res, err := s.files.Upload(r.Context(), services.UploadCommand{
		OwnerID:         owner,
		Filename:        q.Get("filename"),
		Visibility:      models.Visibility(strings.ToUpper(q.Get("visibility"))),
		Tags:            tags,
		ContentTypeHint: r.Header.Get("Content-Type"),
		Body:            r.Body,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"file_id":        res.FileID,
		"download_token": res.Token,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing %s header", common.ErrValidation, ownerHeader))
		return
	}

	entries, err := s.files.List(r.Context(), owner, tagsParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeFileList(w, entries)
}

// handleListPublic serves the cross-owner listing of PUBLIC files. No
// identity required: this is the one anonymous read besides download.
func (s *Server) handleListPublic(w http.ResponseWriter, r *http.Request) {
	entries, err := s.files.ListPublic(r.Context(), tagsParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeFileList(w, entries)
}

func (s *Server) writeFileList(w http.ResponseWriter, entries []*models.FileEntry) {
	out := make([]fileJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toFileJSON(e))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)

	var req struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON body", common.ErrValidation))
		return
	}

	entry, err := s.files.Rename(r.Context(), owner, r.PathValue("id"), req.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toFileJSON(entry))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)

	if err := s.files.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNewLink(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)

	token, err := s.files.NewLink(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"download_token": token})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	res, err := s.files.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer res.Body.Close()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": res.Filename}))
	if res.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		// Headers are gone; all we can do is note the broken transfer.
		s.logger.Warn(r.Context(), "download copy aborted", "error", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateFilename),
		errors.Is(err, common.ErrDuplicateContent),
		errors.Is(err, common.ErrStaleUpdate):
		return http.StatusConflict
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrVirusDetected):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooLarge):
		// The body tripped MaxBytesReader mid-stream; the pipeline reports
		// it wrapped in its storage error.
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		// Do not leak internals.
		s.writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(payload)
}
