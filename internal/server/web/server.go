// Package web is the thin HTTP transport: it decodes requests, calls one
// service operation and encodes a JSON envelope. No business logic lives
// here.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/djamrezki/storage-stream-api/internal/logging"
	"github.com/djamrezki/storage-stream-api/internal/server/models"
	"github.com/djamrezki/storage-stream-api/internal/server/services"
)

// maxUploadBytes bounds a single upload body.
const maxUploadBytes int64 = 1 << 30

// FileService is the slice of the service layer the transport calls.
type FileService interface {
	Upload(ctx context.Context, cmd services.UploadCommand) (*services.UploadResult, error)
	Delete(ctx context.Context, ownerID, fileID string) error
	Resolve(ctx context.Context, token string) (*services.DownloadResult, error)
	Rename(ctx context.Context, ownerID, fileID, newName string) (*models.FileEntry, error)
	List(ctx context.Context, ownerID string, tags []string) ([]*models.FileEntry, error)
	ListPublic(ctx context.Context, tags []string) ([]*models.FileEntry, error)
	NewLink(ctx context.Context, ownerID, fileID string) (string, error)
}

type Server struct {
	address string
	files   FileService
	logger  logging.Logger
}

func NewServer(address string, files FileService, logger logging.Logger) *Server {
	return &Server{
		address: address,
		files:   files,
		logger:  logger.With("module", "http_server"),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/files", s.handleUpload)
	mux.HandleFunc("GET /api/files", s.handleList)
	mux.HandleFunc("GET /api/public/files", s.handleListPublic)
	mux.HandleFunc("PATCH /api/files/{id}", s.handleRename)
	mux.HandleFunc("DELETE /api/files/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/files/{id}/links", s.handleNewLink)
	mux.HandleFunc("GET /download/{token}", s.handleDownload)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
