// =============================================================================
// NF-e / DANFE Filter - HTTP Upload Server
// =============================================================================
//
// This module exposes the filter over HTTP:
//
//   GET  /                 upload form
//   GET  /health           liveness probe
//   POST /api/v1/filtros   multipart upload, returns the result ZIP
//
// POST fields: xml_zip and danfe_zip (files, at least one), modo, pedido
// (comma-separated), nf_inicio, nf_fim. Invalid requests get a 400 with a
// JSON body {"message": ..., "errors": [...]}.
//
// =============================================================================

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/pipeline"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/validation"
)

// ResultFileName is the download name of the result archive.
const ResultFileName = "resultado_filtrado.zip"

// Runner executes one filter run.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// Options configures the server.
type Options struct {
	Addr            string
	Logger          *slog.Logger
	Runner          Runner
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the upload endpoint.
type Server struct {
	log             *slog.Logger
	runner          Runner
	maxUploadBytes  int64
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 256 << 20
	}

	s := &Server{
		log:             opts.Logger,
		runner:          opts.Runner,
		maxUploadBytes:  opts.MaxUploadBytes,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleForm)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/api/v1/filtros", s.handleFilter)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx := context.Background()
		if s.shutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.shutdownTimeout)
			defer cancel()
		}
		s.log.Info("HTTP server stopping")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("request_id", chimw.GetReqID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload excede o tamanho máximo", nil)
			return
		}
		s.writeError(w, http.StatusBadRequest, "formulário multipart inválido", []string{err.Error()})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	records, err := readUpload(r, "xml_zip")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "falha ao ler xml_zip", []string{err.Error()})
		return
	}
	renderings, err := readUpload(r, "danfe_zip")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "falha ao ler danfe_zip", []string{err.Error()})
		return
	}

	in := pipeline.Input{
		RecordArchive:    records,
		RenderingArchive: renderings,
		Mode:             r.FormValue("modo"),
		OrderIDs:         types.SplitOrderIDs(r.FormValue("pedido")),
		Low:              r.FormValue("nf_inicio"),
		High:             r.FormValue("nf_fim"),
	}

	result, err := s.runner.Run(r.Context(), in)
	if err != nil {
		var inputErr *validation.InputError
		if errors.As(err, &inputErr) {
			s.writeError(w, http.StatusBadRequest, "requisição inválida", inputErr.Messages())
			return
		}
		log.Error("filter run failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "falha ao processar os arquivos", nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ResultFileName))
	w.Header().Set("X-Run-ID", result.RunID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Archive); err != nil {
		log.Warn("failed to send result archive", "error", err)
	}
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, uploadForm)
}

// readUpload returns the bytes of an optional file field; nil when absent.
func readUpload(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, errs []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Errors: errs}); err != nil {
		s.log.Error("failed to encode error response", "error", err)
	}
}

const uploadForm = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Filtro de NF-e e DANFE</title></head>
<body>
<h1>Filtro de XMLs e DANFEs</h1>
<form method="post" action="/api/v1/filtros" enctype="multipart/form-data">
  <p><label>XMLs (ZIP, opcional) <input type="file" name="xml_zip" accept=".zip"></label></p>
  <p><label>DANFEs (ZIP, opcional) <input type="file" name="danfe_zip" accept=".zip"></label></p>
  <p>
    <label><input type="radio" name="modo" value="pedido" checked> Filtrar por Pedido</label>
    <label><input type="radio" name="modo" value="intervalo"> Filtrar por Intervalo de NF</label>
    <label><input type="radio" name="modo" value="pedido+intervalo"> Filtrar por Pedido + Intervalo</label>
  </p>
  <p><label>Pedido(s) <input type="text" name="pedido" placeholder="7373, 7374"></label></p>
  <p><label>NF inicial <input type="number" name="nf_inicio" min="0"></label>
     <label>NF final <input type="number" name="nf_fim" min="0"></label></p>
  <p><button type="submit">Processar</button></p>
</form>
</body>
</html>
`
