package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/JonMunkholm/tableload/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// multipartMemory is the part of a multipart form kept in memory.
const multipartMemory = 32 << 20

// defaultHistoryLimit is the number of loads listed when no limit is given.
const defaultHistoryLimit = 20

// errBadParam is returned for malformed query or form values.
var errBadParam = errors.New("invalid parameter")

// upload is a request file spooled to disk under its client-side name.
type upload struct {
	source.File
	filename string
}

func (u upload) Name() string { return u.filename }

// readUpload spools the request's file to a temporary file. Multipart
// requests carry it in the "file" field; any other body is the file itself,
// named by the "filename" query parameter. The returned cleanup removes the
// temporary file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (source.Source, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)

	var (
		body     io.Reader
		filename string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, nil, fmt.Errorf("parse form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errNoFile
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read form file: %w", err)
		}
		defer file.Close()
		body, filename = file, header.Filename
	} else {
		filename = r.URL.Query().Get("filename")
		if filename == "" {
			return nil, nil, errNoFile
		}
		body = r.Body
	}
	filename = filepath.Base(filename)

	tmp, err := os.CreateTemp("", "tableload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("remove upload", "path", tmp.Name(), "error", err)
		}
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		cleanup()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("spool upload: %w", err)
	}
	return upload{File: source.File(tmp.Name()), filename: filename}, cleanup, nil
}

// loadOverrides reads the create, clear, dry_run and batch parameters. A
// missing parameter keeps the service default.
func loadOverrides(r *http.Request) (func(*load.Options), error) {
	fields := []struct {
		name string
		set  func(*load.Options, bool)
	}{
		{"create", func(o *load.Options, v bool) { o.CreateTableIfNeeded = v }},
		{"clear", func(o *load.Options, v bool) { o.ClearTable = v }},
		{"dry_run", func(o *load.Options, v bool) { o.DryRun = v }},
		{"batch", func(o *load.Options, v bool) { o.AddBatch = v }},
	}

	var apply []func(*load.Options)
	for _, f := range fields {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s=%q: %w", f.name, raw, errBadParam)
		}
		set := f.set
		apply = append(apply, func(o *load.Options) { set(o, v) })
	}
	return func(o *load.Options) {
		for _, fn := range apply {
			fn(o)
		}
	}, nil
}

// tableParam returns the table named by the URL or form, or the zero
// name when none was given.
func tableParam(r *http.Request) schema.TableName {
	name := chi.URLParam(r, "table")
	if name == "" {
		name = r.FormValue("table")
	}
	if name == "" {
		return schema.TableName{}
	}
	return schema.ParseTableName(name)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleInfer handles POST /api/infer.
func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.service.Infer(r.Context(), src)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleCompare handles POST /api/compare/{table}.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.service.Compare(r.Context(), src, tableParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleLoad handles POST /api/load/{table}. A refused or failed load
// answers with the mapped error and the load report.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	report, err := s.load(w, r)
	if err != nil {
		status := statusFor(err)
		msg := errorMessage(err)
		slog.Warn("load refused", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		writeJSON(w, loadErrorResponse{
			ErrorResponse: ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code},
			Report:        report,
		})
		return
	}
	writeJSON(w, report)
}

// loadErrorResponse is an error response carrying the report of the
// refused or failed load.
type loadErrorResponse struct {
	ErrorResponse
	Report *load.Report `json:"report,omitempty"`
}

// load runs the load a request describes. The report is nil when the
// request failed before the load started.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*load.Report, error) {
	src, cleanup, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	configure, err := loadOverrides(r)
	if err != nil {
		return nil, err
	}
	report, err := s.service.Run(r.Context(), core.Job{
		Source:    src,
		Table:     tableParam(r),
		Configure: configure,
	})
	return &report, err
}

// handleListLoads handles GET /api/loads.
func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, s.service.History().Recent(limit))
}

// handleGetLoad handles GET /api/loads/{runID}.
func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run ID")
		return
	}
	entry, ok := s.service.History().Find(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "load not found")
		return
	}
	writeJSON(w, entry)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Limiter core.LimiterStatus `json:"limiter"`
	Loads   int                `json:"loads"`
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{
		Limiter: s.service.Limiter().Status(),
		Loads:   s.service.History().Len(),
	})
}

// handleReport handles GET /report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.renderReport(w, r, http.StatusOK, templates.ReportParams{})
}

// handleReportSubmit handles POST /report: the form's compare and load
// actions.
func (s *Server) handleReportSubmit(w http.ResponseWriter, r *http.Request) {
	p, err := s.submitReport(w, r)
	if err != nil {
		msg := errorMessage(err)
		slog.Warn("report action failed", "error", err, "code", msg.Code)
		p.Error = &msg
		s.renderReport(w, r, statusFor(err), p)
		return
	}
	s.renderReport(w, r, http.StatusOK, p)
}

func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) (templates.ReportParams, error) {
	src, cleanup, err := s.readUpload(w, r)
	if err != nil {
		return templates.ReportParams{}, err
	}
	defer cleanup()

	p := templates.ReportParams{Table: r.FormValue("table")}
	table := tableParam(r)
	if table.Table == "" {
		table = core.TableFor(src)
	}

	switch action := r.FormValue("action"); action {
	case "", "compare":
		res, err := s.service.Compare(r.Context(), src, table)
		p.Compare = res
		return p, err
	case "load":
		configure, err := loadOverrides(r)
		if err != nil {
			return p, err
		}
		report, err := s.service.Run(r.Context(), core.Job{Source: src, Table: table, Configure: configure})
		p.Load = &report
		return p, err
	default:
		return p, fmt.Errorf("action=%q: %w", action, errBadParam)
	}
}

func (s *Server) renderReport(w http.ResponseWriter, r *http.Request, status int, p templates.ReportParams) {
	p.History = s.service.History().Recent(defaultHistoryLimit)
	render(r.Context(), w, status, templates.ReportPage(p))
}

// render writes an HTML component with the given status.
func render(ctx context.Context, w http.ResponseWriter, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(ctx, w); err != nil {
		slog.Error("render", "error", err)
	}
}
