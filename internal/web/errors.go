package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged server-side with its technical detail and request ID,
// then mapped via core.MapError to a user message with an action and a
// support code. API routes answer in JSON; the report page renders an alert.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/JonMunkholm/tableload/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

// errNoFile is returned when a request carries no file.
var errNoFile = errors.New("no file in request")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFile), errors.Is(err, errBadParam):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, source.ErrUnknownFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, destination.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSchemaMismatch), errors.Is(err, core.ErrNotLoadable):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyLoads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message in the format
// the request expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := errorMessage(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Layout("tableload", templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code)).Render(r.Context(), w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// errorMessage maps err to a user message, covering errors that only the
// web layer produces.
func errorMessage(err error) core.UserMessage {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errNoFile):
		return core.UserMessage{
			Message: "No file was uploaded",
			Action:  "Attach a file in the \"file\" form field",
			Code:    "REQ001",
		}
	case errors.Is(err, errBadParam):
		return core.UserMessage{
			Message: "The request has an invalid parameter: " + err.Error(),
			Action:  "Use true or false for create, clear, dry_run and batch",
			Code:    "REQ003",
		}
	case errors.As(err, &maxBytes):
		return core.UserMessage{
			Message: "The file is too large",
			Action:  "Split the file or ask an administrator to raise the upload limit",
			Code:    "REQ002",
		}
	}
	return core.MapError(err)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
