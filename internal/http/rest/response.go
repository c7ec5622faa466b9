package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/parklistmc/parklist/util"
	"github.com/parklistmc/parklist/util/tracing"
)

// ServerResponse is what every Handler returns. Data is written as the
// response body on success; failures are written as {"error": Message}.
type ServerResponse struct {
	Message    string
	Status     string
	StatusCode int
	Data       interface{}
	Err        error
}

type errorBody struct {
	Error string `json:"error"`
}

func (resp *ServerResponse) body() interface{} {
	if resp.Err != nil || resp.StatusCode >= http.StatusBadRequest {
		return errorBody{Error: resp.Message}
	}
	if resp.Data == nil {
		return struct{}{}
	}
	return resp.Data
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	code := util.StatusCode(status)
	attrs := []any{"status", status, "message", message}
	if tc != nil {
		attrs = append(attrs, "request_id", tc.RequestID, "source", tc.RequestSource)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Debug("request rejected", attrs...)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: code,
		Err:        err,
	}
}

func writeJSONResponse(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(content); err != nil {
		slog.Warn("unable to write response", "error", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	if err != nil {
		slog.Debug("request rejected", "status", status, "message", message, "error", err)
	}
	content, _ := json.Marshal(errorBody{Error: message})
	writeJSONResponse(w, content, util.StatusCode(status))
}
