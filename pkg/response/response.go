package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"chronolookup-api/pkg/apierror"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries per-response context the client needs to keep.
type Meta struct {
	SessionID string `json:"session_id,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{Success: true, Data: data})
}

// JSONWithSession sends a JSON response that echoes the client session id.
func JSONWithSession(w http.ResponseWriter, statusCode int, data interface{}, sessionID string) {
	resp := Response{Success: true, Data: data}
	if sessionID != "" {
		resp.Meta = &Meta{SessionID: sessionID}
	}
	write(w, statusCode, resp)
}

func write(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// Error sends an error response.
func Error(w http.ResponseWriter, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}

	// Default to internal server error
	apierror.InternalError("an unexpected error occurred").Write(w)
}

// NoContent sends a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
