package taskapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/reinhart/mcpdemo/internal/logger"
)

const maxRequestBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

func writeMappedError(w http.ResponseWriter, err error) {
	var notFound *NotFoundError
	var invalid *ValidationError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, invalid.Error())
	default:
		logger.Error("Task API internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return &ValidationError{Problems: []string{"request body is required"}}
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Problems: []string{"request body is required"}}
		}
		return &ValidationError{Problems: []string{fmt.Sprintf("invalid JSON body: %v", err)}}
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &ValidationError{Problems: []string{"request body must contain exactly one JSON object"}}
	}

	return nil
}
