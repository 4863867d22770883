package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"dictation/internal/service"
	"dictation/internal/utils"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps core error kinds to HTTP statuses
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var validationErr utils.ValidationError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, service.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrStaleLoad):
		respondWithError(w, http.StatusConflict, err.Error(), "", nil)
	case errors.Is(err, service.ErrConfiguration):
		respondWithError(w, http.StatusNotFound, err.Error(), logMsg, err)
	case errors.Is(err, service.ErrFetch), errors.Is(err, service.ErrFormat):
		respondWithError(w, http.StatusBadGateway, "Failed to load items", logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
