package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, message string, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Details: details,
	})
	if encodeErr != nil {
		log.Errorf("could not encode error response: %v", encodeErr)
	}
}

// WriteJSON encodes body as the JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("could not encode response: %v", err)
	}
}

// WriteAttachment sends content as a file download.
func WriteAttachment(w http.ResponseWriter, filename string, contentType string, content []byte) {
	WriteAttachmentStatus(w, http.StatusOK, filename, contentType, content)
}

// WriteAttachmentStatus is WriteAttachment with an explicit status code.
func WriteAttachmentStatus(w http.ResponseWriter, status int, filename string, contentType string, content []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.WriteHeader(status)
	if _, err := w.Write(content); err != nil {
		log.Errorf("could not write attachment %s: %v", filename, err)
	}
}
