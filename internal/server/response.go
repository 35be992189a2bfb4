package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the JSON envelope for every API reply.
type Response struct {
	Data     any    `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Question string `json:"question,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Message: message})
}

// AppError is an error with an HTTP status. Question, when set, is a
// follow-up to show the patient.
type AppError struct {
	Code     int    `json:"-"`
	Message  string `json:"error"`
	Question string `json:"question,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewConflictError(msg string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// NewUnparseableError reports text the reminder parser could not use.
func NewUnparseableError(msg, question string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: msg, Question: question}
}

// HandleError writes err as a JSON error. Anything that is not an AppError
// becomes a 500 with a generic message.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Code, Response{Error: appErr.Message, Question: appErr.Question})
		return
	}
	writeJSON(w, http.StatusInternalServerError, Response{Error: ErrInternalServer.Message})
}
