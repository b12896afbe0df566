package models

import (
	"errors"
	"net/http"
)

// ErrNoRecord is returned by storage implementations when a lookup matches
// nothing. Services translate it into a typed NotFound error with the right
// category.
var ErrNoRecord = errors.New("no matching record")

// Error is the typed error surfaced by all request-path operations. The
// live-event ingestion path never propagates these to the submitter; it logs
// and drops instead.
type Error struct {
	Status      int    `json:"-"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (e *Error) Error() string {
	return e.Category + ": " + e.Description
}

func NotFound(category, description string) *Error {
	return &Error{Status: http.StatusNotFound, Category: category, Description: description}
}

func Forbidden(category, description string) *Error {
	return &Error{Status: http.StatusForbidden, Category: category, Description: description}
}

func Conflict(category, description string) *Error {
	return &Error{Status: http.StatusConflict, Category: category, Description: description}
}

func Unavailable(category, description string) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Category: category, Description: description}
}

// StatusOf maps an error to an HTTP status code, defaulting to 500.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
