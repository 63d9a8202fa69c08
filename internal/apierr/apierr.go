// Package apierr carries typed errors across package boundaries so the HTTP layer can map
// them to status codes without string matching.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// InputShapeError reports required columns that could not be matched in an input table.
type InputShapeError struct {
	Source    string
	Missing   []string
	Available []string
}

func (e *InputShapeError) Error() string {
	msg := fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

// EmptyResultError means the run completed but produced nothing to mine or report.
type EmptyResultError struct {
	Reason string
}

func (e *EmptyResultError) Error() string {
	return e.Reason
}

// HTTPStatus maps an error chain to a response status.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	var shape *InputShapeError
	if errors.As(err, &shape) {
		return http.StatusBadRequest
	}
	var empty *EmptyResultError
	if errors.As(err, &empty) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Code maps an error chain to a stable machine-readable code.
func Code(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	var shape *InputShapeError
	if errors.As(err, &shape) {
		return "missing_columns"
	}
	var empty *EmptyResultError
	if errors.As(err, &empty) {
		return "empty_result"
	}
	return fallback
}
