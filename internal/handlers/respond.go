// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API: authentication, posts,
// categories and user administration. Every handler authorizes through
// access.Decide and answers errors through writeErr.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/metrics"
	"cmsmini/internal/middleware"
)

// maxBodyBytes caps request bodies; post content is the largest field.
const maxBodyBytes = 1 << 20

// errorBody is the envelope for every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes data with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

// writeRaw writes an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// errorStatus maps an error to its response status and code.
func errorStatus(err error) (int, string) {
	switch apperr.Kind(err) {
	case apperr.ErrUnauthenticated:
		return http.StatusUnauthorized, "unauthenticated"
	case apperr.ErrAccountDisabled:
		return http.StatusForbidden, "account_disabled"
	case apperr.ErrInsufficientPermission:
		return http.StatusForbidden, "forbidden"
	case apperr.ErrInvalidParameter:
		return http.StatusBadRequest, "invalid_parameter"
	case apperr.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case apperr.ErrConflictingState:
		return http.StatusConflict, "conflict"
	case apperr.ErrCycleDetected:
		return http.StatusInternalServerError, "data_integrity"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeErr answers err with its fixed status. Server-side failures are
// logged and their details withheld from the client.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()

	switch code {
	case "data_integrity":
		slog.Error("category data integrity violation", "error", err, "path", r.URL.Path)
		message = "stored category data is inconsistent"
	case "internal_error":
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		message = "internal server error"
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeError(w, status, code, message)
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", apperr.ErrInvalidParameter)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", apperr.ErrInvalidParameter, err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", apperr.ErrInvalidParameter, raw)
	}
	return id, nil
}

// authorize runs the access decision for the request's principal.
func authorize(r *http.Request, action access.Action, owner *uuid.UUID) error {
	d := access.Decide(middleware.PrincipalFromCtx(r.Context()), action, owner)
	metrics.RecordAccessDecision(string(action), d.Allowed)
	return d.Err(action)
}

// message is the body for operations that return no resource.
type message struct {
	Message string `json:"message"`
}

// NotFound answers unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "route not found")
}

// MethodNotAllowed answers routes matched with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// page wraps one listing page; an empty page encodes items as [].
func page[T any](items []T, q listing.QuerySpec, total int) listing.Page[T] {
	if items == nil {
		items = []T{}
	}
	return listing.Page[T]{Items: items, Pagination: listing.NewEnvelope(q, total)}
}
