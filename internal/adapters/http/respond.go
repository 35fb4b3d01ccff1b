package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"sportify/internal/adapters/http/middleware"
	"sportify/internal/application/listutil"
	"sportify/internal/application/projections"
	"sportify/internal/application/session"
	"sportify/internal/domain/fault"
	"sportify/internal/domain/notification"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps a fault kind to its HTTP status.
func statusFor(k fault.Kind) int {
	switch k {
	case fault.KindAuth:
		return http.StatusUnauthorized
	case fault.KindAuthorization:
		return http.StatusForbidden
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindConflict:
		return http.StatusConflict
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http_event", "event", "encode_failed", "error", err)
	}
}

// writeError reports err to the caller and mirrors it on their toast bus.
// Unclassified errors are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		internalError(w, err)
		return
	}
	status := statusFor(fe.Kind)
	if fe.Kind == fault.KindRemote {
		slog.Error("http_event", "event", "remote_failure", "path", r.URL.Path, "error", err)
	}
	pushToast(r, fe.Msg, notification.SeverityError)
	writeJSON(w, status, errorBody{Error: fe.Msg, Kind: fe.Kind.String()})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Kind: "internal"})
}

// badRequest answers a malformed body.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: fault.KindValidation.String()})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOrReject decodes the body into v, answering 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(r, v); err != nil {
		badRequest(w, "invalid JSON")
		return false
	}
	return true
}

// snapshot returns the caller's settled session.
func snapshot(r *http.Request) session.Snapshot {
	return middleware.SnapshotFromContext(r.Context())
}

// pushToast publishes to the caller's notification bus, if they have one.
func pushToast(r *http.Request, msg string, severity notification.Severity) {
	if c, ok := middleware.ClientFromContext(r.Context()); ok {
		c.Toasts.Publish(msg, severity, 0)
	}
}

// writeView answers a one-shot feed read.
func writeView[T any](w http.ResponseWriter, r *http.Request, v projections.View[T], err error) {
	if err == nil {
		err = v.Err
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Items)
}

// writePage answers a one-shot feed read paged and searched by the
// page, per_page and q query parameters. text names the searchable fields.
func writePage[T any](w http.ResponseWriter, r *http.Request, v projections.View[T], err error, text func(T) []string) {
	if err == nil {
		err = v.Err
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	params := listutil.ParseParams(r.URL.Query())
	writeJSON(w, http.StatusOK, listutil.Paginate(v.Items, params, func(it projections.Item[T]) []string { return text(it.Value) }))
}
