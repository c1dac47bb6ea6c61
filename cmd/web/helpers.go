package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/rexcoach/internal/auth"
	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
	"github.com/myrjola/rexcoach/internal/session"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.NewSentinel("malformed request body")

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(append(body, '\n')); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write response failed", errors.SlogError(err))
	}
}

// decodeJSON strictly decodes the request body into v. An empty body is accepted when optional is set and leaves v
// untouched, reported by the false return value.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) (bool, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, errors.Join(errMalformedBody, err)
	}
	if dec.More() {
		return false, errMalformedBody
	}
	return true, nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, `{"error":"internal server error"}`+"\n")
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "not found", Fields: nil})
}

//nolint:gochecknoglobals // read-only lookup table.
var errorStatuses = []struct {
	err    error
	status int
}{
	{errMalformedBody, http.StatusBadRequest},
	{profile.ErrMalformed, http.StatusBadRequest},
	{plan.ErrEmptyModification, http.StatusBadRequest},
	{session.ErrInvalidReps, http.StatusBadRequest},
	{session.ErrWeightRequired, http.StatusBadRequest},
	{session.ErrInvalidWeight, http.StatusBadRequest},
	{auth.ErrInvalidUsername, http.StatusBadRequest},
	{auth.ErrInvalidPassword, http.StatusBadRequest},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{coach.ErrUnauthenticated, http.StatusUnauthorized},

	{coach.ErrNoProfile, http.StatusNotFound},
	{coach.ErrNoPendingPlan, http.StatusNotFound},
	{coach.ErrNoActivePlan, http.StatusNotFound},
	{coach.ErrNoSession, http.StatusNotFound},
	{coach.ErrUnknownDay, http.StatusNotFound},
	{coach.ErrRestDay, http.StatusNotFound},

	{coach.ErrInFlight, http.StatusConflict},
	{coach.ErrAlreadyCommitted, http.StatusConflict},
	{coach.ErrDiscarded, http.StatusConflict},
	{coach.ErrSignedOut, http.StatusConflict},
	{coach.ErrStalePlan, http.StatusConflict},
	{coach.ErrSessionInProgress, http.StatusConflict},
	{session.ErrSessionFinished, http.StatusConflict},
	{auth.ErrUsernameTaken, http.StatusConflict},
}

// respondError maps domain errors to client errors. Anything unknown is a server error.
func (app *application) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *profile.ValidationError
	if errors.As(err, &validationErr) {
		app.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid profile", Fields: validationErr.Fields})
		return
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			app.logger.LogAttrs(r.Context(), slog.LevelDebug, "client error",
				slog.Int("status", e.status), errors.SlogError(err))
			app.writeJSON(w, r, e.status, errorResponse{Error: e.err.Error(), Fields: nil})
			return
		}
	}
	app.serverError(w, r, err)
}
