package main

import (
	"context"
	"net/http"

	"github.com/myrjola/rexcoach/internal/session"
)

type startSessionRequest struct {
	// Day is a weekday name. Empty starts today's workout.
	Day string `json:"day"`
}

type setRequest struct {
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight"`
}

func (app *application) sessionPOST(w http.ResponseWriter, r *http.Request) {
	var in startSessionRequest
	if _, err := decodeJSON(w, r, &in, true); err != nil {
		app.respondError(w, r, err)
		return
	}
	state, err := app.coach.StartSession(r.Context(), in.Day)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, state)
}

func (app *application) sessionGET(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.SessionState)
}

func (app *application) sessionSetsPOST(w http.ResponseWriter, r *http.Request) {
	var in setRequest
	if _, err := decodeJSON(w, r, &in, false); err != nil {
		app.respondError(w, r, err)
		return
	}
	result, err := app.coach.CompleteSet(r.Context(), in.Reps, in.Weight)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) sessionRestStartPOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.StartRest)
}

func (app *application) sessionRestPausePOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.PauseRest)
}

func (app *application) sessionRestResumePOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.ResumeRest)
}

func (app *application) sessionRestSkipPOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.SkipRest)
}

func (app *application) sessionNextPOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.NextExercise)
}

func (app *application) sessionPreviousPOST(w http.ResponseWriter, r *http.Request) {
	app.respondState(w, r, app.coach.PreviousExercise)
}

func (app *application) sessionEndPOST(w http.ResponseWriter, r *http.Request) {
	summary, err := app.coach.EndSession(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, summary)
}

func (app *application) respondState(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context) (session.State, error),
) {
	state, err := op(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, state)
}
