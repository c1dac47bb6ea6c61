package main

import (
	"net/http"

	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
)

type modificationRequest struct {
	Instructions string `json:"instructions"`
}

type modificationResponse struct {
	Plan plan.Plan `json:"plan"`
	// Unchanged is set when the generative service failed and the plan was kept as it was.
	Unchanged bool `json:"unchanged"`
}

// planGeneratePOST starts an approval cycle. The body optionally carries the profile to save first, so that
// onboarding can finish and generate in one request.
func (app *application) planGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	submitted, err := decodeJSON(w, r, &p, true)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	var prof *profile.Profile
	if submitted {
		prof = &p
	}
	pending, err := app.coach.GeneratePlan(r.Context(), prof)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, pending)
}

func (app *application) planPendingGET(w http.ResponseWriter, r *http.Request) {
	pending, err := app.coach.Pending(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, pending)
}

func (app *application) planApprovePOST(w http.ResponseWriter, r *http.Request) {
	committed, err := app.coach.ApprovePlan(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, committed)
}

func (app *application) planPendingModifyPOST(w http.ResponseWriter, r *http.Request) {
	var in modificationRequest
	if _, err := decodeJSON(w, r, &in, false); err != nil {
		app.respondError(w, r, err)
		return
	}
	pending, err := app.coach.RequestModification(r.Context(), in.Instructions)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, pending)
}

func (app *application) planGET(w http.ResponseWriter, r *http.Request) {
	dashboard, err := app.coach.ActivePlan(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, dashboard)
}

func (app *application) planTodayGET(w http.ResponseWriter, r *http.Request) {
	today, err := app.coach.TodaysWorkout(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, today)
}

// planModifyPOST adapts the committed plan outside of the approval cycle.
func (app *application) planModifyPOST(w http.ResponseWriter, r *http.Request) {
	var in modificationRequest
	if _, err := decodeJSON(w, r, &in, false); err != nil {
		app.respondError(w, r, err)
		return
	}
	result, err := app.coach.ModifySchedule(r.Context(), in.Instructions)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, modificationResponse{Plan: result.Plan, Unchanged: result.Failure != nil})
}
