package main

import (
	"net/http"

	"github.com/myrjola/rexcoach/internal/profile"
)

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	p, err := app.coach.Profile(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, p)
}

// profilePUT stores the full profile collected by onboarding.
func (app *application) profilePUT(w http.ResponseWriter, r *http.Request) {
	p, err := profile.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if p, err = app.coach.SaveProfile(r.Context(), p); err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, p)
}

// profilePATCH merges the submitted metrics over the stored profile.
func (app *application) profilePATCH(w http.ResponseWriter, r *http.Request) {
	patch, err := profile.DecodePatch(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	p, err := app.coach.UpdateProfile(r.Context(), patch)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, p)
}
