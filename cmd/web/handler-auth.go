package main

import (
	"net/http"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID int `json:"userId"`
}

func (app *application) registerPOST(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if _, err := decodeJSON(w, r, &in, false); err != nil {
		app.respondError(w, r, err)
		return
	}
	userID, err := app.auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if err = app.coach.SignIn(r.Context(), userID); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, userResponse{UserID: userID})
}

func (app *application) loginPOST(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if _, err := decodeJSON(w, r, &in, false); err != nil {
		app.respondError(w, r, err)
		return
	}
	userID, err := app.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if err = app.coach.SignIn(r.Context(), userID); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, userResponse{UserID: userID})
}

// logoutPOST tears down the athlete context before the session so that in-flight plan requests are discarded.
func (app *application) logoutPOST(w http.ResponseWriter, r *http.Request) {
	app.coach.SignOut(r.Context())
	if err := app.auth.Logout(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]string{"status": "signed out"})
}
