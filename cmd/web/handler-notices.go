package main

import (
	"net/http"

	"github.com/myrjola/rexcoach/internal/coach"
)

type noticesResponse struct {
	Notices []coach.Notice `json:"notices"`
}

func (app *application) noticesGET(w http.ResponseWriter, r *http.Request) {
	notices, err := app.coach.Notices(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if notices == nil {
		notices = []coach.Notice{}
	}
	app.writeJSON(w, r, http.StatusOK, noticesResponse{Notices: notices})
}
