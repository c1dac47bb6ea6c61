package main

import (
	"net/http"
	"time"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared = func(d time.Duration, next http.Handler) http.Handler {
			return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(
				app.timeout(d)(app.recoverPanic(noCache(next))))))
		}
		session = func(d time.Duration, next http.Handler) http.Handler {
			return shared(d, app.sessionManager.LoadAndSave(app.auth.AuthenticateMiddleware(next)))
		}
		mustSession = func(next http.HandlerFunc) http.Handler {
			return session(defaultTimeout, app.mustAuthenticate(next))
		}
		// Routes calling the generative service wait for it longer than the default timeout.
		mustSessionAI = func(next http.HandlerFunc) http.Handler {
			return session(app.aiTimeout+aiRouteMargin, app.mustAuthenticate(next))
		}
	)

	mux.Handle("GET /api/healthy", shared(defaultTimeout, http.HandlerFunc(app.healthy)))

	mux.Handle("POST /api/register", session(defaultTimeout, http.HandlerFunc(app.registerPOST)))
	mux.Handle("POST /api/login", session(defaultTimeout, http.HandlerFunc(app.loginPOST)))
	mux.Handle("POST /api/logout", mustSession(app.logoutPOST))

	mux.Handle("GET /api/profile", mustSession(app.profileGET))
	mux.Handle("PUT /api/profile", mustSession(app.profilePUT))
	mux.Handle("PATCH /api/profile", mustSession(app.profilePATCH))

	mux.Handle("POST /api/plan/generate", mustSessionAI(app.planGeneratePOST))
	mux.Handle("GET /api/plan/pending", mustSession(app.planPendingGET))
	mux.Handle("POST /api/plan/pending/approve", mustSession(app.planApprovePOST))
	mux.Handle("POST /api/plan/pending/modify", mustSessionAI(app.planPendingModifyPOST))
	mux.Handle("GET /api/plan", mustSession(app.planGET))
	mux.Handle("GET /api/plan/today", mustSession(app.planTodayGET))
	mux.Handle("POST /api/plan/modify", mustSessionAI(app.planModifyPOST))

	mux.Handle("POST /api/session", mustSession(app.sessionPOST))
	mux.Handle("GET /api/session", mustSession(app.sessionGET))
	mux.Handle("POST /api/session/sets", mustSession(app.sessionSetsPOST))
	mux.Handle("POST /api/session/rest/start", mustSession(app.sessionRestStartPOST))
	mux.Handle("POST /api/session/rest/pause", mustSession(app.sessionRestPausePOST))
	mux.Handle("POST /api/session/rest/resume", mustSession(app.sessionRestResumePOST))
	mux.Handle("POST /api/session/rest/skip", mustSession(app.sessionRestSkipPOST))
	mux.Handle("POST /api/session/next", mustSession(app.sessionNextPOST))
	mux.Handle("POST /api/session/previous", mustSession(app.sessionPreviousPOST))
	mux.Handle("POST /api/session/end", mustSession(app.sessionEndPOST))

	mux.Handle("GET /api/notices", mustSession(app.noticesGET))

	mux.Handle("/", shared(defaultTimeout, http.HandlerFunc(app.notFound)))

	return mux
}
