package main

import (
	"net/http"
	"time"

	"github.com/myrjola/rexcoach/internal/contexthelpers"
	"github.com/myrjola/rexcoach/internal/errors"
)

const timeoutBody = `{"error":"request timed out"}`

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none';")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// mustAuthenticate responds with 401 Unauthorized unless the session belongs to a signed-in user.
func (app *application) mustAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			app.writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "not signed in", Fields: nil})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// crossOriginProtection rejects cross-origin state-changing requests using Go's CrossOriginProtection.
func (app *application) crossOriginProtection(next http.Handler) http.Handler {
	protection := http.NewCrossOriginProtection()
	return protection.Handler(next)
}

// timeout times out the request after d and cancels its context using http.TimeoutHandler. Deadlines beyond the
// server's write timeout extend the connection's write deadline. A flight recorder trace is captured on timeout.
func (app *application) timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerTimeout := d - 200*time.Millisecond //nolint:mnd // writing the response takes time.
			if d > defaultTimeout {
				rc := http.NewResponseController(w)
				if err := rc.SetWriteDeadline(time.Now().Add(d)); err != nil {
					app.serverError(w, r, errors.Wrap(err, "extend write deadline"))
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			sw := newStatusResponseWriter(w)
			http.TimeoutHandler(next, handlerTimeout, timeoutBody).ServeHTTP(sw, r)
			if sw.statusCode == http.StatusServiceUnavailable {
				app.flightRecorder.Capture(r.Context(), "request-timeout")
			}
		})
	}
}
