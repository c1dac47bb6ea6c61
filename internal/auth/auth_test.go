package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/rexcoach/internal/auth"
	"github.com/myrjola/rexcoach/internal/contexthelpers"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/sqlite"
	"github.com/myrjola/rexcoach/internal/testhelpers"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	server *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	sessions := auth.NewSessionManager(db, auth.SessionConfig{Lifetime: time.Hour, SecureCookies: false})
	authenticator, err := auth.New(db, sessions, logger, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	writeResult := func(w http.ResponseWriter, userID int, err error) {
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]int{"userId": userID})
		case errors.Is(err, auth.ErrInvalidCredentials):
			w.WriteHeader(http.StatusUnauthorized)
		case errors.Is(err, auth.ErrUsernameTaken):
			w.WriteHeader(http.StatusConflict)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticator.Register(r.Context(), r.FormValue("username"), r.FormValue("password"))
		writeResult(w, userID, err)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticator.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
		writeResult(w, userID, err)
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, 0, authenticator.Logout(r.Context()))
	})
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeResult(w, contexthelpers.AuthenticatedUserID(r.Context()), nil)
	})

	server := httptest.NewServer(sessions.LoadAndSave(authenticator.AuthenticateMiddleware(mux)))
	t.Cleanup(func() {
		server.Close()
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := server.Client()
	client.Jar = jar
	return &harness{server: server, client: client}
}

func (h *harness) do(t *testing.T, method, path string, form url.Values) (int, int) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, h.server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var body struct {
		UserID int `json:"userId"`
	}
	if resp.StatusCode == http.StatusOK {
		if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
	}
	return resp.StatusCode, body.UserID
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func TestAuthenticator(t *testing.T) {
	h := newHarness(t)

	if status, _ := h.do(t, http.MethodGet, "/whoami", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous whoami status %d, want 401", status)
	}

	status, registered := h.do(t, http.MethodPost, "/register", credentials("athlete", "correct horse"))
	if status != http.StatusOK || registered == 0 {
		t.Fatalf("register status %d user %d", status, registered)
	}
	if status, got := h.do(t, http.MethodGet, "/whoami", nil); status != http.StatusOK || got != registered {
		t.Fatalf("whoami after register = %d %d, want 200 %d", status, got, registered)
	}

	if status, _ = h.do(t, http.MethodPost, "/register", credentials("athlete", "another password")); status != http.StatusConflict {
		t.Errorf("duplicate register status %d, want 409", status)
	}

	if status, _ = h.do(t, http.MethodPost, "/logout", nil); status != http.StatusOK {
		t.Fatalf("logout status %d", status)
	}
	if status, _ = h.do(t, http.MethodGet, "/whoami", nil); status != http.StatusUnauthorized {
		t.Errorf("whoami after logout status %d, want 401", status)
	}

	if status, _ = h.do(t, http.MethodPost, "/login", credentials("athlete", "wrong password")); status != http.StatusUnauthorized {
		t.Errorf("wrong password status %d, want 401", status)
	}
	if status, _ = h.do(t, http.MethodPost, "/login", credentials("nobody", "correct horse")); status != http.StatusUnauthorized {
		t.Errorf("unknown user status %d, want 401", status)
	}
	status, loggedIn := h.do(t, http.MethodPost, "/login", credentials(" athlete ", "correct horse"))
	if status != http.StatusOK || loggedIn != registered {
		t.Errorf("login = %d %d, want 200 %d", status, loggedIn, registered)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "short username", username: "ab", password: "long enough"},
		{name: "blank username", username: "    ", password: "long enough"},
		{name: "short password", username: "athlete", password: "short"},
		{name: "password over bcrypt limit", username: "athlete", password: strings.Repeat("x", 73)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, _ := h.do(t, http.MethodPost, "/register", credentials(tt.username, tt.password)); status != http.StatusBadRequest {
				t.Errorf("status %d, want 400", status)
			}
		})
	}
}
