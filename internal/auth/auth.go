// Package auth signs athletes in with a username and password. The signed-in user is kept in an scs session backed
// by SQLite and placed into the request context by AuthenticateMiddleware.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/rexcoach/internal/contexthelpers"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/logging"
	"github.com/myrjola/rexcoach/internal/sqlite"
	"golang.org/x/crypto/bcrypt"
)

const (
	userIDSessionKey  = "user_id"
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 8
	// bcrypt ignores anything after 72 bytes.
	maxPasswordBytes = 72
)

var (
	ErrInvalidUsername    = errors.NewSentinel("username must be 3 to 64 characters")
	ErrInvalidPassword    = errors.NewSentinel("password must be 8 to 72 bytes")
	ErrUsernameTaken      = errors.NewSentinel("username is already taken")
	ErrInvalidCredentials = errors.NewSentinel("invalid username or password")
)

// SessionConfig configures NewSessionManager.
type SessionConfig struct {
	Lifetime      time.Duration
	SecureCookies bool
}

// NewSessionManager returns a session manager storing sessions in the sessions table of db.
func NewSessionManager(db *sqlite.Database, cfg SessionConfig) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(db.ReadWrite, 24*time.Hour) //nolint:mnd // daily.
	sessionManager.Lifetime = cfg.Lifetime
	sessionManager.Cookie.Name = "rexcoach_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = cfg.SecureCookies
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

// Authenticator registers and signs in users.
type Authenticator struct {
	db       *sqlite.Database
	sessions *scs.SessionManager
	logger   *slog.Logger
	cost     int
	// dummyHash is compared against when the user does not exist so that unknown usernames take as long as wrong
	// passwords.
	dummyHash []byte
}

// New creates an Authenticator hashing passwords with bcrypt at cost. Zero means bcrypt.DefaultCost.
func New(db *sqlite.Database, sessions *scs.SessionManager, logger *slog.Logger, cost int) (*Authenticator, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, errors.Wrap(err, "generate dummy hash")
	}
	return &Authenticator{db: db, sessions: sessions, logger: logger, cost: cost, dummyHash: dummy}, nil
}

// Register creates a user and signs them in. It returns the new user id.
func (a *Authenticator) Register(ctx context.Context, username, password string) (int, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return 0, ErrInvalidUsername
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return 0, ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return 0, errors.Wrap(err, "hash password")
	}

	var userID int
	err = a.db.ReadWrite.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id`, username, hash).Scan(&userID)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return 0, ErrUsernameTaken
	}
	if err != nil {
		return 0, errors.Wrap(err, "insert user", slog.String("username", username))
	}
	a.logger.LogAttrs(ctx, slog.LevelInfo, "user registered", slog.Int("user_id", userID))

	if err = a.signIn(ctx, userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// Login verifies the credentials and signs the user in. It returns the user id.
func (a *Authenticator) Login(ctx context.Context, username, password string) (int, error) {
	var (
		userID int
		hash   []byte
	)
	err := a.db.ReadOnly.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, errors.Wrap(err, "query user")
	}
	if err = bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return 0, ErrInvalidCredentials
		}
		return 0, errors.Wrap(err, "compare password", slog.Int("user_id", userID))
	}
	if err = a.signIn(ctx, userID); err != nil {
		return 0, err
	}
	return userID, nil
}

// signIn renews the session token on the privilege change to avoid session fixation.
func (a *Authenticator) signIn(ctx context.Context, userID int) error {
	if err := a.sessions.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	a.sessions.Put(ctx, userIDSessionKey, userID)
	return nil
}

// Logout forgets the signed-in user of the session in ctx.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.sessions.RenewToken(ctx); err != nil {
		return errors.Wrap(err, "renew session token")
	}
	a.sessions.Remove(ctx, userIDSessionKey)
	return nil
}

// AuthenticateMiddleware marks the request as authenticated when its session belongs to an existing user. It must
// run inside the session manager's LoadAndSave.
func (a *Authenticator) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := a.sessions.GetInt(ctx, userIDSessionKey)
		if userID == 0 {
			next.ServeHTTP(w, r)
			return
		}

		var exists bool
		err := a.db.ReadOnly.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists)
		if err != nil {
			a.logger.LogAttrs(ctx, slog.LevelError, "unable to fetch user", errors.SlogError(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		// A deleted user keeps an unauthenticated session.
		if !exists {
			next.ServeHTTP(w, r)
			return
		}

		// The token is hashed so that it never appears in logs.
		tokenHash := sha256.Sum256([]byte(a.sessions.Token(ctx)))
		ctx = logging.WithAttrs(contexthelpers.WithAuthenticatedUser(ctx, userID),
			slog.String("session_hash", hex.EncodeToString(tokenHash[:])),
			slog.Int("user_id", userID),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
