package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/rexcoach/internal/e2etest"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/logging"
	"github.com/myrjola/rexcoach/internal/testhelpers"
)

const smokeTimeout = time.Minute

// smokeProfile is an onboarding profile accepted by the server.
//
//nolint:gochecknoglobals // read-only request body.
var smokeProfile = map[string]any{
	"name":               "Smoke Test",
	"age":                "30",
	"primaryGoal":        "increase-strength",
	"secondaryGoal":      "none",
	"weeklyAvailability": "3",
	"preferredDays":      []string{"Monday", "Wednesday", "Friday"},
}

func expect(resp e2etest.Response, err error, status int, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if resp.StatusCode != status {
		return fmt.Errorf("%s: status %d: %s", what, resp.StatusCode, resp.Body) //nolint:err113 // smoke test.
	}
	return nil
}

// testPlanCycle signs up, generates a plan, approves it and checks that it survives until logout.
func testPlanCycle(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, smokeTimeout)
	defer cancel()

	username := "smoke-" + strings.ToLower(rand.Text()[:12])
	password := rand.Text()
	if err := client.Register(ctx, username, password); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	resp, err := client.Post(ctx, "/api/plan/generate", smokeProfile)
	if err = expect(resp, err, http.StatusOK, "generate plan"); err != nil {
		return err
	}
	resp, err = client.Post(ctx, "/api/plan/pending/approve", nil)
	if err = expect(resp, err, http.StatusOK, "approve plan"); err != nil {
		return err
	}
	resp, err = client.Get(ctx, "/api/plan")
	if err = expect(resp, err, http.StatusOK, "get plan"); err != nil {
		return err
	}
	if err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if err = client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	resp, err = client.Get(ctx, "/api/profile")
	return expect(resp, err, http.StatusOK, "get profile after login")
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}
	if err = testPlanCycle(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing plan cycle", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
