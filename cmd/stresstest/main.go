package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/e2etest"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/logging"
	"github.com/myrjola/rexcoach/internal/session"
	"github.com/myrjola/rexcoach/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	numUsers                = 10
	scenarioTimeout         = 2 * time.Minute
	maxConcurrentOperations = 20
	baseWeight              = 15.0
	weightRange             = 20
	baseReps                = 8
	repsRange               = 8
	successRateThreshold    = 95.0
	percentageMultiplier    = 100
	expectedArgsCount       = 2
)

//nolint:gochecknoglobals // read-only request body.
var stressProfile = map[string]any{
	"name":               "Stress Test",
	"age":                "35",
	"weight":             "80",
	"primaryGoal":        "gain-muscle",
	"secondaryGoal":      "increase-strength",
	"weeklyAvailability": "4",
	"preferredDays":      []string{"Monday", "Tuesday", "Thursday", "Friday"},
}

var errUnexpectedStatus = errors.NewSentinel("unexpected status")

func expect(resp e2etest.Response, err error, status int, what string) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	if resp.StatusCode != status {
		return errors.Wrap(errUnexpectedStatus, what,
			slog.Int("status", resp.StatusCode), slog.String("body", string(resp.Body)))
	}
	return nil
}

// athleteScenario runs a complete athlete journey: sign-up with onboarding, plan generation and approval and a
// workout session on the first training day of the plan.
func athleteScenario(ctx context.Context, url string, index int, logger *slog.Logger) error {
	client, err := e2etest.NewClient(url)
	if err != nil {
		return errors.Wrap(err, "new client")
	}
	username := fmt.Sprintf("stress-%d-%x", index, rand.Uint32()) //nolint:gosec // unique enough for load data.
	if err = client.Register(ctx, username, "stress-test-password"); err != nil {
		return errors.Wrap(err, "register")
	}

	resp, err := client.Post(ctx, "/api/plan/generate", stressProfile)
	if err = expect(resp, err, http.StatusOK, "generate plan"); err != nil {
		return err
	}
	var pending coach.PendingPlan
	if err = resp.Decode(&pending); err != nil {
		return errors.Wrap(err, "decode pending plan")
	}
	if len(pending.Plan.Days) == 0 {
		return errors.New("generated plan has no training days")
	}
	resp, err = client.Post(ctx, "/api/plan/pending/approve", nil)
	if err = expect(resp, err, http.StatusOK, "approve plan"); err != nil {
		return err
	}

	resp, err = client.Post(ctx, "/api/session", map[string]string{"day": pending.Plan.Days[0].Day})
	if err = expect(resp, err, http.StatusCreated, "start session"); err != nil {
		return err
	}
	var state session.State
	if err = resp.Decode(&state); err != nil {
		return errors.Wrap(err, "decode session state")
	}
	for range state.TargetSets {
		result, setErr := completeSet(ctx, client, state.Exercise.WeightRequired)
		if setErr != nil {
			return setErr
		}
		if !result.Resting {
			continue
		}
		resp, err = client.Post(ctx, "/api/session/rest/skip", nil)
		if err = expect(resp, err, http.StatusOK, "skip rest"); err != nil {
			return err
		}
	}
	resp, err = client.Post(ctx, "/api/session/end", nil)
	if err = expect(resp, err, http.StatusOK, "end session"); err != nil {
		return err
	}
	resp, err = client.Get(ctx, "/api/notices")
	if err = expect(resp, err, http.StatusOK, "drain notices"); err != nil {
		return err
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "athlete scenario completed",
		slog.String("username", username), slog.String("plan_id", pending.Plan.ID))
	return nil
}

func completeSet(ctx context.Context, client *e2etest.Client, weighted bool) (session.SetResult, error) {
	body := map[string]any{"reps": baseReps + rand.IntN(repsRange)} //nolint:gosec // load data.
	if weighted {
		body["weight"] = baseWeight + float64(rand.IntN(weightRange)) //nolint:gosec // load data.
	}
	resp, err := client.Post(ctx, "/api/session/sets", body)
	if err = expect(resp, err, http.StatusOK, "complete set"); err != nil {
		return session.SetResult{}, err
	}
	var result session.SetResult
	if err = resp.Decode(&result); err != nil {
		return session.SetResult{}, errors.Wrap(err, "decode set result")
	}
	return result, nil
}

// runLoadTest runs one athlete scenario per user concurrently and fails when too many of them fail.
func runLoadTest(ctx context.Context, url string, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "starting load test", slog.Int("num_users", numUsers))

	var successCount, failureCount atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)
	for i := range numUsers {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()
			if err := athleteScenario(scenarioCtx, url, i, logger); err != nil {
				failureCount.Add(1)
				// Individual failures are counted, not propagated, so that other scenarios keep running.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "scenario failed",
					slog.Int("user_index", i), errors.SlogError(err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "load test")
	}

	successRate := float64(successCount.Load()) / float64(numUsers) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))
	if successRate < successRateThreshold {
		return errors.New("success rate below threshold", slog.Float64("success_rate", successRate))
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", errors.SlogError(err))
		os.Exit(1)
	}

	if err = runLoadTest(ctx, url, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", errors.SlogError(err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)))
}
