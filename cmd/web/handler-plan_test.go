package main

import (
	"net/http"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/e2etest"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
	"github.com/myrjola/rexcoach/internal/testhelpers"
)

func noticeTitles(t *testing.T, client *e2etest.Client) []string {
	t.Helper()
	resp, err := client.Get(t.Context(), "/api/notices")
	if err != nil {
		t.Fatalf("get notices: %v", err)
	}
	var body noticesResponse
	if err = resp.Decode(&body); err != nil {
		t.Fatalf("decode notices: %v", err)
	}
	titles := make([]string, 0, len(body.Notices))
	for _, n := range body.Notices {
		titles = append(titles, n.Title)
	}
	return titles
}

func expectStatus(t *testing.T, resp e2etest.Response, err error, want int) {
	t.Helper()
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d: %s", resp.StatusCode, want, resp.Body)
	}
}

func Test_application_planApproval(t *testing.T) {
	ctx := t.Context()
	ai := fakeOpenAI(t)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), lookupEnvWith(ai.URL), run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	t.Run("requires sign-in", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusUnauthorized)
	})

	if err = client.Register(ctx, "alex", "correct horse battery"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	t.Run("no profile before onboarding", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/profile")
		expectStatus(t, resp, err, http.StatusNotFound)
		resp, err = client.Post(ctx, "/api/plan/generate", nil)
		expectStatus(t, resp, err, http.StatusNotFound)
	})

	t.Run("invalid profile is rejected with field errors", func(t *testing.T) {
		body := validProfileBody()
		body["age"] = "-3"
		resp, err := client.Do(ctx, http.MethodPut, "/api/profile", body)
		expectStatus(t, resp, err, http.StatusBadRequest)
		var errBody errorResponse
		if err = resp.Decode(&errBody); err != nil {
			t.Fatal(err)
		}
		if _, ok := errBody.Fields["age"]; !ok {
			t.Errorf("expected age field error, got %+v", errBody)
		}
	})

	var pending coach.PendingPlan
	t.Run("generate with onboarding profile", func(t *testing.T) {
		resp, err := client.Post(ctx, "/api/plan/generate", validProfileBody())
		expectStatus(t, resp, err, http.StatusOK)
		if err = resp.Decode(&pending); err != nil {
			t.Fatal(err)
		}
		if pending.Fallback {
			t.Error("expected a generated plan, got the fallback")
		}
		if pending.Plan.Name != "Hypertrophy Block" || pending.State != coach.StatePending {
			t.Errorf("unexpected pending plan %+v", pending)
		}
		if got := noticeTitles(t, client); !cmp.Equal(got, []string{"Plan ready"}) {
			t.Errorf("notices = %v", got)
		}
	})

	t.Run("profile was stored normalised", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/profile")
		expectStatus(t, resp, err, http.StatusOK)
		var p profile.Profile
		if err = resp.Decode(&p); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"Monday", "Thursday"}, p.PreferredDays); diff != "" {
			t.Errorf("preferred days mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nothing is committed before approval", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusNotFound)
	})

	t.Run("blank modification is rejected", func(t *testing.T) {
		resp, err := client.Post(ctx, "/api/plan/pending/modify", modificationRequest{Instructions: "   "})
		expectStatus(t, resp, err, http.StatusBadRequest)
	})

	t.Run("modify pending plan", func(t *testing.T) {
		resp, err := client.Post(ctx, "/api/plan/pending/modify", modificationRequest{Instructions: "shorter sessions"})
		expectStatus(t, resp, err, http.StatusOK)
		var modified coach.PendingPlan
		if err = resp.Decode(&modified); err != nil {
			t.Fatal(err)
		}
		if modified.Plan.Name != "Hypertrophy Block (short sessions)" {
			t.Errorf("name = %q", modified.Plan.Name)
		}
		if diff := cmp.Diff(pending.Plan.Days, modified.Plan.Days); diff != "" {
			t.Errorf("days changed although the reply omitted them (-want +got):\n%s", diff)
		}
		if modified.Plan.ID == pending.Plan.ID {
			t.Error("expected a fresh plan id")
		}
	})

	var committed plan.Plan
	t.Run("approve", func(t *testing.T) {
		resp, err := client.Post(ctx, "/api/plan/pending/approve", nil)
		expectStatus(t, resp, err, http.StatusOK)
		if err = resp.Decode(&committed); err != nil {
			t.Fatal(err)
		}
		resp, err = client.Post(ctx, "/api/plan/pending/approve", nil)
		expectStatus(t, resp, err, http.StatusConflict)
		if got := noticeTitles(t, client); !cmp.Equal(got, []string{"Plan modified", "Plan approved"}) {
			t.Errorf("notices = %v", got)
		}
	})

	t.Run("dashboard shows the committed plan", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusOK)
		var dash coach.Dashboard
		if err = resp.Decode(&dash); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(committed, dash.Plan); diff != "" {
			t.Errorf("dashboard plan mismatch (-want +got):\n%s", diff)
		}
		if dash.Profile == nil || dash.Profile.Name != "Alex" {
			t.Errorf("dashboard profile = %+v", dash.Profile)
		}
	})

	t.Run("today", func(t *testing.T) {
		resp, err := client.Get(ctx, "/api/plan/today")
		expectStatus(t, resp, err, http.StatusOK)
		var today coach.Today
		if err = resp.Decode(&today); err != nil {
			t.Fatal(err)
		}
		if today.RestDay == (today.Day != nil) {
			t.Errorf("inconsistent today %+v", today)
		}
		if diff := cmp.Diff([]string{"Monday", "Thursday"}, today.TrainingDays); diff != "" {
			t.Errorf("training days mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("modify schedule of committed plan", func(t *testing.T) {
		resp, err := client.Post(ctx, "/api/plan/modify", modificationRequest{Instructions: "less volume"})
		expectStatus(t, resp, err, http.StatusOK)
		var modified modificationResponse
		if err = resp.Decode(&modified); err != nil {
			t.Fatal(err)
		}
		if modified.Unchanged || modified.Plan.ID == committed.ID {
			t.Errorf("expected an adapted plan, got %+v", modified)
		}
		resp, err = client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusOK)
		var dash coach.Dashboard
		if err = resp.Decode(&dash); err != nil {
			t.Fatal(err)
		}
		if dash.Plan.ID != modified.Plan.ID {
			t.Errorf("committed plan id = %q, want %q", dash.Plan.ID, modified.Plan.ID)
		}
	})

	t.Run("logout clears the athlete context", func(t *testing.T) {
		if err = client.Logout(ctx); err != nil {
			t.Fatalf("logout: %v", err)
		}
		resp, err := client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusUnauthorized)

		if err = client.Login(ctx, "alex", "correct horse battery"); err != nil {
			t.Fatalf("login: %v", err)
		}
		// The profile is durable, the committed plan is not.
		resp, err = client.Get(ctx, "/api/profile")
		expectStatus(t, resp, err, http.StatusOK)
		resp, err = client.Get(ctx, "/api/plan")
		expectStatus(t, resp, err, http.StatusNotFound)
	})
}

func Test_application_planFallback(t *testing.T) {
	ctx := t.Context()
	// No generative service is configured, so every call fails.
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()
	if err = client.Register(ctx, "sam", "correct horse battery"); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	resp, err := client.Post(ctx, "/api/plan/generate", validProfileBody())
	expectStatus(t, resp, err, http.StatusOK)
	var pending coach.PendingPlan
	if err = resp.Decode(&pending); err != nil {
		t.Fatal(err)
	}
	if !pending.Fallback || len(pending.Plan.Days) == 0 {
		t.Fatalf("expected the starter plan, got %+v", pending)
	}
	if got := noticeTitles(t, client); !slices.Contains(got, "Using a starter plan") {
		t.Errorf("notices = %v", got)
	}

	resp, err = client.Post(ctx, "/api/plan/pending/modify", modificationRequest{Instructions: "more cardio"})
	expectStatus(t, resp, err, http.StatusOK)
	var modified coach.PendingPlan
	if err = resp.Decode(&modified); err != nil {
		t.Fatal(err)
	}
	if !modified.Unchanged {
		t.Error("expected the failed modification to keep the plan")
	}
	if diff := cmp.Diff(pending.Plan, modified.Plan); diff != "" {
		t.Errorf("plan changed after failed modification (-want +got):\n%s", diff)
	}
}
