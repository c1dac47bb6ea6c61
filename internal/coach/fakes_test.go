package coach_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/contexthelpers"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
	"github.com/myrjola/rexcoach/internal/sqlite"
	"github.com/myrjola/rexcoach/internal/testhelpers"
)

var errServiceDown = errors.NewSentinel("service down")

// gate lets a test hold a fake call until it is released. The zero value does not block.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	if g == nil {
		return
	}
	g.started <- struct{}{}
	<-g.release
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fail  bool
	gate  *gate
}

func (g *fakeGenerator) Generate(_ context.Context, p profile.Profile) plan.Generation {
	g.mu.Lock()
	g.calls++
	n, fail, gt := g.calls, g.fail, g.gate
	g.mu.Unlock()

	gt.wait()
	generated := plan.FallbackPlan(p.GoalTags(), fmt.Sprintf("plan-%d", n))
	if fail {
		return plan.Generation{Plan: generated, Failure: errors.Join(plan.ErrGeneration, errServiceDown)}
	}
	generated.Name = "Personal Program"
	return plan.Generation{Plan: generated, Failure: nil}
}

type fakeAdapter struct {
	mu    sync.Mutex
	calls int
	fail  bool
	gate  *gate
}

func (a *fakeAdapter) Adapt(_ context.Context, current plan.Plan, instructions string) (plan.Adaptation, error) {
	a.mu.Lock()
	a.calls++
	fail, gt := a.fail, a.gate
	a.mu.Unlock()

	gt.wait()
	if fail {
		return plan.Adaptation{Plan: current, Failure: errors.Join(plan.ErrAdaptation, errServiceDown)}, nil
	}
	adapted := current.Clone()
	adapted.ID = current.ID + "-adapted"
	adapted.Notes = instructions
	return plan.Adaptation{Plan: adapted, Failure: nil}, nil
}

func (a *fakeAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// monday is a Monday, the fallback plan's first training day.
var monday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const testUserID = 1

type fixture struct {
	service   *coach.Service
	generator *fakeGenerator
	adapter   *fakeAdapter
	clock     *fakeClock
	ctx       context.Context //nolint:containedctx // test fixture.
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := t.Context()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	if _, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES (?, 'athlete', x'00')`, testUserID); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	f := &fixture{
		service:   nil,
		generator: &fakeGenerator{},
		adapter:   &fakeAdapter{},
		clock:     &fakeClock{now: monday},
		ctx:       contexthelpers.WithAuthenticatedUser(ctx, testUserID),
	}
	f.service = coach.NewService(db, logger, f.generator, f.adapter, coach.Config{
		IdleTimeout: time.Hour,
		Now:         f.clock.Now,
	})
	if err = f.service.SignIn(f.ctx, testUserID); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	return f
}

func validProfile() profile.Profile {
	return profile.Profile{ //nolint:exhaustruct // optional fields left empty.
		Name:               "Alex",
		Age:                "30",
		Weight:             "80",
		PrimaryGoal:        "gain-muscle",
		SecondaryGoal:      "none",
		WeeklyAvailability: "3",
		PreferredDays:      []string{"wednesday", "Monday"},
	}
}

// committedPlan runs a full generate-and-approve cycle.
func (f *fixture) committedPlan(t *testing.T) plan.Plan {
	t.Helper()
	p := validProfile()
	if _, err := f.service.GeneratePlan(f.ctx, &p); err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	committed, err := f.service.ApprovePlan(f.ctx)
	if err != nil {
		t.Fatalf("ApprovePlan: %v", err)
	}
	return committed
}

func noticeTitles(notices []coach.Notice) []string {
	titles := make([]string, len(notices))
	for i, n := range notices {
		titles[i] = n.Title
	}
	return titles
}
