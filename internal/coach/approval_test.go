package coach_test

import (
	"testing"

	"github.com/myrjola/rexcoach/internal/coach"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
)

func newController(adapter coach.Adapter) (*coach.ApprovalController, *coach.ActivePlanStore) {
	store := &coach.ActivePlanStore{}
	return coach.NewApprovalController(plan.FallbackPlan([]string{"gain-muscle"}, "plan-1"), store, adapter), store
}

func TestApprovalController_ApproveOnce(t *testing.T) {
	c, store := newController(&fakeAdapter{})

	if got := c.State(); got != coach.StatePending {
		t.Fatalf("initial state %q, want pending", got)
	}
	committed, err := c.Approve()
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if committed.ID != "plan-1" || c.State() != coach.StateCommitted {
		t.Errorf("approved %q in state %q", committed.ID, c.State())
	}
	installed := store.Get().Plan
	if installed == nil || installed.ID != "plan-1" {
		t.Fatalf("store holds %+v after approval", installed)
	}

	if _, err = c.Approve(); !errors.Is(err, coach.ErrAlreadyCommitted) {
		t.Errorf("second Approve error %v, want ErrAlreadyCommitted", err)
	}
	if store.Get().Plan != installed {
		t.Error("second Approve must not reinstall the plan")
	}
	if _, err = c.RequestModification(t.Context(), "more cardio"); !errors.Is(err, coach.ErrAlreadyCommitted) {
		t.Errorf("modification after commit error %v, want ErrAlreadyCommitted", err)
	}
}

func TestApprovalController_BlankModificationNeverCallsService(t *testing.T) {
	adapter := &fakeAdapter{}
	c, _ := newController(adapter)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := c.RequestModification(t.Context(), text); !errors.Is(err, plan.ErrEmptyModification) {
			t.Errorf("RequestModification(%q) error %v, want ErrEmptyModification", text, err)
		}
	}
	if adapter.Calls() != 0 {
		t.Errorf("adapter called %d times", adapter.Calls())
	}
	if c.State() != coach.StatePending {
		t.Errorf("state %q, want pending", c.State())
	}
}

func TestApprovalController_ModificationInFlight(t *testing.T) {
	adapter := &fakeAdapter{gate: newGate()}
	c, store := newController(adapter)

	type outcome struct {
		result plan.Adaptation
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := c.RequestModification(t.Context(), "add a leg day")
		done <- outcome{result: result, err: err}
	}()
	<-adapter.gate.started

	if !c.InFlight() || c.State() != coach.StateModifying {
		t.Errorf("state %q while the request is in flight", c.State())
	}
	if _, err := c.RequestModification(t.Context(), "again"); !errors.Is(err, coach.ErrInFlight) {
		t.Errorf("concurrent modification error %v, want ErrInFlight", err)
	}
	if _, err := c.Approve(); !errors.Is(err, coach.ErrInFlight) {
		t.Errorf("approve during modification error %v, want ErrInFlight", err)
	}

	close(adapter.gate.release)
	got := <-done
	if got.err != nil {
		t.Fatalf("RequestModification: %v", got.err)
	}
	if got.result.Plan.ID != "plan-1-adapted" || c.Plan().ID != "plan-1-adapted" {
		t.Errorf("pending plan %q, want the adapted plan", c.Plan().ID)
	}
	if c.State() != coach.StatePending || store.Get().Plan != nil {
		t.Error("a modification must return to pending without committing")
	}

	if _, err := c.Approve(); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if store.Get().Plan.ID != "plan-1-adapted" {
		t.Errorf("committed %q, want the adapted plan", store.Get().Plan.ID)
	}
}

func TestApprovalController_FailedModificationKeepsPlan(t *testing.T) {
	c, _ := newController(&fakeAdapter{fail: true})

	result, err := c.RequestModification(t.Context(), "swap squats for lunges")
	if err != nil {
		t.Fatalf("RequestModification: %v", err)
	}
	if !errors.Is(result.Failure, plan.ErrAdaptation) {
		t.Errorf("failure %v, want ErrAdaptation", result.Failure)
	}
	if c.Plan().ID != "plan-1" || c.State() != coach.StatePending {
		t.Errorf("plan %q state %q, want the unchanged pending plan", c.Plan().ID, c.State())
	}
}

func TestApprovalController_DiscardDropsInFlightResult(t *testing.T) {
	adapter := &fakeAdapter{gate: newGate()}
	c, store := newController(adapter)

	done := make(chan error, 1)
	go func() {
		_, err := c.RequestModification(t.Context(), "add a leg day")
		done <- err
	}()
	<-adapter.gate.started
	c.Discard()
	close(adapter.gate.release)

	if err := <-done; !errors.Is(err, coach.ErrDiscarded) {
		t.Errorf("error %v, want ErrDiscarded", err)
	}
	if c.Plan().ID != "plan-1" {
		t.Errorf("discarded result was applied: %q", c.Plan().ID)
	}
	if _, err := c.Approve(); !errors.Is(err, coach.ErrDiscarded) {
		t.Errorf("approve after discard error %v, want ErrDiscarded", err)
	}
	if store.Get().Plan != nil {
		t.Error("discarded cycle installed a plan")
	}
}
