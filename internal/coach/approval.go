package coach

import (
	"context"
	"strings"
	"sync"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
)

// ApprovalState is the state of a plan awaiting the athlete's decision.
type ApprovalState string

const (
	StatePending   ApprovalState = "pending"
	StateModifying ApprovalState = "modifying"
	StateCommitted ApprovalState = "committed"
)

var (
	ErrAlreadyCommitted = errors.NewSentinel("plan already committed")
	ErrInFlight         = errors.NewSentinel("a plan request is already in flight")
	ErrDiscarded        = errors.NewSentinel("plan approval was discarded")
)

// Adapter modifies a plan according to free-text instructions. *plan.Adapter satisfies it.
type Adapter interface {
	Adapt(ctx context.Context, current plan.Plan, instructions string) (plan.Adaptation, error)
}

// ApprovalController governs one generation cycle: the pending plan may be modified any number of times and is
// committed to the store at most once.
type ApprovalController struct {
	mu        sync.Mutex
	state     ApprovalState
	pending   plan.Plan
	store     *ActivePlanStore
	adapter   Adapter
	discarded bool
}

// NewApprovalController starts a cycle in the pending state.
func NewApprovalController(pending plan.Plan, store *ActivePlanStore, adapter Adapter) *ApprovalController {
	return &ApprovalController{
		mu:        sync.Mutex{},
		state:     StatePending,
		pending:   pending,
		store:     store,
		adapter:   adapter,
		discarded: false,
	}
}

// State returns the current state.
func (c *ApprovalController) State() ApprovalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// InFlight reports whether a modification request is awaiting the service.
func (c *ApprovalController) InFlight() bool {
	return c.State() == StateModifying
}

// Plan returns the pending plan, or the committed one after approval.
func (c *ApprovalController) Plan() plan.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Approve installs the pending plan into the store. It fails without reinstalling when the plan is already
// committed, and while a modification is in flight.
func (c *ApprovalController) Approve() (plan.Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.discarded:
		return plan.Plan{}, ErrDiscarded
	case c.state == StateCommitted:
		return plan.Plan{}, ErrAlreadyCommitted
	case c.state == StateModifying:
		return plan.Plan{}, ErrInFlight
	}
	committed := c.pending.Clone()
	c.store.SetPlan(&committed)
	c.state = StateCommitted
	return c.pending, nil
}

// RequestModification adapts the pending plan and makes the result the new pending plan. Blank instructions are
// rejected before the adapter is called. A failed adaptation keeps the pending plan and is reported through
// Adaptation.Failure. When the controller is discarded while the request is in flight the result is dropped.
func (c *ApprovalController) RequestModification(ctx context.Context, instructions string) (plan.Adaptation, error) {
	if strings.TrimSpace(instructions) == "" {
		return plan.Adaptation{}, plan.ErrEmptyModification
	}

	c.mu.Lock()
	switch {
	case c.discarded:
		c.mu.Unlock()
		return plan.Adaptation{}, ErrDiscarded
	case c.state == StateCommitted:
		c.mu.Unlock()
		return plan.Adaptation{}, ErrAlreadyCommitted
	case c.state == StateModifying:
		c.mu.Unlock()
		return plan.Adaptation{}, ErrInFlight
	}
	c.state = StateModifying
	current := c.pending
	c.mu.Unlock()

	result, err := c.adapter.Adapt(ctx, current, instructions)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StatePending
	if c.discarded {
		return plan.Adaptation{}, ErrDiscarded
	}
	if err != nil {
		return plan.Adaptation{}, errors.Wrap(err, "adapt pending plan")
	}
	c.pending = result.Plan
	return result, nil
}

// Discard ends the cycle without committing. Results of in-flight requests are dropped.
func (c *ApprovalController) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = true
}
