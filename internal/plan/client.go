package plan

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/profile"
)

var (
	// ErrGeneration marks a failed generation. The caller still receives the fallback plan.
	ErrGeneration = errors.NewSentinel("plan generation failed")
	// ErrAdaptation marks a failed adaptation. The caller still receives the unchanged plan.
	ErrAdaptation = errors.NewSentinel("plan adaptation failed")
	// ErrEmptyModification is returned for blank modification instructions before any service call.
	ErrEmptyModification = errors.NewSentinel("modification instructions must not be empty")
	// ErrMissingDays is returned when a generation reply has no days array.
	ErrMissingDays = errors.NewSentinel("reply has no days")
)

// Completer is the generative service boundary, satisfied by ai.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClientConfig configures Generator and Adapter.
type ClientConfig struct {
	// Timeout bounds every service call. Zero means no bound beyond ctx.
	Timeout time.Duration
	// OnTimeout is called when a service call hits Timeout, e.g. to capture a trace. Optional.
	OnTimeout func(ctx context.Context)
	// NewID generates plan ids. Defaults to NewID.
	NewID func() string
}

type client struct {
	completer Completer
	logger    *slog.Logger
	cfg       ClientConfig
}

func newClient(completer Completer, logger *slog.Logger, cfg ClientConfig) client {
	if cfg.NewID == nil {
		cfg.NewID = NewID
	}
	return client{completer: completer, logger: logger, cfg: cfg}
}

// complete calls the service with the configured bound and parses the reply.
func (c client) complete(ctx context.Context, prompt string) (patch, error) {
	callCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	reply, err := c.completer.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && c.cfg.OnTimeout != nil {
			c.cfg.OnTimeout(ctx)
		}
		return patch{}, errors.Wrap(err, "complete prompt")
	}
	p, err := parseReply(reply)
	if err != nil {
		return patch{}, errors.Wrap(err, "parse reply", slog.Int("reply_length", len(reply)))
	}
	return p, nil
}

// Generation is the outcome of Generator.Generate. Plan is always usable.
type Generation struct {
	Plan Plan
	// Failure is non-nil when Plan is the fallback plan. It wraps ErrGeneration and the cause.
	Failure error
}

// Generator obtains a new plan for a profile.
type Generator struct {
	client
}

// NewGenerator creates a Generator.
func NewGenerator(completer Completer, logger *slog.Logger, cfg ClientConfig) *Generator {
	return &Generator{client: newClient(completer, logger, cfg)}
}

// Generate requests a plan for p. Any failure, including an invalid profile, results in the fallback plan tagged
// with the profile goals. The returned plan always carries a fresh id.
func (g *Generator) Generate(ctx context.Context, p profile.Profile) Generation {
	p.Normalize()
	goals := p.GoalTags()

	plan, err := g.generate(ctx, p, goals)
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "plan generation failed, using fallback plan", errors.SlogError(err))
		return Generation{Plan: FallbackPlan(goals, g.cfg.NewID()), Failure: errors.Join(ErrGeneration, err)}
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "plan generated",
		slog.String("plan_id", plan.ID), slog.Int("days", len(plan.Days)))
	return Generation{Plan: plan, Failure: nil}
}

func (g *Generator) generate(ctx context.Context, p profile.Profile, goals []string) (Plan, error) {
	prompt, err := BuildGenerationPrompt(p)
	if err != nil {
		return Plan{}, errors.Wrap(err, "build generation prompt")
	}
	parsed, err := g.complete(ctx, prompt)
	if err != nil {
		return Plan{}, err
	}
	if parsed.Days == nil {
		return Plan{}, ErrMissingDays
	}
	base := Plan{ID: "", Name: "", Duration: "", Days: nil, Goals: goals, Notes: ""}
	plan := parsed.over(base)
	plan.ID = g.cfg.NewID()
	return plan, nil
}

// Adaptation is the outcome of Adapter.Adapt. Plan is always usable.
type Adaptation struct {
	Plan Plan
	// Failure is non-nil when Plan is the unchanged current plan. It wraps ErrAdaptation and the cause.
	Failure error
}

// Adapter modifies an existing plan according to free-text instructions.
type Adapter struct {
	client
}

// NewAdapter creates an Adapter.
func NewAdapter(completer Completer, logger *slog.Logger, cfg ClientConfig) *Adapter {
	return &Adapter{client: newClient(completer, logger, cfg)}
}

// Adapt merges the service's reply over current and assigns a new id. Blank instructions return
// ErrEmptyModification without calling the service. Service failures leave current unchanged and are reported
// through Adaptation.Failure only.
func (a *Adapter) Adapt(ctx context.Context, current Plan, instructions string) (Adaptation, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return Adaptation{}, ErrEmptyModification
	}

	prompt, err := BuildAdaptationPrompt(current, instructions)
	if err != nil {
		return Adaptation{}, err
	}
	parsed, err := a.complete(ctx, prompt)
	if err != nil {
		a.logger.LogAttrs(ctx, slog.LevelWarn, "plan adaptation failed, keeping current plan",
			slog.String("plan_id", current.ID), errors.SlogError(err))
		return Adaptation{Plan: current, Failure: errors.Join(ErrAdaptation, err)}, nil
	}

	adapted := parsed.over(current)
	adapted.ID = a.cfg.NewID()
	a.logger.LogAttrs(ctx, slog.LevelInfo, "plan adapted",
		slog.String("previous_plan_id", current.ID), slog.String("plan_id", adapted.ID))
	return Adaptation{Plan: adapted, Failure: nil}, nil
}
