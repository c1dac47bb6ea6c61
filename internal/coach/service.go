// Package coach is the service layer: it ties the athlete's profile, the plan approval cycle, the committed plan
// and the running workout session together for one signed-in user.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/myrjola/rexcoach/internal/contexthelpers"
	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
	"github.com/myrjola/rexcoach/internal/sqlite"
)

var (
	ErrUnauthenticated   = errors.NewSentinel("not signed in")
	ErrSignedOut         = errors.NewSentinel("signed out while the request was in flight")
	ErrNoProfile         = errors.NewSentinel("profile not completed")
	ErrNoPendingPlan     = errors.NewSentinel("no plan awaiting approval")
	ErrNoActivePlan      = errors.NewSentinel("no committed plan")
	ErrStalePlan         = errors.NewSentinel("committed plan changed while the modification was in flight")
	ErrUnknownDay        = errors.NewSentinel("plan has no training on that day")
	ErrRestDay           = errors.NewSentinel("today is a rest day")
	ErrNoSession         = errors.NewSentinel("no workout session")
	ErrSessionInProgress = errors.NewSentinel("a workout session is already in progress")
)

// Generator obtains a new plan for a profile. *plan.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, p profile.Profile) plan.Generation
}

// Config configures the Service.
type Config struct {
	// IdleTimeout is how long an athlete context survives without activity before PurgeIdle drops it.
	IdleTimeout time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Service manages athlete contexts. The acting user is taken from the request context.
type Service struct {
	logger    *slog.Logger
	profiles  *profileRepository
	generator Generator
	adapter   Adapter
	cfg       Config

	mu       sync.Mutex
	athletes map[int]*Athlete
}

// NewService creates a Service.
func NewService(db *sqlite.Database, logger *slog.Logger, generator Generator, adapter Adapter, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		logger:    logger,
		profiles:  newProfileRepository(db),
		generator: generator,
		adapter:   adapter,
		cfg:       cfg,
		mu:        sync.Mutex{},
		athletes:  make(map[int]*Athlete),
	}
}

// SignIn creates the athlete context for userID, loading the stored profile. An existing context is kept so that
// several browser sessions of the same user share it.
func (s *Service) SignIn(ctx context.Context, userID int) error {
	_, err := s.athleteFor(ctx, userID)
	return err
}

// SignOut tears down the athlete context of the acting user. In-flight generation and adaptation calls keep running
// and their results are discarded.
func (s *Service) SignOut(ctx context.Context) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	s.mu.Lock()
	a, ok := s.athletes[userID]
	delete(s.athletes, userID)
	s.mu.Unlock()
	if ok {
		a.close()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "athlete signed out", slog.Int("user_id", userID))
	}
}

// athlete returns the context of the acting user, creating it lazily for sessions that outlived a restart.
func (s *Service) athlete(ctx context.Context) (*Athlete, error) {
	if !contexthelpers.IsAuthenticated(ctx) {
		return nil, ErrUnauthenticated
	}
	return s.athleteFor(ctx, contexthelpers.AuthenticatedUserID(ctx))
}

func (s *Service) athleteFor(ctx context.Context, userID int) (*Athlete, error) {
	now := s.cfg.Now()
	s.mu.Lock()
	a, ok := s.athletes[userID]
	s.mu.Unlock()
	if ok {
		a.mu.Lock()
		a.lastActive = now
		a.mu.Unlock()
		return a, nil
	}

	stored, err := s.profiles.get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load profile")
	}
	fresh := newAthlete(userID, now)
	if stored != nil {
		fresh.store.SetProfile(stored)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have won the race.
	if a, ok = s.athletes[userID]; ok {
		return a, nil
	}
	s.athletes[userID] = fresh
	s.logger.LogAttrs(ctx, slog.LevelDebug, "athlete context created",
		slog.Int("user_id", userID), slog.Bool("has_profile", stored != nil))
	return fresh, nil
}

// Profile returns the acting user's profile.
func (s *Service) Profile(ctx context.Context) (profile.Profile, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	p := a.store.Get().Profile
	if p == nil {
		return profile.Profile{}, ErrNoProfile
	}
	return *p, nil
}

// SaveProfile replaces the profile, as done when onboarding completes.
func (s *Service) SaveProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	return s.saveProfile(ctx, a, p)
}

func (s *Service) saveProfile(ctx context.Context, a *Athlete, p profile.Profile) (profile.Profile, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return profile.Profile{}, err //nolint:wrapcheck // ValidationError is surfaced to the caller as is.
	}
	if err := s.profiles.put(ctx, a.userID, p); err != nil {
		return profile.Profile{}, err
	}
	stored := p
	a.store.SetProfile(&stored)
	return p, nil
}

// UpdateProfile merges patch over the stored profile ("update metrics").
func (s *Service) UpdateProfile(ctx context.Context, patch profile.Patch) (profile.Profile, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return profile.Profile{}, err
	}
	current := profile.Profile{} //nolint:exhaustruct // empty profile.
	if p := a.store.Get().Profile; p != nil {
		current = *p
	}
	updated, err := s.saveProfile(ctx, a, current.Apply(patch))
	if err != nil {
		return profile.Profile{}, err
	}
	a.notify(Notice{Level: NoticeSuccess, Title: "Metrics updated", Message: "Your profile has been saved.", At: s.cfg.Now()})
	return updated, nil
}

// PendingPlan is a plan in an approval cycle.
type PendingPlan struct {
	Plan  plan.Plan     `json:"plan"`
	State ApprovalState `json:"state"`
	// Fallback is set when generation failed and the plan is the default plan.
	Fallback bool `json:"fallback,omitempty"`
	// Unchanged is set when a modification failed and the plan was kept as it was.
	Unchanged bool `json:"unchanged,omitempty"`
}

// GeneratePlan starts a new approval cycle. When p is non-nil it is saved first, otherwise the stored profile is
// used. Any previous pending plan is discarded; the committed plan stays active until the new one is approved.
func (s *Service) GeneratePlan(ctx context.Context, p *profile.Profile) (PendingPlan, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return PendingPlan{}, err
	}

	var prof profile.Profile
	if p != nil {
		if prof, err = s.saveProfile(ctx, a, *p); err != nil {
			return PendingPlan{}, err
		}
	} else {
		stored := a.store.Get().Profile
		if stored == nil {
			return PendingPlan{}, ErrNoProfile
		}
		prof = *stored
	}

	a.mu.Lock()
	if a.generating || (a.approval != nil && a.approval.InFlight()) {
		a.mu.Unlock()
		return PendingPlan{}, ErrInFlight
	}
	a.generating = true
	previous := a.approval
	a.approval = nil
	a.mu.Unlock()
	if previous != nil {
		previous.Discard()
	}

	// Logout must not abort the call, so it is detached from request cancellation. The generator bounds it.
	gen := s.generator.Generate(context.WithoutCancel(ctx), prof)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.generating = false
	if a.closed {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "discarding plan generated after sign-out",
			slog.String("plan_id", gen.Plan.ID))
		return PendingPlan{}, ErrSignedOut
	}
	a.approval = NewApprovalController(gen.Plan, &a.store, s.adapter)
	a.approvalFallback = gen.Failure != nil
	if gen.Failure != nil {
		a.notifyLocked(Notice{
			Level:   NoticeWarning,
			Title:   "Using a starter plan",
			Message: "We could not create a personalised plan right now, so here is a proven starter plan.",
			At:      s.cfg.Now(),
		})
	} else {
		a.notifyLocked(Notice{
			Level: NoticeInfo, Title: "Plan ready", Message: "Review your new plan and approve it.", At: s.cfg.Now(),
		})
	}
	return PendingPlan{Plan: gen.Plan, State: StatePending, Fallback: gen.Failure != nil, Unchanged: false}, nil
}

func (s *Service) approval(ctx context.Context) (*Athlete, *ApprovalController, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return nil, nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.approval == nil {
		if a.generating {
			return nil, nil, ErrInFlight
		}
		return nil, nil, ErrNoPendingPlan
	}
	return a, a.approval, nil
}

// Pending returns the plan of the current approval cycle.
func (s *Service) Pending(ctx context.Context) (PendingPlan, error) {
	a, c, err := s.approval(ctx)
	if err != nil {
		return PendingPlan{}, err
	}
	a.mu.Lock()
	fallback := a.approval == c && a.approvalFallback
	a.mu.Unlock()
	return PendingPlan{Plan: c.Plan(), State: c.State(), Fallback: fallback, Unchanged: false}, nil
}

// ApprovePlan commits the pending plan to the athlete's store.
func (s *Service) ApprovePlan(ctx context.Context) (plan.Plan, error) {
	a, c, err := s.approval(ctx)
	if err != nil {
		return plan.Plan{}, err
	}
	committed, err := c.Approve()
	if err != nil {
		return plan.Plan{}, errors.Wrap(err, "approve plan")
	}
	a.notify(Notice{
		Level: NoticeSuccess, Title: "Plan approved", Message: fmt.Sprintf("%s is now your active plan.", committed.Name),
		At: s.cfg.Now(),
	})
	s.logger.LogAttrs(ctx, slog.LevelInfo, "plan approved", slog.String("plan_id", committed.ID))
	return committed, nil
}

// RequestModification adapts the pending plan.
func (s *Service) RequestModification(ctx context.Context, instructions string) (PendingPlan, error) {
	if strings.TrimSpace(instructions) == "" {
		return PendingPlan{}, plan.ErrEmptyModification
	}
	a, c, err := s.approval(ctx)
	if err != nil {
		return PendingPlan{}, err
	}
	result, err := c.RequestModification(context.WithoutCancel(ctx), instructions)
	if errors.Is(err, ErrDiscarded) && a.isClosed() {
		return PendingPlan{}, ErrSignedOut
	}
	if err != nil {
		return PendingPlan{}, errors.Wrap(err, "request modification")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if result.Failure != nil {
		a.notifyLocked(Notice{
			Level: NoticeWarning, Title: "Modification failed",
			Message: "We could not apply your changes. Your plan is unchanged.", At: s.cfg.Now(),
		})
	} else {
		// An adapted plan is no longer the starter plan.
		if a.approval == c {
			a.approvalFallback = false
		}
		a.notifyLocked(Notice{
			Level: NoticeInfo, Title: "Plan modified", Message: "Review the updated plan.", At: s.cfg.Now(),
		})
	}
	fallback := a.approval == c && a.approvalFallback
	return PendingPlan{Plan: result.Plan, State: c.State(), Fallback: fallback, Unchanged: result.Failure != nil}, nil
}

// Dashboard is the committed plan with the profile it was made for.
type Dashboard struct {
	Profile *profile.Profile `json:"profile"`
	Plan    plan.Plan        `json:"plan"`
}

// ActivePlan returns the committed plan.
func (s *Service) ActivePlan(ctx context.Context) (Dashboard, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	snap := a.store.Get()
	if snap.Plan == nil {
		return Dashboard{}, ErrNoActivePlan
	}
	return Dashboard{Profile: snap.Profile, Plan: *snap.Plan}, nil
}

// Today is the committed plan's schedule for the current weekday.
type Today struct {
	Weekday      string    `json:"weekday"`
	RestDay      bool      `json:"restDay"`
	Day          *plan.Day `json:"day,omitempty"`
	TrainingDays []string  `json:"trainingDays"`
}

// TodaysWorkout looks up today's training day in the committed plan.
func (s *Service) TodaysWorkout(ctx context.Context) (Today, error) {
	dash, err := s.ActivePlan(ctx)
	if err != nil {
		return Today{}, err
	}
	weekday := s.cfg.Now().Weekday()
	today := Today{Weekday: weekday.String(), RestDay: true, Day: nil, TrainingDays: dash.Plan.TrainingDays()}
	if day, ok := dash.Plan.DayFor(weekday); ok {
		today.RestDay = false
		today.Day = &day
	}
	return today, nil
}

// ModifySchedule adapts the committed plan outside of any approval cycle. On success the adapted plan replaces the
// committed one directly.
func (s *Service) ModifySchedule(ctx context.Context, instructions string) (plan.Adaptation, error) {
	if strings.TrimSpace(instructions) == "" {
		return plan.Adaptation{}, plan.ErrEmptyModification
	}
	a, err := s.athlete(ctx)
	if err != nil {
		return plan.Adaptation{}, err
	}
	current := a.store.Get().Plan
	if current == nil {
		return plan.Adaptation{}, ErrNoActivePlan
	}

	a.mu.Lock()
	if a.modifyingSchedule {
		a.mu.Unlock()
		return plan.Adaptation{}, ErrInFlight
	}
	a.modifyingSchedule = true
	a.mu.Unlock()

	result, err := s.adapter.Adapt(context.WithoutCancel(ctx), *current, instructions)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.modifyingSchedule = false
	switch {
	case a.closed:
		return plan.Adaptation{}, ErrSignedOut
	case err != nil:
		return plan.Adaptation{}, errors.Wrap(err, "adapt committed plan")
	case result.Failure != nil:
		a.notifyLocked(Notice{
			Level: NoticeWarning, Title: "Schedule unchanged",
			Message: "We could not apply your changes. Your plan is unchanged.", At: s.cfg.Now(),
		})
		return result, nil
	}
	if latest := a.store.Get().Plan; latest == nil || latest.ID != current.ID {
		return plan.Adaptation{}, ErrStalePlan
	}
	adapted := result.Plan
	a.store.SetPlan(&adapted)
	a.notifyLocked(Notice{
		Level: NoticeSuccess, Title: "Schedule updated", Message: "Your plan has been modified.", At: s.cfg.Now(),
	})
	s.logger.LogAttrs(ctx, slog.LevelInfo, "committed plan modified",
		slog.String("previous_plan_id", current.ID), slog.String("plan_id", adapted.ID))
	return result, nil
}

// Notices drains the acting user's notice queue.
func (s *Service) Notices(ctx context.Context) ([]Notice, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return nil, err
	}
	return a.drainNotices(), nil
}

// PurgeIdle drops athlete contexts that have been idle longer than the idle timeout and reports how many were
// dropped. Contexts with a call in flight are kept.
func (s *Service) PurgeIdle(ctx context.Context) int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := s.cfg.Now().Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	var idle []*Athlete
	for id, a := range s.athletes {
		a.mu.Lock()
		busy := a.generating || a.modifyingSchedule || (a.approval != nil && a.approval.InFlight())
		stale := a.lastActive.Before(cutoff)
		a.mu.Unlock()
		if stale && !busy {
			idle = append(idle, a)
			delete(s.athletes, id)
		}
	}
	s.mu.Unlock()

	for _, a := range idle {
		a.close()
	}
	if len(idle) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "purged idle athletes", slog.Int("count", len(idle)))
	}
	return len(idle)
}
