package coach

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/session"
)

// StartSession starts a workout session for the committed plan's day named dayName, or today's day when dayName is
// empty. A finished session is replaced; a running one must be ended first.
func (s *Service) StartSession(ctx context.Context, dayName string) (session.State, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return session.State{}, err
	}
	current := a.store.Get().Plan
	if current == nil {
		return session.State{}, ErrNoActivePlan
	}

	var (
		day plan.Day
		ok  bool
	)
	if dayName == "" {
		if day, ok = current.DayFor(s.cfg.Now().Weekday()); !ok {
			return session.State{}, ErrRestDay
		}
	} else if day, ok = current.DayNamed(dayName); !ok {
		return session.State{}, errors.Wrap(ErrUnknownDay, "find day", slog.String("day", dayName))
	}

	engine, err := session.NewEngine(session.ExercisesFromDay(day), session.Config{
		DayName: day.Name,
		Now:     s.cfg.Now,
		OnRestComplete: func(e session.Exercise, set int) {
			a.notify(Notice{
				Level: NoticeInfo, Title: "Rest complete", Message: fmt.Sprintf("Time for set %d of %s.", set, e.Name),
				At: s.cfg.Now(),
			})
		},
	})
	if err != nil {
		return session.State{}, errors.Wrap(err, "start session", slog.String("day", day.Day))
	}

	a.mu.Lock()
	if a.engine != nil && !a.engine.Finished() {
		a.mu.Unlock()
		return session.State{}, ErrSessionInProgress
	}
	a.engine = engine
	a.lastSummary = nil
	a.mu.Unlock()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "workout session started",
		slog.String("plan_id", current.ID), slog.Any("session", engine))
	return engine.State(), nil
}

// engine returns the acting user's session engine. Engine methods must be called without holding the athlete lock
// because rest-complete callbacks queue notices.
func (s *Service) engine(ctx context.Context) (*Athlete, *session.Engine, error) {
	a, err := s.athlete(ctx)
	if err != nil {
		return nil, nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil {
		return nil, nil, ErrNoSession
	}
	return a, a.engine, nil
}

// SessionState returns the running or last finished session.
func (s *Service) SessionState(ctx context.Context) (session.State, error) {
	_, e, err := s.engine(ctx)
	if err != nil {
		return session.State{}, err
	}
	return e.State(), nil
}

// CompleteSet records a set in the running session.
func (s *Service) CompleteSet(ctx context.Context, reps int, weight *float64) (session.SetResult, error) {
	a, e, err := s.engine(ctx)
	if err != nil {
		return session.SetResult{}, err
	}
	res, err := e.CompleteSet(reps, weight)
	if err != nil {
		return session.SetResult{}, errors.Wrap(err, "complete set")
	}

	now := s.cfg.Now()
	switch {
	case res.Summary != nil:
		s.recordFinished(ctx, a, *res.Summary)
	case res.Resting:
		a.notify(Notice{
			Level: NoticeSuccess, Title: fmt.Sprintf("Set %d complete", res.Set),
			Message: "Rest for " + formatRest(res.RestSeconds), At: now,
		})
	default:
		a.notify(Notice{
			Level: NoticeSuccess, Title: fmt.Sprintf("Set %d complete", res.Set),
			Message: res.Exercise.Name + " done.", At: now,
		})
	}
	return res, nil
}

// StartRest starts a rest period for the current exercise.
func (s *Service) StartRest(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "start rest", (*session.Engine).StartRest)
}

// PauseRest freezes the rest countdown.
func (s *Service) PauseRest(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "pause rest", (*session.Engine).PauseRest)
}

// ResumeRest continues the rest countdown.
func (s *Service) ResumeRest(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "resume rest", (*session.Engine).ResumeRest)
}

// SkipRest ends the rest period immediately.
func (s *Service) SkipRest(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "skip rest", (*session.Engine).SkipRest)
}

// NextExercise moves to the following exercise. It is a no-op on the last one.
func (s *Service) NextExercise(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "next exercise", func(e *session.Engine) error {
		_, err := e.Next()
		return err
	})
}

// PreviousExercise moves to the preceding exercise. It is a no-op on the first one.
func (s *Service) PreviousExercise(ctx context.Context) (session.State, error) {
	return s.onEngine(ctx, "previous exercise", func(e *session.Engine) error {
		_, err := e.Previous()
		return err
	})
}

func (s *Service) onEngine(ctx context.Context, op string, fn func(*session.Engine) error) (session.State, error) {
	_, e, err := s.engine(ctx)
	if err != nil {
		return session.State{}, err
	}
	if err = fn(e); err != nil {
		return session.State{}, errors.Wrap(err, op)
	}
	return e.State(), nil
}

// EndSession ends the running session and returns its summary. Nothing is persisted.
func (s *Service) EndSession(ctx context.Context) (session.Summary, error) {
	a, e, err := s.engine(ctx)
	if err != nil {
		return session.Summary{}, err
	}
	if e.Finished() {
		a.mu.Lock()
		last := a.lastSummary
		a.mu.Unlock()
		if last != nil {
			return *last, nil
		}
		return e.End(), nil
	}
	summary := e.End()
	s.recordFinished(ctx, a, summary)
	return summary, nil
}

func (s *Service) recordFinished(ctx context.Context, a *Athlete, summary session.Summary) {
	a.mu.Lock()
	a.lastSummary = &summary
	a.notifyLocked(Notice{
		Level: NoticeSuccess, Title: "Workout complete",
		Message: fmt.Sprintf("Great job! You finished in %d minutes.", summary.ElapsedMinutes), At: s.cfg.Now(),
	})
	a.mu.Unlock()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "workout session finished",
		slog.String("day", summary.DayName), slog.Int("elapsed_minutes", summary.ElapsedMinutes),
		slog.Int("total_sets", summary.TotalSets), slog.Bool("completed", summary.Completed))
}

// TickSessions expires finished rest periods of all running sessions so that rest-complete notices are queued even
// when no client is polling.
func (s *Service) TickSessions() {
	s.mu.Lock()
	engines := make([]*session.Engine, 0, len(s.athletes))
	for _, a := range s.athletes {
		a.mu.Lock()
		if a.engine != nil {
			engines = append(engines, a.engine)
		}
		a.mu.Unlock()
	}
	s.mu.Unlock()

	for _, e := range engines {
		e.Tick()
	}
}

func formatRest(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60) //nolint:mnd // seconds per minute.
}
