package session

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
)

var (
	ErrNoExercises     = errors.NewSentinel("day has no exercises")
	ErrInvalidReps     = errors.NewSentinel("reps must be a positive integer")
	ErrWeightRequired  = errors.NewSentinel("weight is required for this exercise")
	ErrInvalidWeight   = errors.NewSentinel("weight must be a non-negative number")
	ErrSessionFinished = errors.NewSentinel("session has finished")
)

// CompletedSet is one performed set. Weight zero means bodyweight or unspecified.
type CompletedSet struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// RestCompleteFunc is called once whenever a rest period counts down to zero.
type RestCompleteFunc func(exercise Exercise, set int)

// Config configures an Engine.
type Config struct {
	// DayName is the display name of the day being executed.
	DayName string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// OnRestComplete is called outside the engine lock. Optional.
	OnRestComplete RestCompleteFunc
}

// Engine executes one day's exercises set by set. It is safe for concurrent use.
type Engine struct {
	mu             sync.Mutex
	dayName        string
	exercises      []Exercise
	now            func() time.Time
	onRestComplete RestCompleteFunc

	index     int
	setNumber int
	rest      RestTimer
	completed map[string][]CompletedSet
	startedAt time.Time
	summary   *Summary
}

// NewEngine starts a session over exercises.
func NewEngine(exercises []Exercise, cfg Config) (*Engine, error) {
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		mu:             sync.Mutex{},
		dayName:        cfg.DayName,
		exercises:      append([]Exercise(nil), exercises...),
		now:            now,
		onRestComplete: cfg.OnRestComplete,
		index:          0,
		setNumber:      1,
		rest:           RestTimer{},
		completed:      make(map[string][]CompletedSet, len(exercises)),
		startedAt:      now(),
		summary:        nil,
	}, nil
}

// update runs fn under the lock after expiring a finished rest period. The rest-complete callback runs after the
// lock is released.
func (e *Engine) update(fn func(now time.Time) error) error {
	e.mu.Lock()
	now := e.now()
	var (
		restExercise Exercise
		restSet      int
		fired        bool
	)
	if e.summary == nil && e.rest.Expire(now) {
		fired = true
		restExercise = e.exercises[e.index]
		restSet = e.setNumber
	}
	err := fn(now)
	e.mu.Unlock()

	if fired && e.onRestComplete != nil {
		e.onRestComplete(restExercise, restSet)
	}
	return err
}

// SetResult describes what completing a set did.
type SetResult struct {
	// Set is the number of the set that was recorded.
	Set      int          `json:"set"`
	Exercise Exercise     `json:"exercise"`
	Recorded CompletedSet `json:"recorded"`
	// Resting is set when a rest period started.
	Resting     bool `json:"resting"`
	RestSeconds int  `json:"restSeconds"`
	// Advanced is set when the session moved on to the next exercise.
	Advanced bool `json:"advanced"`
	// Summary is non-nil when this set finished the session.
	Summary *Summary `json:"summary,omitempty"`
}

// CompleteSet records a set of the current exercise. Invalid input is rejected without any state change.
// weight may be nil unless the exercise declares a weight target.
func (e *Engine) CompleteSet(reps int, weight *float64) (SetResult, error) {
	var result SetResult
	err := e.update(func(now time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		current := e.exercises[e.index]
		if reps <= 0 {
			return ErrInvalidReps
		}
		if weight == nil && current.WeightRequired {
			return ErrWeightRequired
		}
		recorded := CompletedSet{Reps: reps, Weight: 0}
		if weight != nil {
			if *weight < 0 || math.IsNaN(*weight) || math.IsInf(*weight, 0) {
				return ErrInvalidWeight
			}
			recorded.Weight = *weight
		}

		e.completed[current.ID] = append(e.completed[current.ID], recorded)
		result = SetResult{Set: e.setNumber, Exercise: current, Recorded: recorded} //nolint:exhaustruct // filled below.

		switch {
		case e.setNumber < current.Sets:
			e.setNumber++
			e.rest.Start(now, time.Duration(current.RestSeconds)*time.Second)
			result.Resting = e.rest.Active()
			result.RestSeconds = current.RestSeconds
		case e.index < len(e.exercises)-1:
			e.moveTo(e.index + 1)
			result.Advanced = true
		default:
			e.finish(now, true)
			result.Summary = e.summary
		}
		return nil
	})
	return result, err
}

// StartRest starts a rest period for the current exercise without recording a set.
func (e *Engine) StartRest() error {
	return e.update(func(now time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		e.rest.Start(now, time.Duration(e.exercises[e.index].RestSeconds)*time.Second)
		return nil
	})
}

// PauseRest freezes the rest countdown.
func (e *Engine) PauseRest() error {
	return e.update(func(now time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		e.rest.Pause(now)
		return nil
	})
}

// ResumeRest continues a paused rest countdown.
func (e *Engine) ResumeRest() error {
	return e.update(func(now time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		e.rest.Resume(now)
		return nil
	})
}

// SkipRest ends the rest period immediately without a rest-complete notification.
func (e *Engine) SkipRest() error {
	return e.update(func(time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		e.rest.Stop()
		return nil
	})
}

// Next moves to the following exercise. It is a no-op on the last exercise and reports whether it moved.
func (e *Engine) Next() (bool, error) {
	var moved bool
	err := e.update(func(time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		if e.index < len(e.exercises)-1 {
			e.moveTo(e.index + 1)
			moved = true
		}
		return nil
	})
	return moved, err
}

// Previous moves to the preceding exercise. It is a no-op on the first exercise and reports whether it moved.
func (e *Engine) Previous() (bool, error) {
	var moved bool
	err := e.update(func(time.Time) error {
		if e.summary != nil {
			return ErrSessionFinished
		}
		if e.index > 0 {
			e.moveTo(e.index - 1)
			moved = true
		}
		return nil
	})
	return moved, err
}

// moveTo switches exercise. Rest is exercise specific so an in-progress rest period is discarded.
func (e *Engine) moveTo(index int) {
	e.index = index
	e.setNumber = 1
	e.rest.Stop()
}

// Tick expires a finished rest period. Schedulers call it periodically so that rest-complete notifications fire
// without client polling.
func (e *Engine) Tick() {
	_ = e.update(func(time.Time) error { return nil })
}

// End finishes the session and returns its summary. Ending an already finished session returns the same summary.
func (e *Engine) End() Summary {
	var s Summary
	_ = e.update(func(now time.Time) error {
		if e.summary == nil {
			e.finish(now, false)
		}
		s = *e.summary
		return nil
	})
	return s
}

// Finished reports whether the session has ended.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summary != nil
}

func (e *Engine) finish(now time.Time, allDone bool) {
	e.rest.Stop()
	e.summary = &Summary{
		DayName:        e.dayName,
		StartedAt:      e.startedAt,
		EndedAt:        now,
		ElapsedMinutes: elapsedMinutes(e.startedAt, now),
		Completed:      allDone,
		Exercises:      make([]ExerciseSummary, 0, len(e.exercises)),
		TotalSets:      0,
	}
	for _, ex := range e.exercises {
		sets := append([]CompletedSet(nil), e.completed[ex.ID]...)
		e.summary.Exercises = append(e.summary.Exercises, ExerciseSummary{ID: ex.ID, Name: ex.Name, Sets: sets})
		e.summary.TotalSets += len(sets)
	}
}

func elapsedMinutes(from, to time.Time) int {
	return int(to.Sub(from).Milliseconds() / 60000) //nolint:mnd // milliseconds per minute.
}

// LogValue summarises the engine for structured logs.
func (e *Engine) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slog.GroupValue(
		slog.String("day", e.dayName),
		slog.Int("exercise_index", e.index),
		slog.Int("set_number", e.setNumber),
		slog.Bool("finished", e.summary != nil),
	)
}
