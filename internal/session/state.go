package session

import (
	"math"
	"time"
)

// State is a consistent snapshot of a running session.
type State struct {
	DayName              string                    `json:"dayName"`
	ExerciseIndex        int                       `json:"exerciseIndex"`
	ExerciseCount        int                       `json:"exerciseCount"`
	Exercise             Exercise                  `json:"exercise"`
	SetNumber            int                       `json:"setNumber"`
	TargetSets           int                       `json:"targetSets"`
	IsResting            bool                      `json:"isResting"`
	RestPaused           bool                      `json:"restPaused"`
	RestSecondsRemaining int                       `json:"restSecondsRemaining"`
	CompletedSets        map[string][]CompletedSet `json:"completedSets"`
	// Progress is the exact completion percentage and ProgressPercent its rounded display value.
	Progress        float64   `json:"progress"`
	ProgressPercent int       `json:"progressPercent"`
	StartedAt       time.Time `json:"startedAt"`
	ElapsedMinutes  int       `json:"elapsedMinutes"`
	Finished        bool      `json:"finished"`
}

// Summary is reported when a session ends. Nothing is persisted.
type Summary struct {
	DayName        string            `json:"dayName"`
	StartedAt      time.Time         `json:"startedAt"`
	EndedAt        time.Time         `json:"endedAt"`
	ElapsedMinutes int               `json:"elapsedMinutes"`
	// Completed is set when every set of every exercise was recorded before the session ended.
	Completed bool              `json:"completed"`
	Exercises []ExerciseSummary `json:"exercises"`
	TotalSets int               `json:"totalSets"`
}

// ExerciseSummary lists the sets recorded for one exercise.
type ExerciseSummary struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Sets []CompletedSet `json:"sets"`
}

// State returns a snapshot of the session.
func (e *Engine) State() State {
	var s State
	_ = e.update(func(now time.Time) error {
		current := e.exercises[e.index]
		completed := make(map[string][]CompletedSet, len(e.completed))
		for id, sets := range e.completed {
			completed[id] = append([]CompletedSet(nil), sets...)
		}
		progress := e.progress()
		elapsedUntil := now
		if e.summary != nil {
			elapsedUntil = e.summary.EndedAt
		}
		s = State{
			DayName:              e.dayName,
			ExerciseIndex:        e.index,
			ExerciseCount:        len(e.exercises),
			Exercise:             current,
			SetNumber:            e.setNumber,
			TargetSets:           current.Sets,
			IsResting:            e.rest.Active(),
			RestPaused:           e.rest.Paused(),
			RestSecondsRemaining: e.rest.RemainingSeconds(now),
			CompletedSets:        completed,
			Progress:             progress,
			ProgressPercent:      int(math.Round(progress)),
			StartedAt:            e.startedAt,
			ElapsedMinutes:       elapsedMinutes(e.startedAt, elapsedUntil),
			Finished:             e.summary != nil,
		}
		return nil
	})
	return s
}

// progress counts the sets finished in the current exercise: one of three sets done on the first of two exercises
// is (0 + 1/3) / 2.
func (e *Engine) progress() float64 {
	if e.summary != nil && e.summary.Completed {
		return 100 //nolint:mnd // percent.
	}
	current := e.exercises[e.index]
	done := float64(e.setNumber-1) / float64(current.Sets)
	return (float64(e.index) + done) / float64(len(e.exercises)) * 100 //nolint:mnd // percent.
}
