// Package plan holds the workout plan model and the clients that obtain plans from the generative service.
package plan

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/rexcoach/internal/profile"
)

// Plan is a multi-day workout program.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Duration string   `json:"duration"`
	Days     []Day    `json:"days"`
	Goals    []string `json:"goals"`
	Notes    string   `json:"notes"`
}

// Day is one training day of a plan.
type Day struct {
	// Day is the weekday name, e.g. "Monday".
	Day       string     `json:"day"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
	// Duration is the target duration in minutes.
	Duration int `json:"duration"`
}

// Exercise is the plan-authoring form of an exercise.
type Exercise struct {
	Name         string   `json:"name"`
	Sets         int      `json:"sets"`
	Reps         string   `json:"reps"`
	Weight       string   `json:"weight"`
	RestTime     string   `json:"restTime"`
	Notes        string   `json:"notes"`
	MuscleGroups []string `json:"muscleGroups"`
}

// NewID returns a fresh plan id. Ids found in service replies are never reused.
func NewID() string {
	return "plan-" + uuid.NewString()
}

// DayFor returns the first training day scheduled on weekday.
func (p Plan) DayFor(weekday time.Weekday) (Day, bool) {
	for _, d := range p.Days {
		if d.Day == weekday.String() {
			return d, true
		}
	}
	return Day{}, false
}

// DayNamed returns the first training day whose weekday matches name case-insensitively.
func (p Plan) DayNamed(name string) (Day, bool) {
	canonical, ok := profile.CanonicalWeekday(name)
	if !ok {
		return Day{}, false
	}
	for _, d := range p.Days {
		if d.Day == canonical {
			return d, true
		}
	}
	return Day{}, false
}

// TrainingDays returns the weekdays with training in plan order. A plan without days rests every day.
func (p Plan) TrainingDays() []string {
	days := make([]string, 0, len(p.Days))
	for _, d := range p.Days {
		if !slices.Contains(days, d.Day) {
			days = append(days, d.Day)
		}
	}
	return days
}

// Clone returns a deep copy so that callers can hand out plans without sharing slices.
func (p Plan) Clone() Plan {
	c := p
	c.Goals = append([]string(nil), p.Goals...)
	c.Days = make([]Day, len(p.Days))
	for i, d := range p.Days {
		c.Days[i] = d
		c.Days[i].Exercises = make([]Exercise, len(d.Exercises))
		for j, e := range d.Exercises {
			c.Days[i].Exercises[j] = e
			c.Days[i].Exercises[j].MuscleGroups = append([]string(nil), e.MuscleGroups...)
		}
	}
	return c
}
