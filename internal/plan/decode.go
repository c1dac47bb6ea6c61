package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/profile"
)

// ErrSchema is returned when a reply object does not have the plan shape.
var ErrSchema = errors.NewSentinel("reply does not match plan schema")

// patch is a decoded reply with presence tracking. Nil fields were absent from the reply.
type patch struct {
	Name     *string
	Duration *string
	Days     *[]Day
	Goals    *[]string
	Notes    *string
}

// strictDay and strictExercise mirror Day and Exercise so that nested unknown fields are rejected too.
type strictDay struct {
	Day       string           `json:"day"`
	Name      string           `json:"name"`
	Exercises []strictExercise `json:"exercises"`
	Duration  int              `json:"duration"`
}

type strictExercise struct {
	Name         string   `json:"name"`
	Sets         int      `json:"sets"`
	Reps         string   `json:"reps"`
	Weight       string   `json:"weight"`
	RestTime     string   `json:"restTime"`
	Notes        string   `json:"notes"`
	MuscleGroups []string `json:"muscleGroups"`
}

// decodePatch decodes object strictly: unknown or mistyped fields fail the whole reply.
func decodePatch(object string) (patch, error) {
	var raw struct {
		// ID is accepted and ignored.
		ID       json.RawMessage `json:"id"`
		Name     *string         `json:"name"`
		Duration *string         `json:"duration"`
		Days     *[]strictDay    `json:"days"`
		Goals    *[]string       `json:"goals"`
		Notes    *string         `json:"notes"`
	}
	dec := json.NewDecoder(strings.NewReader(object))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return patch{}, errors.Wrap(errors.Join(ErrSchema, err), "decode reply")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return patch{}, errors.Wrap(ErrSchema, "trailing data after object")
	}

	p := patch{Name: raw.Name, Duration: raw.Duration, Days: nil, Goals: raw.Goals, Notes: raw.Notes}
	if raw.Days != nil {
		days, err := convertDays(*raw.Days)
		if err != nil {
			return patch{}, err
		}
		p.Days = &days
	}
	return p, nil
}

func convertDays(raw []strictDay) ([]Day, error) {
	days := make([]Day, 0, len(raw))
	for i, rd := range raw {
		if rd.Duration < 0 {
			return nil, errors.Wrap(ErrSchema, "negative day duration", slog.Int("day_index", i))
		}
		weekday := strings.TrimSpace(rd.Day)
		if canonical, ok := profile.CanonicalWeekday(weekday); ok {
			weekday = canonical
		}
		day := Day{Day: weekday, Name: rd.Name, Exercises: make([]Exercise, 0, len(rd.Exercises)), Duration: rd.Duration}
		for j, re := range rd.Exercises {
			if strings.TrimSpace(re.Name) == "" {
				return nil, errors.Wrap(ErrSchema, "exercise without name",
					slog.Int("day_index", i), slog.Int("exercise_index", j))
			}
			if re.Sets < 1 {
				return nil, errors.Wrap(ErrSchema, fmt.Sprintf("exercise %q has %d sets", re.Name, re.Sets),
					slog.Int("day_index", i), slog.Int("exercise_index", j))
			}
			day.Exercises = append(day.Exercises, Exercise(re))
		}
		days = append(days, day)
	}
	return days, nil
}

// over returns base with every present patch field overriding it.
func (p patch) over(base Plan) Plan {
	merged := base.Clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Duration != nil {
		merged.Duration = *p.Duration
	}
	if p.Days != nil {
		merged.Days = *p.Days
	}
	if p.Goals != nil {
		merged.Goals = append([]string(nil), *p.Goals...)
	}
	if p.Notes != nil {
		merged.Notes = *p.Notes
	}
	return merged
}

// parseReply extracts and strictly decodes the first JSON object of a reply.
func parseReply(reply string) (patch, error) {
	object, err := ExtractJSONObject(reply)
	if err != nil {
		return patch{}, err
	}
	return decodePatch(object)
}
