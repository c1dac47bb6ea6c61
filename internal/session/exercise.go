// Package session runs one live, timed execution of a single training day.
package session

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultRestSeconds is used when an exercise's rest descriptor cannot be parsed.
const DefaultRestSeconds = 90

// Exercise is the execution-time form of a plan exercise.
type Exercise struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Sets         int      `json:"sets"`
	Reps         string   `json:"reps"`
	Weight       string   `json:"weight"`
	RestSeconds  int      `json:"restSeconds"`
	Instructions []string `json:"instructions"`
	MuscleGroups []string `json:"muscleGroups"`
	// WeightRequired is set when the exercise declares a weight target, in which case completed sets must report
	// the weight used.
	WeightRequired bool `json:"weightRequired"`
}

// ExercisesFromDay derives session exercises from a plan day. Ids are the 1-based positions.
func ExercisesFromDay(day plan.Day) []Exercise {
	exercises := make([]Exercise, 0, len(day.Exercises))
	for i, e := range day.Exercises {
		exercises = append(exercises, Exercise{
			ID:             strconv.Itoa(i + 1),
			Name:           e.Name,
			Sets:           max(e.Sets, 1),
			Reps:           e.Reps,
			Weight:         e.Weight,
			RestSeconds:    ParseRestSeconds(e.RestTime),
			Instructions:   ParseInstructions(e.Notes),
			MuscleGroups:   append([]string(nil), e.MuscleGroups...),
			WeightRequired: declaresWeight(e.Weight),
		})
	}
	return exercises
}

func declaresWeight(descriptor string) bool {
	switch strings.ToLower(strings.TrimSpace(descriptor)) {
	case "", "-", "n/a", "none", "bodyweight", "body weight", "bw":
		return false
	default:
		return true
	}
}

//nolint:gochecknoglobals // compiled once.
var (
	clockRest = regexp.MustCompile(`(\d+):([0-5]\d)`)
	rangeRest = regexp.MustCompile(
		`(?i)(\d+(?:\.\d+)?)(?:\s*(?:-|–|to)\s*(\d+(?:\.\d+)?))?\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h)?\b`)
)

// ParseRestSeconds converts rest descriptors such as "90 seconds", "2-3 minutes" or "1:30" to seconds. Ranges
// resolve to their upper bound and numbers without a unit are seconds. Unparseable descriptors yield
// DefaultRestSeconds.
func ParseRestSeconds(descriptor string) int {
	if m := clockRest.FindStringSubmatch(descriptor); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		if total := minutes*60 + seconds; total > 0 { //nolint:mnd // seconds per minute.
			return total
		}
	}

	m := rangeRest.FindStringSubmatch(descriptor)
	if m == nil {
		return DefaultRestSeconds
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultRestSeconds
	}
	if m[2] != "" {
		if upper, upperErr := strconv.ParseFloat(m[2], 64); upperErr == nil && upper > value {
			value = upper
		}
	}
	switch unit := strings.ToLower(m[3]); {
	case strings.HasPrefix(unit, "m"):
		value *= 60 //nolint:mnd // seconds per minute.
	case strings.HasPrefix(unit, "h"):
		value *= 60 * 60 //nolint:mnd // seconds per hour.
	}
	seconds := int(math.Round(value))
	if seconds <= 0 {
		return DefaultRestSeconds
	}
	return seconds
}

// ParseInstructions turns exercise notes written in Markdown into a list of instructions, one per paragraph or list
// item. Inline markup is dropped.
func ParseInstructions(notes string) []string {
	source := []byte(notes)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	instructions := make([]string, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() { //nolint:exhaustive // only text blocks carry instructions.
		case ast.KindParagraph, ast.KindTextBlock:
			if s := inlineText(n, source); s != "" {
				instructions = append(instructions, s)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return instructions
}

func inlineText(block ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
