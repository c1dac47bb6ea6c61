// Package profile models the athlete profile collected at onboarding and updated through "update metrics".
package profile

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Goal is one of the fixed training goals offered at onboarding.
type Goal string

const (
	GoalLoseFat           Goal = "lose-fat"
	GoalGainMuscle        Goal = "gain-muscle"
	GoalIncreaseStrength  Goal = "increase-strength"
	GoalImproveEndurance  Goal = "improve-endurance"
	GoalRecomposition     Goal = "recomposition"
	secondaryGoalNoneText      = "none"
)

// Goals lists the accepted primary goals in display order.
//
//nolint:gochecknoglobals // read-only enumeration.
var Goals = []Goal{GoalLoseFat, GoalGainMuscle, GoalIncreaseStrength, GoalImproveEndurance, GoalRecomposition}

// Profile is the athlete's self-reported data. Values are kept as entered so that they can be embedded verbatim in
// generation requests; numeric fields are validated to be empty or non-negative numbers.
type Profile struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Height string `json:"height"`
	Weight string `json:"weight"`
	Gender string `json:"gender"`

	BodyFat    string `json:"bodyFat"`
	MuscleMass string `json:"muscleMass"`

	DietStyle     string `json:"dietStyle"`
	DailyMeals    string `json:"dailyMeals"`
	DailyCalories string `json:"dailyCalories"`
	ProteinIntake string `json:"proteinIntake"`

	CurrentProgram string `json:"currentProgram"`
	BenchPress     string `json:"benchPress"`
	Squat          string `json:"squat"`
	Deadlift       string `json:"deadlift"`
	OverheadPress  string `json:"overheadPress"`
	PullUps        string `json:"pullUps"`
	Rows           string `json:"rows"`

	PrimaryGoal        string   `json:"primaryGoal"`
	SecondaryGoal      string   `json:"secondaryGoal"`
	WeeklyAvailability string   `json:"weeklyAvailability"`
	PreferredDays      []string `json:"preferredDays"`
}

// plainNumber accepts decimal notation only. strconv.ParseFloat also takes NaN, Inf, hex and underscores.
//
//nolint:gochecknoglobals // compiled once.
var plainNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)

// ValidationError reports invalid profile fields keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid profile: " + strings.Join(parts, ", ")
}

// numericFields returns pointers to the fields that must be empty or non-negative numbers, keyed by JSON name.
func (p *Profile) numericFields() map[string]*string {
	return map[string]*string{
		"age":                &p.Age,
		"height":             &p.Height,
		"weight":             &p.Weight,
		"bodyFat":            &p.BodyFat,
		"dailyMeals":         &p.DailyMeals,
		"dailyCalories":      &p.DailyCalories,
		"proteinIntake":      &p.ProteinIntake,
		"benchPress":         &p.BenchPress,
		"squat":              &p.Squat,
		"deadlift":           &p.Deadlift,
		"overheadPress":      &p.OverheadPress,
		"pullUps":            &p.PullUps,
		"rows":               &p.Rows,
		"weeklyAvailability": &p.WeeklyAvailability,
	}
}

// Normalize trims all fields, lower-cases the enumerated ones and canonicalises preferred days
// (deduplicated, Monday first).
func (p *Profile) Normalize() {
	for _, f := range []*string{
		&p.Name, &p.Gender, &p.MuscleMass, &p.DietStyle, &p.CurrentProgram, &p.PrimaryGoal, &p.SecondaryGoal,
	} {
		*f = strings.TrimSpace(*f)
	}
	for _, f := range p.numericFields() {
		*f = strings.TrimSpace(*f)
	}
	p.Gender = strings.ToLower(p.Gender)
	p.DietStyle = strings.ToLower(p.DietStyle)
	p.PrimaryGoal = strings.ToLower(p.PrimaryGoal)
	p.SecondaryGoal = strings.ToLower(p.SecondaryGoal)

	days := make([]string, 0, len(p.PreferredDays))
	for _, d := range p.PreferredDays {
		canonical, ok := CanonicalWeekday(d)
		if !ok {
			// Kept as entered so that Validate can report it.
			canonical = strings.TrimSpace(d)
		}
		if !slices.Contains(days, canonical) {
			days = append(days, canonical)
		}
	}
	slices.SortStableFunc(days, func(a, b string) int {
		return weekdayOrder(a) - weekdayOrder(b)
	})
	p.PreferredDays = days
}

// Validate checks the field constraints without cross-field plausibility checks.
func (p *Profile) Validate() error {
	fields := make(map[string]string)
	for name, value := range p.numericFields() {
		v := strings.TrimSpace(*value)
		if v == "" {
			continue
		}
		if !plainNumber.MatchString(v) {
			fields[name] = "must be a number"
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsInf(n, 0) {
			fields[name] = "must be a number"
			continue
		}
		if n < 0 {
			fields[name] = "must not be negative"
		}
	}

	if !IsGoal(p.PrimaryGoal) {
		fields["primaryGoal"] = "must be one of " + goalList()
	}
	if p.SecondaryGoal != "" && p.SecondaryGoal != secondaryGoalNoneText && !IsGoal(p.SecondaryGoal) {
		fields["secondaryGoal"] = "must be none or one of " + goalList()
	}
	for _, d := range p.PreferredDays {
		if _, ok := CanonicalWeekday(d); !ok {
			fields["preferredDays"] = fmt.Sprintf("unknown weekday %q", d)
			break
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// GoalTags returns the primary and secondary goals, skipping empty and "none" values.
func (p *Profile) GoalTags() []string {
	goals := make([]string, 0, 2) //nolint:mnd // primary and secondary.
	for _, g := range []string{p.PrimaryGoal, p.SecondaryGoal} {
		if g != "" && g != secondaryGoalNoneText {
			goals = append(goals, g)
		}
	}
	return goals
}

// IsGoal reports whether s is one of the accepted goals.
func IsGoal(s string) bool {
	return slices.Contains(Goals, Goal(s))
}

func goalList() string {
	names := make([]string, len(Goals))
	for i, g := range Goals {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

// CanonicalWeekday maps a case-insensitive weekday name to its canonical form, e.g. "monday" to "Monday".
func CanonicalWeekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d.String(), true
		}
	}
	return "", false
}

// weekdayOrder sorts Monday first and unknown names last.
func weekdayOrder(s string) int {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s == d.String() {
			return (int(d) + 6) % 7 //nolint:mnd // shift Sunday to the end of the week.
		}
	}
	return 7 //nolint:mnd // after Sunday.
}
