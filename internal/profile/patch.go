package profile

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/myrjola/rexcoach/internal/errors"
)

// Patch is a partial profile used by "update metrics". Nil fields keep the stored value.
type Patch struct {
	Name   *string `json:"name"`
	Age    *string `json:"age"`
	Height *string `json:"height"`
	Weight *string `json:"weight"`
	Gender *string `json:"gender"`

	BodyFat    *string `json:"bodyFat"`
	MuscleMass *string `json:"muscleMass"`

	DietStyle     *string `json:"dietStyle"`
	DailyMeals    *string `json:"dailyMeals"`
	DailyCalories *string `json:"dailyCalories"`
	ProteinIntake *string `json:"proteinIntake"`

	CurrentProgram *string `json:"currentProgram"`
	BenchPress     *string `json:"benchPress"`
	Squat          *string `json:"squat"`
	Deadlift       *string `json:"deadlift"`
	OverheadPress  *string `json:"overheadPress"`
	PullUps        *string `json:"pullUps"`
	Rows           *string `json:"rows"`

	PrimaryGoal        *string   `json:"primaryGoal"`
	SecondaryGoal      *string   `json:"secondaryGoal"`
	WeeklyAvailability *string   `json:"weeklyAvailability"`
	PreferredDays      *[]string `json:"preferredDays"`
}

var (
	// ErrMalformed is returned when a profile document cannot be decoded.
	ErrMalformed = errors.NewSentinel("malformed profile")
	// ErrTrailingData is joined with ErrMalformed when the document is followed by more JSON.
	ErrTrailingData = errors.NewSentinel("trailing data after profile")
)

// Decode strictly decodes a full profile, rejecting unknown fields and trailing data.
func Decode(r io.Reader) (Profile, error) {
	var p Profile
	if err := decodeStrict(r, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// DecodePatch strictly decodes a partial profile.
func DecodePatch(r io.Reader) (Patch, error) {
	var p Patch
	if err := decodeStrict(r, &p); err != nil {
		return Patch{}, err
	}
	return p, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrMalformed, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.Join(ErrMalformed, ErrTrailingData)
	}
	return nil
}

// Apply returns a copy of p with every non-nil patch field overriding the stored value.
func (p Profile) Apply(patch Patch) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, patch.Name)
	set(&p.Age, patch.Age)
	set(&p.Height, patch.Height)
	set(&p.Weight, patch.Weight)
	set(&p.Gender, patch.Gender)
	set(&p.BodyFat, patch.BodyFat)
	set(&p.MuscleMass, patch.MuscleMass)
	set(&p.DietStyle, patch.DietStyle)
	set(&p.DailyMeals, patch.DailyMeals)
	set(&p.DailyCalories, patch.DailyCalories)
	set(&p.ProteinIntake, patch.ProteinIntake)
	set(&p.CurrentProgram, patch.CurrentProgram)
	set(&p.BenchPress, patch.BenchPress)
	set(&p.Squat, patch.Squat)
	set(&p.Deadlift, patch.Deadlift)
	set(&p.OverheadPress, patch.OverheadPress)
	set(&p.PullUps, patch.PullUps)
	set(&p.Rows, patch.Rows)
	set(&p.PrimaryGoal, patch.PrimaryGoal)
	set(&p.SecondaryGoal, patch.SecondaryGoal)
	set(&p.WeeklyAvailability, patch.WeeklyAvailability)
	if patch.PreferredDays != nil {
		p.PreferredDays = append([]string(nil), (*patch.PreferredDays)...)
	} else {
		p.PreferredDays = append([]string(nil), p.PreferredDays...)
	}
	return p
}

// Marshal encodes the profile for the blob store.
func (p Profile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(p); err != nil {
		return nil, errors.Wrap(err, "encode profile")
	}
	return buf.Bytes(), nil
}
