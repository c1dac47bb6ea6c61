package plan

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/profile"
)

const planShape = `{
  "name": "Plan Name",
  "duration": "4-6 weeks",
  "days": [
    {
      "day": "Monday",
      "name": "Upper Body Power",
      "exercises": [
        {
          "name": "Bench Press",
          "sets": 4,
          "reps": "6-8",
          "weight": "80% of max",
          "restTime": "2-3 minutes",
          "notes": "Focus on form",
          "muscleGroups": ["chest", "triceps", "shoulders"]
        }
      ],
      "duration": 60
    }
  ],
  "goals": ["strength", "muscle"],
  "notes": "Progressive overload every week"
}`

//nolint:gochecknoglobals // parsed once.
var generationTemplate = template.Must(template.New("generation").Funcs(template.FuncMap{"join": strings.Join}).Parse(
	`Create a detailed workout plan for a user with the following profile:

Personal Info:
- Name: {{.Name}}
- Age: {{.Age}}
- Height (cm): {{.Height}}
- Weight (kg): {{.Weight}}
- Gender: {{.Gender}}
- Body Fat (%): {{.BodyFat}}
- Muscle Mass: {{.MuscleMass}}

Fitness Info:
- Primary Goal: {{.PrimaryGoal}}
- Secondary Goal: {{.SecondaryGoal}}
- Weekly Availability (days): {{.WeeklyAvailability}}
- Preferred Days: {{join .PreferredDays ", "}}
- Current Program: {{.CurrentProgram}}

Current Strength Levels:
- Bench Press: {{.BenchPress}}
- Squat: {{.Squat}}
- Deadlift: {{.Deadlift}}
- Overhead Press: {{.OverheadPress}}
- Pull-ups: {{.PullUps}}
- Rows: {{.Rows}}

Diet Info:
- Diet Style: {{.DietStyle}}
- Daily Meals: {{.DailyMeals}}
- Daily Calories: {{.DailyCalories}}
- Protein Intake (g): {{.ProteinIntake}}

Create a comprehensive workout plan with specific exercises, sets, reps, weights and rest times.
Schedule the training days on the preferred days using full English weekday names.
Write exercise notes as short Markdown paragraphs or lists of form cues.
Respond with a single JSON object with exactly this structure:
{{.Shape}}
`))

// BuildGenerationPrompt normalises and validates p and renders it into a generation request. Every field is
// embedded as entered and missing values render empty so that the prompt layout stays the same for all profiles.
func BuildGenerationPrompt(p profile.Profile) (string, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return "", err //nolint:wrapcheck // ValidationError is surfaced to the caller as is.
	}
	var sb strings.Builder
	data := struct {
		profile.Profile
		Shape string
	}{Profile: p, Shape: planShape}
	if err := generationTemplate.Execute(&sb, data); err != nil {
		return "", errors.Wrap(err, "render generation prompt")
	}
	return sb.String(), nil
}

// BuildAdaptationPrompt serialises the full current plan together with the modification instructions.
func BuildAdaptationPrompt(current Plan, instructions string) (string, error) {
	encoded, err := json.Marshal(current)
	if err != nil {
		return "", errors.Wrap(err, "encode current plan")
	}
	var sb strings.Builder
	sb.WriteString("Modify the following workout plan based on user feedback.\n\n")
	sb.WriteString("Current Plan: ")
	sb.Write(encoded)
	sb.WriteString("\n\nUser Modifications: ")
	sb.WriteString(instructions)
	sb.WriteString("\n\nReturn the modified plan as a single JSON object in the same structure. ")
	sb.WriteString("Fields you leave out keep their current value.\n")
	return sb.String(), nil
}
