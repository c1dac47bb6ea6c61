package plan_test

import (
	"strings"
	"testing"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
	"github.com/myrjola/rexcoach/internal/profile"
)

func TestBuildGenerationPrompt(t *testing.T) {
	full, err := plan.BuildGenerationPrompt(testProfile())
	if err != nil {
		t.Fatalf("BuildGenerationPrompt: %v", err)
	}
	for _, want := range []string{
		"- Name: Ada\n",
		"- Age: 34\n",
		"- Primary Goal: increase-strength\n",
		"- Secondary Goal: gain-muscle\n",
		"- Deadlift: \n",
		`"restTime": "2-3 minutes"`,
	} {
		if !strings.Contains(full, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	minimal, err := plan.BuildGenerationPrompt(profile.Profile{PrimaryGoal: "lose-fat"})
	if err != nil {
		t.Fatalf("BuildGenerationPrompt: %v", err)
	}
	if got, want := strings.Count(minimal, "\n- "), strings.Count(full, "\n- "); got != want {
		t.Errorf("minimal prompt has %d fields, full prompt has %d", got, want)
	}
}

func TestBuildGenerationPrompt_Invalid(t *testing.T) {
	_, err := plan.BuildGenerationPrompt(profile.Profile{PrimaryGoal: "get-famous"})
	var verr *profile.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
