package plan_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/rexcoach/internal/plan"
)

func TestPlan_DayLookup(t *testing.T) {
	p := plan.FallbackPlan(nil, "plan-1")

	tests := []struct {
		name    string
		lookup  func() (plan.Day, bool)
		wantDay string
		wantOK  bool
	}{
		{name: "monday by weekday", lookup: func() (plan.Day, bool) { return p.DayFor(time.Monday) }, wantDay: "Upper Body", wantOK: true},
		{name: "tuesday is rest", lookup: func() (plan.Day, bool) { return p.DayFor(time.Tuesday) }},
		{name: "by name", lookup: func() (plan.Day, bool) { return p.DayNamed("wednesday") }, wantDay: "Lower Body", wantOK: true},
		{name: "unknown name", lookup: func() (plan.Day, bool) { return p.DayNamed("someday") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, ok := tt.lookup()
			if ok != tt.wantOK || day.Name != tt.wantDay {
				t.Errorf("lookup = %q, %v; want %q, %v", day.Name, ok, tt.wantDay, tt.wantOK)
			}
		})
	}
}

func TestPlan_TrainingDays(t *testing.T) {
	p := plan.FallbackPlan(nil, "plan-1")
	if diff := cmp.Diff([]string{"Monday", "Wednesday"}, p.TrainingDays()); diff != "" {
		t.Errorf("TrainingDays() mismatch (-want +got):\n%s", diff)
	}
	if got := (plan.Plan{}).TrainingDays(); len(got) != 0 {
		t.Errorf("empty plan has training days %v", got)
	}
}

func TestNewID(t *testing.T) {
	a, b := plan.NewID(), plan.NewID()
	if a == b {
		t.Errorf("ids collide: %s", a)
	}
	if len(a) != len("plan-")+36 {
		t.Errorf("unexpected id %q", a)
	}
}
