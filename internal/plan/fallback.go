package plan

// FallbackPlan returns the deterministic plan used when generation fails. Only goals and id vary between calls.
func FallbackPlan(goals []string, id string) Plan {
	return Plan{
		ID:       id,
		Name:     "Beginner Strength Program",
		Duration: "4-6 weeks",
		Days: []Day{
			{
				Day:  "Monday",
				Name: "Upper Body",
				Exercises: []Exercise{
					{
						Name:         "Bench Press",
						Sets:         3,
						Reps:         "8-10",
						Weight:       "Start with 60% of max",
						RestTime:     "2 minutes",
						Notes:        "Focus on form",
						MuscleGroups: []string{"chest", "triceps", "shoulders"},
					},
					{
						Name:         "Rows",
						Sets:         3,
						Reps:         "8-10",
						Weight:       "Moderate",
						RestTime:     "2 minutes",
						Notes:        "Squeeze shoulder blades",
						MuscleGroups: []string{"back", "biceps"},
					},
				},
				Duration: 45, //nolint:mnd // minutes
			},
			{
				Day:  "Wednesday",
				Name: "Lower Body",
				Exercises: []Exercise{
					{
						Name:         "Squats",
						Sets:         3,
						Reps:         "8-10",
						Weight:       "Start with 60% of max",
						RestTime:     "2-3 minutes",
						Notes:        "Full depth",
						MuscleGroups: []string{"quads", "glutes", "hamstrings"},
					},
					{
						Name:         "Deadlifts",
						Sets:         3,
						Reps:         "5-8",
						Weight:       "Start with 60% of max",
						RestTime:     "3 minutes",
						Notes:        "Keep back straight",
						MuscleGroups: []string{"hamstrings", "glutes", "back"},
					},
				},
				Duration: 45, //nolint:mnd // minutes
			},
		},
		Goals: append([]string{}, goals...),
		Notes: "Progressive overload weekly. Increase weight by 2.5-5% when you can complete all reps.",
	}
}
