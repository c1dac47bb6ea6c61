package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	generatedPlanReply = "Here is your plan:\n```json\n" + `{
  "name": "Hypertrophy Block",
  "duration": "6 weeks",
  "days": [
    {
      "day": "Monday",
      "name": "Push",
      "duration": 45,
      "exercises": [
        {"name": "Push-ups", "sets": 2, "reps": "10-12", "weight": "bodyweight", "restTime": "30 seconds",
         "notes": "Keep a straight line.\n\nLower **slowly**.", "muscleGroups": ["chest"]},
        {"name": "Dumbbell Press", "sets": 1, "reps": "8", "weight": "20 kg", "restTime": "90 seconds",
         "notes": "", "muscleGroups": ["chest", "triceps"]}
      ]
    },
    {
      "day": "Thursday",
      "name": "Pull",
      "duration": 45,
      "exercises": [
        {"name": "Rows", "sets": 3, "reps": "10", "weight": "30 kg", "restTime": "1:30",
         "notes": "", "muscleGroups": ["back"]}
      ]
    }
  ],
  "goals": ["gain-muscle"],
  "notes": "Add reps every week"
}` + "\n```"
	adaptedPlanReply = `{"name": "Hypertrophy Block (short sessions)"}`
)

// fakeOpenAI answers chat completions like the generative service. Prompts carrying modification instructions get
// a partial plan, everything else the full plan.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode completion request: %v", err)
		}
		reply := generatedPlanReply
		for _, m := range body.Messages {
			if strings.Contains(m.Content, "User Modifications:") {
				reply = adaptedPlanReply
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// lookupEnvWith returns a lookup for an ephemeral server, optionally backed by a generative service at aiURL.
func lookupEnvWith(aiURL string) func(string) (string, bool) {
	env := map[string]string{
		"COACH_SQLITE_URL":     ":memory:",
		"COACH_ADDR":           "localhost:0",
		"COACH_SECURE_COOKIES": "false",
		"COACH_DOTENV_FILE":    "",
		"COACH_BCRYPT_COST":    "4",
		"COACH_AI_TIMEOUT":     "5s",
	}
	if aiURL != "" {
		env["COACH_OPENAI_API_KEY"] = "test-key"
		env["COACH_OPENAI_BASE_URL"] = aiURL
		env["COACH_OPENAI_MODEL"] = "test-model"
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func testLookupEnv(key string) (string, bool) {
	return lookupEnvWith("")(key)
}

func validProfileBody() map[string]any {
	return map[string]any{
		"name":               "Alex",
		"age":                "31",
		"height":             "180",
		"weight":             "78",
		"gender":             "male",
		"primaryGoal":        "gain-muscle",
		"secondaryGoal":      "none",
		"weeklyAvailability": "2",
		"preferredDays":      []string{"thursday", "Monday"},
	}
}
