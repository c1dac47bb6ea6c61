package plan_test

import (
	"testing"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/plan"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{name: "bare object", text: `{"a":1}`, want: `{"a":1}`},
		{name: "prose around", text: "Here you go:\n{\"a\":{\"b\":2}}\nEnjoy!", want: `{"a":{"b":2}}`},
		{name: "code fence", text: "```json\n{\"a\":[1,2]}\n```", want: `{"a":[1,2]}`},
		{name: "braces in strings", text: `{"notes":"use {tempo} 3-1-1","x":"}"} trailing }`, want: `{"notes":"use {tempo} 3-1-1","x":"}"}`},
		{name: "escaped quote in string", text: `{"notes":"say \"hi}\" now"}`, want: `{"notes":"say \"hi}\" now"}`},
		{name: "first object wins", text: `{"a":1} and {"b":2}`, want: `{"a":1}`},
		{name: "no brace", text: "I cannot help with that.", wantErr: plan.ErrNoJSONObject},
		{name: "unbalanced", text: `{"a":{"b":1}`, wantErr: plan.ErrNoJSONObject},
		{name: "empty", text: "", wantErr: plan.ErrNoJSONObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plan.ExtractJSONObject(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSONObject: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSONObject = %s, want %s", got, tt.want)
			}
		})
	}
}
