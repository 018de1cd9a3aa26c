package wizard

import (
	"strings"
	"testing"
)

const validConfig = `{
	"wizard_id": "course_map_v1",
	"version": 1,
	"title": "Course Map Wizard",
	"steps": [
		{
			"id": "s0_context",
			"title": "Course context",
			"gate": {"mode": "none"},
			"questions": [
				{"id": "course_title", "type": "short_text", "required": true},
				{"id": "audience", "type": "long_text", "required": true}
			]
		},
		{
			"id": "s1_outcomes",
			"title": "Learning outcomes",
			"gate": {"mode": "hard", "rubric_id": "r_outcomes_v1"},
			"questions": [
				{"id": "outcomes_list", "type": "repeat_group", "required": true}
			]
		},
		{
			"id": "s2_review",
			"title": "Review",
			"gate": {"mode": "none"},
			"questions": []
		}
	]
}`

func TestParseValidConfig(t *testing.T) {
	t.Parallel()

	def, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.WizardID != "course_map_v1" {
		t.Fatalf("unexpected wizard id: got=%q", def.WizardID)
	}
	if len(def.Steps) != 3 {
		t.Fatalf("unexpected step count: got=%d want=3", len(def.Steps))
	}
	if got := def.FirstStep().ID; got != "s0_context" {
		t.Fatalf("unexpected first step: got=%q", got)
	}
}

func TestParseRejectsInvalidConfigs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "empty steps",
			mutate:  func(s string) string { return `{"wizard_id":"w","version":1,"steps":[]}` },
			wantErr: "has no steps",
		},
		{
			name: "duplicate step ids",
			mutate: func(s string) string {
				return strings.Replace(s, `"id": "s2_review"`, `"id": "s0_context"`, 1)
			},
			wantErr: "duplicate step id",
		},
		{
			name: "unknown gate mode",
			mutate: func(s string) string {
				return strings.Replace(s, `{"mode": "hard", "rubric_id": "r_outcomes_v1"}`, `{"mode": "maybe"}`, 1)
			},
			wantErr: "gate mode",
		},
		{
			name: "hard gate without rubric",
			mutate: func(s string) string {
				return strings.Replace(s, `{"mode": "hard", "rubric_id": "r_outcomes_v1"}`, `{"mode": "hard"}`, 1)
			},
			wantErr: "rubric",
		},
		{
			name: "duplicate question ids in step",
			mutate: func(s string) string {
				return strings.Replace(s, `{"id": "audience", "type": "long_text", "required": true}`,
					`{"id": "course_title", "type": "long_text", "required": true}`, 1)
			},
			wantErr: "duplicate question id",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.mutate(validConfig)))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("unexpected error: got=%q want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestStepNavigation(t *testing.T) {
	t.Parallel()

	def, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, ok := def.NextStep("s0_context")
	if !ok || next.ID != "s1_outcomes" {
		t.Fatalf("unexpected next step: got=%q ok=%v", next.ID, ok)
	}
	if _, ok := def.NextStep("s2_review"); ok {
		t.Fatalf("expected no step after the last one")
	}
	if !def.IsLast("s2_review") {
		t.Fatalf("expected s2_review to be last")
	}
	if def.IsLast("s0_context") {
		t.Fatalf("s0_context must not be last")
	}
	if _, ok := def.ResolveStep("missing"); ok {
		t.Fatalf("expected unknown step to not resolve")
	}
}

func TestGateModeDefaultsToNone(t *testing.T) {
	t.Parallel()

	s := Step{ID: "s", Gate: Gate{}}
	if got := s.GateMode(); got != GateNone {
		t.Fatalf("unexpected gate mode: got=%q want=%q", got, GateNone)
	}
}
