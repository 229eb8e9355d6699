package oracle

import (
	"errors"
	"testing"

	"github.com/spigell/cv-shortlister/internal/match"
)

func TestKeywordClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		response string
		want     match.Tag
	}{
		{"The candidate is shortlisted.", match.Shortlisted},
		{"SHORTLISTED - strong match on every criterion", match.Shortlisted},
		{"Result: Shortlisted", match.Shortlisted},
		{"NOT SHORTLISTED: experience gap of 4 years", match.NotShortlisted},
		{"The CV should not be shortlisted because it lacks AWS.", match.NotShortlisted},
		{"The candidate has not been shortlisted.", match.NotShortlisted},
		{"This CV wasn't shortlisted.", match.NotShortlisted},
		{"This CV isn’t shortlisted.", match.NotShortlisted},
		{"Would never be shortlisted for this role.", match.NotShortlisted},
		{"Status: unshortlisted", match.NotShortlisted},
		{`{"decision": "not_shortlisted"}`, match.NotShortlisted},
		{"Not shortlisted at first glance, but on review the candidate is shortlisted.", match.Shortlisted},
		{"The candidate lacks the required experience.", match.NotShortlisted},
		{"", match.NotShortlisted},
	}

	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			t.Parallel()

			tag, rationale := KeywordClassifier{}.Classify("  " + tt.response + "\n")
			if tag != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, tag)
			}
			if rationale != tt.response {
				t.Fatalf("expected the trimmed response as rationale, got %q", rationale)
			}
		})
	}
}

func TestStructuredClassifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		response  string
		want      match.Tag
		rationale string
	}{
		{
			name:      "plain json",
			response:  `{"decision": "shortlisted", "rationale": "All four criteria met."}`,
			want:      match.Shortlisted,
			rationale: "All four criteria met.",
		},
		{
			name:      "fenced json with spaced decision",
			response:  "```json\n{\"decision\": \"Not Shortlisted\", \"rationale\": \"Only 1 year of experience.\"}\n```",
			want:      match.NotShortlisted,
			rationale: "Only 1 year of experience.",
		},
		{
			name:      "prose around the object",
			response:  "Here is my answer:\n{\"decision\": \"not-shortlisted\", \"rationale\": \"Missing AWS.\"}\nThanks.",
			want:      match.NotShortlisted,
			rationale: "Missing AWS.",
		},
		{
			name:      "missing rationale keeps the raw response",
			response:  `{"decision": "shortlisted"}`,
			want:      match.Shortlisted,
			rationale: `{"decision": "shortlisted"}`,
		},
		{
			name:      "falls back to keyword on free text",
			response:  "The candidate is shortlisted.",
			want:      match.Shortlisted,
			rationale: "The candidate is shortlisted.",
		},
		{
			name:      "falls back to keyword on unknown decision",
			response:  `{"decision": "maybe", "rationale": "not shortlisted yet"}`,
			want:      match.NotShortlisted,
			rationale: `{"decision": "maybe", "rationale": "not shortlisted yet"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tag, rationale := StructuredClassifier{}.Classify(tt.response)
			if tag != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, tag)
			}
			if rationale != tt.rationale {
				t.Fatalf("expected rationale %q, got %q", tt.rationale, rationale)
			}
		})
	}
}

func TestNewClassifier(t *testing.T) {
	for name, want := range map[string]Classifier{
		"":           StructuredClassifier{},
		"structured": StructuredClassifier{},
		"Keyword":    KeywordClassifier{},
	} {
		got, err := NewClassifier(name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
		if got != want {
			t.Fatalf("%q: expected %T, got %T", name, want, got)
		}
	}

	if _, err := NewClassifier("xml"); !errors.Is(err, match.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
