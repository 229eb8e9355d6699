package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/cv-shortlister/internal/match"
)

const (
	OutputKeyword    = "keyword"
	OutputStructured = "structured"
)

// marker is the affirmative token searched for in free-text responses.
const marker = "shortlisted"

// Classifier turns a raw oracle response into a verdict tag and rationale.
// Instructions is the answer-format section placed into the prompt.
type Classifier interface {
	Instructions() string
	Classify(response string) (match.Tag, string)
}

// NewClassifier returns the classifier registered under name.
func NewClassifier(name string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case OutputKeyword:
		return KeywordClassifier{}, nil
	case "", OutputStructured:
		return StructuredClassifier{}, nil
	default:
		return nil, match.NewError(match.KindValidation, "", fmt.Sprintf("unknown oracle output format %q", name), nil)
	}
}

// KeywordClassifier looks for the word "shortlisted" in free text. An
// occurrence directly negated ("not shortlisted", "wasn't shortlisted",
// "unshortlisted") does not count.
type KeywordClassifier struct{}

func (KeywordClassifier) Instructions() string {
	return "If not shortlisted, explain why and suggest improvements.\n" +
		"If shortlisted, explain why and highlight matches.\n" +
		"I need accurate shortlisting of candidates."
}

func (KeywordClassifier) Classify(response string) (match.Tag, string) {
	rationale := strings.TrimSpace(response)
	if affirmative(rationale) {
		return match.Shortlisted, rationale
	}
	return match.NotShortlisted, rationale
}

func affirmative(text string) bool {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))

	for from := 0; ; {
		idx := strings.Index(lower[from:], marker)
		if idx < 0 {
			return false
		}
		idx += from
		if !negated(lower[:idx]) {
			return true
		}
		from = idx + len(marker)
	}
}

// negated reports whether the text right before an occurrence of the marker
// negates it.
func negated(before string) bool {
	if strings.HasSuffix(before, "un") {
		return true
	}

	words := strings.FieldsFunc(before, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(words) == 0 {
		return false
	}

	last := words[len(words)-1]
	if last == "be" || last == "been" || last == "being" {
		if len(words) < 2 {
			return false
		}
		last = words[len(words)-2]
	}

	return last == "not" || last == "never" || strings.HasSuffix(last, "n't")
}

// StructuredClassifier asks the oracle for a JSON verdict and decodes it.
// Responses that do not carry a recognisable decision fall back to the
// keyword heuristic.
type StructuredClassifier struct{}

type structuredVerdict struct {
	Decision  string `mapstructure:"decision"`
	Rationale string `mapstructure:"rationale"`
}

func (StructuredClassifier) Instructions() string {
	return "Respond with a single JSON object and nothing else, using this schema:\n" +
		`{"decision": "shortlisted" | "not_shortlisted", "rationale": "why the CV does or does not meet each criterion, with suggested improvements when it does not"}`
}

func (StructuredClassifier) Classify(response string) (match.Tag, string) {
	verdict, err := parseStructured(response)
	if err != nil {
		return KeywordClassifier{}.Classify(response)
	}

	rationale := strings.TrimSpace(verdict.Rationale)
	if rationale == "" {
		rationale = strings.TrimSpace(response)
	}

	switch normalizeDecision(verdict.Decision) {
	case "shortlisted":
		return match.Shortlisted, rationale
	case "not_shortlisted":
		return match.NotShortlisted, rationale
	default:
		return KeywordClassifier{}.Classify(response)
	}
}

func parseStructured(raw string) (*structuredVerdict, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse oracle response: %w", err)
	}

	var out structuredVerdict
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}

	return &out, nil
}

func normalizeDecision(decision string) string {
	d := strings.ToLower(strings.TrimSpace(decision))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(d)
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")

	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}
