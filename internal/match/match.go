package match

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxCVs is the hard cap of candidate documents admitted into one batch.
const MaxCVs = 5

const (
	FormatPDF  = ".pdf"
	FormatDOCX = ".docx"
	FormatDOC  = ".doc"
	FormatTXT  = ".txt"
)

// Mode selects the decision strategy of a batch.
type Mode string

const (
	ModeSimilarity Mode = "similarity"
	ModeOracle     Mode = "oracle"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSimilarity, ModeOracle:
		return m, nil
	default:
		return "", NewError(KindValidation, "", fmt.Sprintf("unknown decision mode %q", s), nil)
	}
}

// Document is an uploaded file: its identity, declared format and raw bytes.
type Document struct {
	Name   string
	Format string
	Data   []byte
}

// NewDocument builds a document, deriving the format from the name suffix.
func NewDocument(name string, data []byte) Document {
	return Document{
		Name:   name,
		Format: strings.ToLower(filepath.Ext(name)),
		Data:   data,
	}
}

// ReadDocument loads a document from disk. The base name is used as identity.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document %q: %w", path, err)
	}
	return NewDocument(filepath.Base(path), data), nil
}

// Suffix returns the declared format, falling back to the name suffix.
func (d Document) Suffix() string {
	if d.Format != "" {
		return strings.ToLower(d.Format)
	}
	return strings.ToLower(filepath.Ext(d.Name))
}

// ExtractedText holds either the plain text of a document or the reason it could not be read.
type ExtractedText struct {
	Text string
	Err  error
}

// Similarity is a cosine score for one (JD, CV) pair. Defined is false when
// one of the vectors had a near-zero norm and the score carries no meaning.
type Similarity struct {
	Score   float64
	Defined bool
}

// Criteria holds the explicit thresholds handed to the oracle. Title, skill
// and soft-skill criteria are implicit in the prompt template.
type Criteria struct {
	MinExperience int
}

type Tag int

const (
	NotShortlisted Tag = iota
	Shortlisted
)

func (t Tag) String() string {
	if t == Shortlisted {
		return "Shortlisted"
	}
	return "Not Shortlisted"
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Verdict is the decision for one candidate.
type Verdict struct {
	Tag       Tag      `json:"verdict"`
	Candidate string   `json:"candidate"`
	Rationale string   `json:"rationale,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

// Result is the outcome for one admitted CV: a verdict or a terminal error, never both.
type Result struct {
	Candidate string
	Verdict   *Verdict
	Err       error
}

func Success(v *Verdict) Result {
	return Result{Candidate: v.Candidate, Verdict: v}
}

func Failure(candidate string, err error) Result {
	return Result{Candidate: candidate, Err: err}
}

func (r Result) OK() bool { return r.Err == nil && r.Verdict != nil }
