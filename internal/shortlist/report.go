package shortlist

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spigell/cv-shortlister/internal/match"
)

// LabelError is the verdict label shown for candidates that produced no verdict.
const LabelError = "Error"

// Report is the outcome of one batch. Results follow the input order of the
// admitted CVs.
type Report struct {
	ID        string
	Mode      match.Mode
	Threshold float64
	Criteria  match.Criteria
	Submitted int
	Truncated bool
	Warnings  []string
	Results   []match.Result
}

// Row is the display-ready view of one result. Detail is the score in
// similarity mode, the rationale in oracle mode, or the error message.
type Row struct {
	Candidate string `json:"candidate"`
	Detail    string `json:"detail"`
	Label     string `json:"label"`
	Kind      string `json:"error_kind,omitempty"`
}

func (r *Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, row(res))
	}
	return rows
}

func row(res match.Result) Row {
	if res.Err != nil || res.Verdict == nil {
		out := Row{Candidate: res.Candidate, Label: LabelError}
		if res.Err != nil {
			out.Detail = res.Err.Error()
			out.Kind = string(match.KindOf(res.Err))
		}
		return out
	}

	v := res.Verdict
	detail := v.Rationale
	if v.Score != nil {
		detail = strconv.FormatFloat(*v.Score, 'f', 4, 64)
	}

	return Row{Candidate: res.Candidate, Detail: detail, Label: v.Tag.String()}
}

// ByVerdict groups candidate names by verdict label.
func (r *Report) ByVerdict() map[string][]string {
	groups := make(map[string][]string)
	for _, res := range r.Results {
		label := row(res).Label
		groups[label] = append(groups[label], res.Candidate)
	}
	return groups
}

// Count returns the number of candidates with the given verdict.
func (r *Report) Count(tag match.Tag) int {
	n := 0
	for _, res := range r.Results {
		if res.OK() && res.Verdict.Tag == tag {
			n++
		}
	}
	return n
}

// Failed returns the number of candidates that ended with an error.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

type reportJSON struct {
	ID            string           `json:"batch_id"`
	Mode          match.Mode       `json:"mode"`
	Threshold     *float64         `json:"threshold,omitempty"`
	MinExperience *int             `json:"min_experience,omitempty"`
	Submitted     int              `json:"submitted"`
	Processed     int              `json:"processed"`
	Truncated     bool             `json:"truncated"`
	Warnings      []string         `json:"warnings,omitempty"`
	Rows          []Row            `json:"results"`
	Verdicts      []*match.Verdict `json:"verdicts"`
}

func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		ID:        r.ID,
		Mode:      r.Mode,
		Submitted: r.Submitted,
		Processed: len(r.Results),
		Truncated: r.Truncated,
		Warnings:  r.Warnings,
		Rows:      r.Rows(),
		Verdicts:  make([]*match.Verdict, 0, len(r.Results)),
	}

	switch r.Mode {
	case match.ModeSimilarity:
		th := r.Threshold
		out.Threshold = &th
	case match.ModeOracle:
		exp := r.Criteria.MinExperience
		out.MinExperience = &exp
	}

	for _, res := range r.Results {
		if res.OK() {
			out.Verdicts = append(out.Verdicts, res.Verdict)
		}
	}

	return json.Marshal(out)
}

// DumpToTmpFile writes the report as indented JSON to a new temporary file
// and returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "shortlist_*.json")
	if err != nil {
		return "", err
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", file.Name(), err)
	}
	return file.Name(), nil
}
