// Package scoring compares embedding vectors and turns similarity scores into verdicts.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/spigell/cv-shortlister/internal/embedding"
	"github.com/spigell/cv-shortlister/internal/match"
)

// minNorm is the norm under which a vector is treated as zero.
const minNorm = 1e-12

// UndefinedRationale is attached to verdicts whose similarity could not be computed.
const UndefinedRationale = "similarity undefined: empty or stopword-only text"

// Cosine returns the cosine similarity of a and b clamped to [-1, 1]. The
// second result is false when the similarity is undefined: empty vectors,
// differing lengths or a near-zero norm.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	na, nb = math.Sqrt(na), math.Sqrt(nb)
	if na < minNorm || nb < minNorm {
		return 0, false
	}

	return math.Max(-1, math.Min(1, dot/(na*nb))), true
}

// Decide applies the inclusive threshold rule.
func Decide(score, threshold float64) match.Tag {
	if score >= threshold {
		return match.Shortlisted
	}
	return match.NotShortlisted
}

// ValidateThreshold rejects thresholds outside [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return match.NewError(match.KindValidation, "", fmt.Sprintf("similarity threshold %v is outside [0, 1]", threshold), nil)
	}
	return nil
}

// Verdict builds the similarity-mode verdict for one candidate.
func Verdict(candidate string, sim match.Similarity, threshold float64) *match.Verdict {
	if !sim.Defined {
		return &match.Verdict{
			Tag:       match.NotShortlisted,
			Candidate: candidate,
			Rationale: UndefinedRationale,
		}
	}

	score := sim.Score
	return &match.Verdict{
		Tag:       Decide(score, threshold),
		Candidate: candidate,
		Score:     &score,
	}
}

// Scorer embeds normalized text and compares the resulting vectors.
type Scorer struct {
	embedder embedding.Embedder
}

func NewScorer(e embedding.Embedder) *Scorer {
	return &Scorer{embedder: e}
}

// Vector embeds text once and returns a copy owned by the caller.
func (s *Scorer) Vector(ctx context.Context, doc, text string) ([]float32, error) {
	if s == nil || s.embedder == nil {
		return nil, match.NewError(match.KindEmbedding, doc, "embedding service is not configured", nil)
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, match.NewError(match.KindEmbedding, doc, "error computing embedding", err)
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

// Score compares two vectors without modifying them.
func (s *Scorer) Score(a, b []float32) match.Similarity {
	score, ok := Cosine(a, b)
	return match.Similarity{Score: score, Defined: ok}
}
