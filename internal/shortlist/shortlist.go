// Package shortlist runs a batch of CVs against one JD and collects a verdict
// or an error for every admitted CV.
package shortlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/match"
	"github.com/spigell/cv-shortlister/internal/normalize"
	"github.com/spigell/cv-shortlister/internal/scoring"
	"github.com/spigell/cv-shortlister/internal/utils"
)

// Extractor turns a document into plain text.
type Extractor interface {
	Extract(doc match.Document) match.ExtractedText
}

// Evaluator asks the oracle for a verdict on one CV.
type Evaluator interface {
	Evaluate(ctx context.Context, candidate, jd, cv string, criteria match.Criteria) (*match.Verdict, error)
}

// Deps aggregates the components a batch run needs. Scorer is required in
// similarity mode and Oracle in oracle mode.
type Deps struct {
	Extractor  Extractor
	Normalizer normalize.Normalizer
	Scorer     *scoring.Scorer
	Oracle     Evaluator
	Logger     *zap.Logger
}

// Batch is one shortlisting request.
type Batch struct {
	JD        match.Document
	CVs       []match.Document
	Mode      match.Mode
	Threshold float64
	Criteria  match.Criteria
}

type Service struct {
	deps  Deps
	newID func() string
}

func NewService(deps Deps) *Service {
	deps.Logger = logger.WithFields(deps.Logger)
	return &Service{
		deps:  deps,
		newID: func() string { return uuid.NewString() },
	}
}

// jdText is the JD in both of the shapes the strategies consume.
type jdText struct {
	cleaned    string
	normalized string
	vector     []float32
}

// Run validates the batch, admits at most match.MaxCVs CVs and processes them
// in order. Only batch validation failures and cancellation are returned as
// errors; per-CV failures are recorded on the report. On cancellation the
// report holds the results gathered so far.
func (s *Service) Run(ctx context.Context, batch Batch) (*Report, error) {
	if err := s.validate(batch); err != nil {
		return nil, err
	}

	report := &Report{
		ID:        s.newID(),
		Mode:      batch.Mode,
		Threshold: batch.Threshold,
		Criteria:  batch.Criteria,
		Submitted: len(batch.CVs),
	}

	log := s.deps.Logger.With(logger.BatchFields(report.ID, string(batch.Mode))...)

	cvs := batch.CVs
	if len(cvs) > match.MaxCVs {
		warning := fmt.Sprintf("only the first %d of %d CVs will be processed", match.MaxCVs, len(cvs))
		log.Warn("truncating batch",
			zap.Int("submitted", len(cvs)),
			zap.Int("admitted", match.MaxCVs),
		)
		report.Truncated = true
		report.Warnings = append(report.Warnings, warning)
		cvs = cvs[:match.MaxCVs]
	}

	log.Info("starting the batch", zap.Int("cvs", len(cvs)), zap.String("jd", batch.JD.Name))

	jd, err := s.prepareJD(ctx, batch)
	if err != nil {
		return nil, err
	}

	for _, cv := range cvs {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", zap.Int("processed", len(report.Results)), zap.Error(err))
			return report, err
		}

		result := s.process(ctx, batch, jd, cv)
		report.Results = append(report.Results, result)

		docLog := log.With(logger.DocumentFields(cv.Name, cv.Suffix())...)
		if result.Err != nil {
			docLog.Warn("candidate failed", zap.String("kind", string(match.KindOf(result.Err))), zap.Error(result.Err))
			continue
		}
		docLog.Info("candidate evaluated", zap.Stringer("verdict", result.Verdict.Tag))
	}

	log.Info("batch finished",
		zap.Int("shortlisted", report.Count(match.Shortlisted)),
		zap.Int("not_shortlisted", report.Count(match.NotShortlisted)),
		zap.Int("failed", report.Failed()),
	)

	return report, nil
}

func (s *Service) validate(batch Batch) error {
	if batch.JD.Name == "" && len(batch.JD.Data) == 0 {
		return validationError("a job description is required")
	}
	if len(batch.JD.Data) == 0 {
		return validationError(fmt.Sprintf("job description %q is empty", batch.JD.Name))
	}
	if len(batch.CVs) == 0 {
		return validationError("at least one CV is required")
	}

	switch batch.Mode {
	case match.ModeSimilarity:
		if err := scoring.ValidateThreshold(batch.Threshold); err != nil {
			return err
		}
		if s.deps.Scorer == nil {
			return validationError("similarity mode requires an embedding service")
		}
	case match.ModeOracle:
		if batch.Criteria.MinExperience < 0 {
			return validationError(fmt.Sprintf("minimum experience %d must not be negative", batch.Criteria.MinExperience))
		}
		if s.deps.Oracle == nil {
			return validationError("oracle mode requires an oracle")
		}
	default:
		return validationError(fmt.Sprintf("unknown decision mode %q", batch.Mode))
	}

	if s.deps.Extractor == nil {
		return validationError("a text extractor is required")
	}

	return nil
}

// prepareJD extracts the JD once. In similarity mode it is also embedded
// once and the vector reused for every CV. A JD left empty by normalization
// is not embedded; its vector stays nil and every similarity is undefined.
func (s *Service) prepareJD(ctx context.Context, batch Batch) (*jdText, error) {
	extracted := s.deps.Extractor.Extract(batch.JD)
	if extracted.Err != nil {
		return nil, match.NewError(match.KindValidation, batch.JD.Name, "job description could not be read", extracted.Err)
	}

	jd := &jdText{cleaned: normalize.CleanStructure(extracted.Text)}
	if jd.cleaned == "" {
		return nil, match.NewError(match.KindValidation, batch.JD.Name, "job description has no readable text", nil)
	}

	if batch.Mode != match.ModeSimilarity {
		return jd, nil
	}

	jd.normalized = s.deps.Normalizer.Normalize(extracted.Text)
	if jd.normalized == "" {
		s.deps.Logger.Warn("job description is empty after normalization, similarity is undefined for every CV",
			zap.String(logger.FieldDocument, batch.JD.Name),
		)
		return jd, nil
	}

	vec, err := s.deps.Scorer.Vector(ctx, batch.JD.Name, jd.normalized)
	if err != nil {
		return nil, err
	}
	jd.vector = vec

	return jd, nil
}

func (s *Service) process(ctx context.Context, batch Batch, jd *jdText, cv match.Document) match.Result {
	extracted := s.deps.Extractor.Extract(cv)
	if extracted.Err != nil {
		return match.Failure(cv.Name, extracted.Err)
	}

	if strings.TrimSpace(extracted.Text) == "" {
		return match.Failure(cv.Name, match.NewError(match.KindExtraction, cv.Name, "empty or unreadable content", nil))
	}

	switch batch.Mode {
	case match.ModeSimilarity:
		return s.similarity(ctx, batch, jd, cv.Name, extracted.Text)
	default:
		return s.oracle(ctx, batch, jd, cv.Name, extracted.Text)
	}
}

func (s *Service) similarity(ctx context.Context, batch Batch, jd *jdText, candidate, text string) match.Result {
	normalized := s.deps.Normalizer.Normalize(text)

	var sim match.Similarity
	if normalized != "" && len(jd.vector) > 0 {
		vec, err := s.deps.Scorer.Vector(ctx, candidate, normalized)
		if err != nil {
			return match.Failure(candidate, err)
		}
		sim = s.deps.Scorer.Score(jd.vector, vec)
	}

	if !sim.Defined {
		s.deps.Logger.Debug("similarity undefined",
			zap.String(logger.FieldDocument, candidate),
			zap.String("normalized_preview", utils.TruncateForLog(normalized, 80)),
		)
	}

	return match.Success(scoring.Verdict(candidate, sim, batch.Threshold))
}

func (s *Service) oracle(ctx context.Context, batch Batch, jd *jdText, candidate, text string) match.Result {
	verdict, err := s.deps.Oracle.Evaluate(ctx, candidate, jd.cleaned, normalize.CleanStructure(text), batch.Criteria)
	if err != nil {
		return match.Failure(candidate, err)
	}
	return match.Success(verdict)
}

func validationError(msg string) error {
	return match.NewError(match.KindValidation, "", msg, nil)
}
