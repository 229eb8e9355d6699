// Package oracle delegates shortlisting decisions to an external reasoning
// process and classifies its answers.
package oracle

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/match"
	"github.com/spigell/cv-shortlister/internal/utils"
)

const (
	defaultMaxLogLength = 200

	unknownProcessError = "Unknown oracle process error"
	emptyResponseError  = "oracle returned an empty response"
)

type Oracle struct {
	backend    Backend
	classifier Classifier
	logger     *zap.Logger
	maxLogLen  int
}

func New(backend Backend, classifier Classifier, log *zap.Logger, maxLogLength int) *Oracle {
	if classifier == nil {
		classifier = StructuredClassifier{}
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	o := &Oracle{
		backend:    backend,
		classifier: classifier,
		maxLogLen:  maxLogLength,
	}
	if backend != nil {
		o.logger = logger.WithCommonFields(log, backend.Name(), backend.Model())
	} else {
		o.logger = logger.WithFields(log)
	}

	return o
}

// Evaluate asks the oracle whether the candidate CV satisfies the JD under
// the given criteria. Failures are returned as *match.Error of kind
// OracleUnavailable or OracleError.
func (o *Oracle) Evaluate(ctx context.Context, candidate, jd, cv string, criteria match.Criteria) (*match.Verdict, error) {
	prompt := BuildPrompt(jd, cv, criteria, o.classifier.Instructions())

	out, err := o.call(ctx, candidate, prompt)
	if err != nil {
		return nil, err
	}

	tag, rationale := o.classifier.Classify(out)

	o.logger.Debug("oracle verdict classified",
		zap.String(logger.FieldDocument, candidate),
		zap.Stringer("verdict", tag),
	)

	return &match.Verdict{
		Tag:       tag,
		Candidate: candidate,
		Rationale: rationale,
	}, nil
}

// ExtractSkills asks the oracle to list the technical, tool and soft skills of a JD.
func (o *Oracle) ExtractSkills(ctx context.Context, jd string) (string, error) {
	if strings.TrimSpace(jd) == "" {
		return "", match.NewError(match.KindValidation, "", "job description is empty", nil)
	}
	return o.call(ctx, "", BuildSkillsPrompt(jd))
}

func (o *Oracle) call(ctx context.Context, doc, prompt string) (string, error) {
	if o.backend == nil {
		return "", match.NewError(match.KindOracleUnavailable, doc, "oracle is not available", errors.New("no oracle backend configured"))
	}

	if err := o.backend.Available(); err != nil {
		o.logger.Warn("oracle is not available", zap.String(logger.FieldDocument, doc), zap.Error(err))
		return "", match.NewError(match.KindOracleUnavailable, doc, "oracle is not available", err)
	}

	o.logger.Debug("oracle request",
		zap.String(logger.FieldDocument, doc),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, o.maxLogLen)),
	)

	resp, err := o.backend.Invoke(ctx, prompt)
	if err != nil {
		return "", match.NewError(match.KindOracle, doc, "oracle error", err)
	}

	out := strings.TrimSpace(resp.Stdout)

	o.logger.Debug("oracle response",
		zap.String(logger.FieldDocument, doc),
		zap.Int("exit_code", resp.ExitCode),
		zap.Int("response_length", utf8.RuneCountInString(out)),
		zap.String("response_preview", utils.TruncateForLog(out, o.maxLogLen)),
	)

	if resp.ExitCode != 0 {
		return "", match.NewError(match.KindOracle, doc, "oracle error", errors.New(diagnostic(resp.Stderr, unknownProcessError)))
	}
	if out == "" {
		return "", match.NewError(match.KindOracle, doc, "oracle error", errors.New(diagnostic(resp.Stderr, emptyResponseError)))
	}

	return out, nil
}

func diagnostic(stderr, fallback string) string {
	if msg := utils.SingleLine(stderr); msg != "" {
		return msg
	}
	return fallback
}
