package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/match"
	"github.com/spigell/cv-shortlister/internal/shortlist"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Mode != "similarity" || config.Threshold != 0.75 || !config.Stopwords {
		t.Fatalf("unexpected decision defaults: %+v", config)
	}
	if config.Embedding.Provider != "ollama" || config.Embedding.MaxRetries != 3 {
		t.Fatalf("unexpected embedding defaults: %+v", config.Embedding)
	}
	if config.Oracle.Backend != "process" || config.Oracle.Command != "ollama" || config.Oracle.Output != "structured" {
		t.Fatalf("unexpected oracle defaults: %+v", config.Oracle)
	}
	if strings.Join(config.Oracle.Args, " ") != "run llama3.2:latest" || config.Oracle.Timeout != 0 {
		t.Fatalf("unexpected oracle invocation defaults: %+v", config.Oracle)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CV_SHORTLISTER_MODE", "Oracle")
	t.Setenv("CV_SHORTLISTER_MIN_EXPERIENCE", "5")
	t.Setenv("CV_SHORTLISTER_ORACLE_TIMEOUT", "90s")
	t.Setenv("CV_SHORTLISTER_ORACLE_OUTPUT", "keyword")

	config, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Mode != "oracle" || config.MinExperience != 5 {
		t.Fatalf("env overrides not applied: %+v", config)
	}
	if config.Oracle.Timeout != 90*time.Second || config.Oracle.Output != "keyword" {
		t.Fatalf("oracle env overrides not applied: %+v", config.Oracle)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		key   string
		value any
		field string
	}{
		{key: "threshold", value: 1.2, field: "Config.Threshold"},
		{key: "min-experience", value: -1, field: "Config.MinExperience"},
		{key: "min-experience", value: 51, field: "Config.MinExperience"},
		{key: "mode", value: "ranking", field: "Config.Mode"},
		{key: "embedding.provider", value: "openai", field: "Config.Embedding.Provider"},
		{key: "embedding.url", value: "not a url", field: "Config.Embedding.URL"},
		{key: "oracle.backend", value: "python", field: "Config.Oracle.Backend"},
		{key: "oracle.output", value: "xml", field: "Config.Oracle.Output"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := newTestViper(t)
			v.Set(tt.key, tt.value)

			_, err := loadConfig(v)
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("expected validation error for %s, got %v", tt.field, err)
			}
		})
	}
}

func newJDCommand(t *testing.T, path, text string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{}
	cmd.Flags().String("jd", "", "")
	cmd.Flags().String("jd-text", "", "")
	if path != "" {
		_ = cmd.Flags().Set("jd", path)
	}
	if text != "" {
		_ = cmd.Flags().Set("jd-text", text)
	}
	return cmd
}

func TestReadJD(t *testing.T) {
	path := t.TempDir() + "/jd.TXT"
	if err := os.WriteFile(path, []byte("Senior Python Engineer"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := readJD(newJDCommand(t, path, ""))
	if err != nil || doc.Name != "jd.TXT" || doc.Suffix() != ".txt" {
		t.Fatalf("unexpected file jd: %+v, %v", doc, err)
	}

	doc, err = readJD(newJDCommand(t, "", "Senior Python Engineer"))
	if err != nil || doc.Name != inlineJDName || string(doc.Data) != "Senior Python Engineer" {
		t.Fatalf("unexpected inline jd: %+v, %v", doc, err)
	}

	if _, err := readJD(newJDCommand(t, path, "text")); err == nil {
		t.Fatal("expected error when both sources are set")
	}
	if _, err := readJD(newJDCommand(t, "", "  ")); err == nil {
		t.Fatal("expected error when no jd is given")
	}
}

func sampleReport() *shortlist.Report {
	score := 0.8123
	return &shortlist.Report{
		ID:       "batch-1",
		Mode:     match.ModeSimilarity,
		Warnings: []string{"only the first 5 of 6 CVs will be processed"},
		Results: []match.Result{
			match.Success(&match.Verdict{Tag: match.Shortlisted, Candidate: "alice.pdf", Score: &score}),
			match.Failure("bob.pdf", match.NewError(match.KindExtraction, "bob.pdf", "error extracting text from PDF", errors.New("malformed PDF"))),
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected warning, header and two rows, got %q", buf.String())
	}
	if lines[0] != "warning: only the first 5 of 6 CVs will be processed" {
		t.Fatalf("unexpected warning line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "alice.pdf") || !strings.Contains(lines[2], "0.8123") || !strings.HasSuffix(lines[2], "Shortlisted") {
		t.Fatalf("unexpected verdict row: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "bob.pdf") || !strings.HasSuffix(lines[3], "ExtractionError") {
		t.Fatalf("unexpected error row: %q", lines[3])
	}
}

func TestHandleAction(t *testing.T) {
	report := sampleReport()

	if err := handleAction(PromptExit, zap.NewNop(), report); !errors.Is(err, errExit) {
		t.Fatalf("expected exit, got %v", err)
	}
	if err := handleAction(PromptReportByVerdict, zap.NewNop(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handleAction("unknown", zap.NewNop(), report); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestNewOracleWithoutGeminiKeyIsUnavailable(t *testing.T) {
	t.Setenv(geminiAPIKeyEnv, "")

	config, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatal(err)
	}
	config.Oracle.Backend = "gemini"

	o, err := newOracle(context.Background(), config, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = o.Evaluate(context.Background(), "cv.txt", "jd", "cv", match.Criteria{})
	if !errors.Is(err, match.ErrOracleUnavailable) {
		t.Fatalf("expected oracle unavailable, got %v", err)
	}
}

func TestNewOracleMissingExecutable(t *testing.T) {
	config, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatal(err)
	}
	config.Oracle.Command = "cv-shortlister-missing-oracle"

	o, err := newOracle(context.Background(), config, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := o.ExtractSkills(context.Background(), "Python, AWS"); !errors.Is(err, match.ErrOracleUnavailable) {
		t.Fatalf("expected oracle unavailable, got %v", err)
	}
}

func TestNewEmbedderWithoutGeminiKey(t *testing.T) {
	t.Setenv(geminiAPIKeyEnv, "")

	config, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatal(err)
	}
	config.Embedding.Provider = "gemini"

	if _, err := newEmbedder(context.Background(), config, zap.NewNop()).Embed(context.Background(), "text"); err == nil || !strings.Contains(err.Error(), "gemini api key is not configured") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
