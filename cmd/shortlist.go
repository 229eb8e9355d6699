package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/extract"
	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/match"
	"github.com/spigell/cv-shortlister/internal/normalize"
	"github.com/spigell/cv-shortlister/internal/scoring"
	"github.com/spigell/cv-shortlister/internal/shortlist"
	"github.com/spigell/cv-shortlister/internal/utils"
)

const (
	PromptYes              = "Yes"
	PromptNo               = "No"
	PromptExit             = "Exit"
	PromptReportByVerdict  = "Report by verdict"
	PromptReportToFile     = "Dump report to file"
	inlineJDName           = "job-description.txt"
	maxRationaleColumnSize = 120
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptReportByVerdict, PromptReportToFile, PromptExit},
}

var shortlistCmd = &cobra.Command{
	Use:   "shortlist [CV files...]",
	Short: "Decide for every CV whether it matches the job description",
	Run: func(cmd *cobra.Command, args []string) {
		runShortlist(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(shortlistCmd)

	shortlistCmd.Flags().String("jd", "", "job description file (.pdf, .docx, .doc, .txt)")
	shortlistCmd.Flags().String("jd-text", "", "job description text, instead of --jd")
	shortlistCmd.Flags().StringSlice("cv", nil, "CV file; can be repeated. Only the first 5 CVs are processed")
	shortlistCmd.Flags().StringP("mode", "m", "", "decision mode: similarity or oracle")
	shortlistCmd.Flags().Float64P("threshold", "t", 0, "similarity threshold in [0, 1]")
	shortlistCmd.Flags().Int("min-experience", 0, "minimum years of experience checked by the oracle")
	shortlistCmd.Flags().Bool("stopwords", true, "remove English stopwords before embedding")
	shortlistCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation and skip the action menu")
	shortlistCmd.Flags().Bool("dump", false, "dump the report to a temporary JSON file")

	viper.BindPFlag("mode", shortlistCmd.Flags().Lookup("mode"))
	viper.BindPFlag("threshold", shortlistCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("min-experience", shortlistCmd.Flags().Lookup("min-experience"))
	viper.BindPFlag("stopwords", shortlistCmd.Flags().Lookup("stopwords"))
}

func runShortlist(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-shortlister", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	mode, err := match.ParseMode(config.Mode)
	if err != nil {
		logger.Fatal("parsing decision mode", zap.Error(err))
	}

	jd, err := readJD(cmd)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	paths, _ := cmd.Flags().GetStringSlice("cv")
	paths = append(paths, args...)

	cvs := make([]match.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := match.ReadDocument(path)
		if err != nil {
			logger.Fatal("reading a CV", zap.Error(err))
		}
		cvs = append(cvs, doc)
	}

	autoApprove, _ := cmd.Flags().GetBool("yes")
	if len(cvs) > match.MaxCVs && !autoApprove {
		if !confirmTruncation(len(cvs)) {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	deps := shortlist.Deps{
		Extractor:  extract.New(logger),
		Normalizer: normalize.New(config.Stopwords),
		Logger:     logger,
	}

	switch mode {
	case match.ModeSimilarity:
		deps.Scorer = scoring.NewScorer(newEmbedder(ctx, config, logger))
	case match.ModeOracle:
		o, err := newOracle(ctx, config, logger)
		if err != nil {
			logger.Fatal("configuring the oracle", zap.Error(err))
		}
		deps.Oracle = o
	}

	report, err := shortlist.NewService(deps).Run(ctx, shortlist.Batch{
		JD:        jd,
		CVs:       cvs,
		Mode:      mode,
		Threshold: config.Threshold,
		Criteria:  match.Criteria{MinExperience: config.MinExperience},
	})
	switch {
	case err == nil:
	case report != nil && errors.Is(err, context.Canceled):
		logger.Warn("interrupted, showing partial results", zap.Int("processed", len(report.Results)))
	default:
		logger.Fatal("shortlisting failed", zap.Error(err))
	}

	printReport(os.Stdout, report)

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		if err := handleAction(PromptReportToFile, logger, report); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	if autoApprove {
		return
	}

	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, report); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func readJD(cmd *cobra.Command) (match.Document, error) {
	path, _ := cmd.Flags().GetString("jd")
	text, _ := cmd.Flags().GetString("jd-text")

	switch {
	case path != "" && text != "":
		return match.Document{}, errors.New("use either --jd or --jd-text, not both")
	case path != "":
		return match.ReadDocument(path)
	case strings.TrimSpace(text) != "":
		return match.NewDocument(inlineJDName, []byte(text)), nil
	default:
		return match.Document{}, errors.New("a job description is required (--jd or --jd-text)")
	}
}

func confirmTruncation(submitted int) bool {
	confirm := promptui.Select{
		Label: fmt.Sprintf("Only the first %d of %d CVs will be processed. Proceed?", match.MaxCVs, submitted),
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := confirm.Run()
	return err == nil && answer == PromptYes
}

func handleAction(action string, logger *zap.Logger, report *shortlist.Report) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByVerdict:
		pretty, _ := json.MarshalIndent(report.ByVerdict(), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", len(report.Results)))
		return nil
	case PromptReportToFile:
		filename, err := report.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// printReport writes one line per candidate: name, score or rationale, verdict.
func printReport(w io.Writer, report *shortlist.Report) {
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANDIDATE\tSCORE / RATIONALE\tVERDICT")
	for _, row := range report.Rows() {
		detail := utils.TruncateForLog(utils.SingleLine(row.Detail), maxRationaleColumnSize)
		label := row.Label
		if row.Kind != "" {
			label = row.Kind
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Candidate, detail, label)
	}
	_ = tw.Flush()
}

// redacted returns a copy of the config that is safe to log.
func redacted(config *Config) Config {
	out := *config
	if out.Gemini.APIKey != "" {
		out.Gemini.APIKey = "***"
	}
	return out
}
