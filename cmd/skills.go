package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-shortlister/internal/extract"
	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/normalize"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Ask the oracle to list the skills of a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		runSkills(cmd)
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)

	skillsCmd.Flags().String("jd", "", "job description file (.pdf, .docx, .doc, .txt)")
	skillsCmd.Flags().String("jd-text", "", "job description text, instead of --jd")
}

func runSkills(cmd *cobra.Command) {
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

	jd, err := readJD(cmd)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	extracted := extract.New(logger).Extract(jd)
	if extracted.Err != nil {
		logger.Fatal("extracting the job description", zap.Error(extracted.Err))
	}

	o, err := newOracle(ctx, config, logger)
	if err != nil {
		logger.Fatal("configuring the oracle", zap.Error(err))
	}

	skills, err := o.ExtractSkills(ctx, normalize.CleanStructure(extracted.Text))
	if err != nil {
		logger.Fatal("extracting skills", zap.Error(err))
	}

	fmt.Println(skills)
}
