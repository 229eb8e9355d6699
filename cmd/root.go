package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-shortlister/internal/embedding"
	"github.com/spigell/cv-shortlister/internal/match"
	"github.com/spigell/cv-shortlister/internal/oracle"
)

const (
	app       = "cv-shortlister"
	envPrefix = "CV_SHORTLISTER"
)

type Config struct {
	Mode          string          `mapstructure:"mode" validate:"oneof=similarity oracle"`
	Threshold     float64         `mapstructure:"threshold" validate:"gte=0,lte=1"`
	MinExperience int             `mapstructure:"min-experience" validate:"gte=0,lte=50"`
	Stopwords     bool            `mapstructure:"stopwords"`
	Embedding     EmbeddingConfig `mapstructure:"embedding"`
	Oracle        OracleConfig    `mapstructure:"oracle"`
	Gemini        GeminiConfig    `mapstructure:"gemini"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" validate:"oneof=ollama gemini"`
	Model      string `mapstructure:"model"`
	URL        string `mapstructure:"url" validate:"omitempty,url"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

type OracleConfig struct {
	Backend      string        `mapstructure:"backend" validate:"oneof=process gemini"`
	Command      string        `mapstructure:"command"`
	Args         []string      `mapstructure:"args"`
	Output       string        `mapstructure:"output" validate:"oneof=keyword structured"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"gte=0"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-shortlister decides which CVs match a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-shortlister.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(match.ModeSimilarity))
	v.SetDefault("threshold", 0.75)
	v.SetDefault("min-experience", 0)
	v.SetDefault("stopwords", true)

	v.SetDefault("embedding.provider", embedding.ProviderOllama)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.url", "")
	v.SetDefault("embedding.max-retries", 3)

	v.SetDefault("oracle.backend", oracle.BackendProcess)
	v.SetDefault("oracle.command", oracle.DefaultCommand)
	v.SetDefault("oracle.args", oracle.DefaultArgs)
	v.SetDefault("oracle.output", oracle.OutputStructured)
	v.SetDefault("oracle.timeout", time.Duration(0))
	v.SetDefault("oracle.max-log-length", 200)

	v.SetDefault("gemini.api-key", "")
	v.SetDefault("gemini.api-key-file", "")
	v.SetDefault("gemini.model", "")
	v.SetDefault("gemini.max-retries", 3)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	// A missing .env is fine; it only supplies optional secrets.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))
	config.Embedding.Provider = strings.ToLower(strings.TrimSpace(config.Embedding.Provider))
	config.Oracle.Backend = strings.ToLower(strings.TrimSpace(config.Oracle.Backend))
	config.Oracle.Output = strings.ToLower(strings.TrimSpace(config.Oracle.Output))

	if err := validator.New().Struct(&config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
