// Package cli implements the carepath terminal client: a guided walkthrough
// of the triage questionnaire and a view of past classifications.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vcscsvcscs/carepath/internal/classifier"
	"go.uber.org/zap"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// newClient builds the classification client; tests replace it
var newClient = func(baseURL string, timeout time.Duration, logger *zap.Logger) (classifier.Client, error) {
	return classifier.NewHTTPClient(baseURL, timeout, logger)
}

// settings resolves flags and environment for subcommands
type settings struct {
	v *viper.Viper
}

func (s settings) client() (classifier.Client, error) {
	baseURL := s.v.GetString("classifier_url")
	if baseURL == "" {
		return nil, fmt.Errorf("classifier URL is required (--classifier-url or CLASSIFIER_URL)")
	}
	return newClient(baseURL, s.v.GetDuration("timeout"), s.logger())
}

func (s settings) logger() *zap.Logger {
	if !s.v.GetBool("verbose") {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewRootCommand creates and returns the root cobra command for carepath-cli
func NewRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "carepath-cli",
		Short: "Symptom triage questionnaire in the terminal",
		Long: `carepath-cli walks through the triage questionnaire step by step and
sends the answers to the classification service.

It is not a diagnosis. In an emergency call your local emergency number.`,
		Version:      Version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("classifier-url", "", "base URL of the classification service (env CLASSIFIER_URL)")
	flags.Duration("timeout", 15*time.Second, "classification request timeout")
	flags.Bool("verbose", false, "log requests to stderr")

	v.BindPFlag("classifier_url", flags.Lookup("classifier-url"))
	v.BindPFlag("timeout", flags.Lookup("timeout"))
	v.BindPFlag("verbose", flags.Lookup("verbose"))
	v.BindEnv("classifier_url", "CLASSIFIER_URL")
	v.BindEnv("timeout", "CLASSIFIER_TIMEOUT")

	s := settings{v: v}
	cmd.AddCommand(NewAskCommand(s))
	cmd.AddCommand(NewHistoryCommand(s))

	return cmd
}
