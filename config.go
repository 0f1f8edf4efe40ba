package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "MEETINGBINGO"

type Config struct {
	analysisTimeout time.Duration
	apiKey          string
	bind            string
	db              string
	gcpProject      string
	gcpRegion       string
	generateTimeout time.Duration
	logLevel        string
	model           string
	port            int
	profile         bool
	rateLimit       int
	sessionTimeout  time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.analysisTimeout <= 0 || c.generateTimeout <= 0 {
		return errors.New("--analysis-timeout and --generate-timeout must be positive")
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid --session-timeout: %s", c.sessionTimeout)
	}
	if c.rateLimit < 1 {
		return fmt.Errorf("invalid --rate-limit (must be at least 1): %d", c.rateLimit)
	}
	if strings.TrimSpace(c.model) == "" {
		return errors.New("--model must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) geminiConfig() GeminiConfig {
	return GeminiConfig{
		APIKey:    c.apiKey,
		ProjectID: c.gcpProject,
		Region:    c.gcpRegion,
		Model:     c.model,
	}
}

// extraEnv lists environment variables honoured in addition to the prefixed
// ones, for compatibility with the usual Google tooling.
var extraEnv = map[string][]string{
	"api-key":     {"GEMINI_API_KEY"},
	"gcp-project": {"GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"gcp-region":  {"GCP_REGION"},
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "meetingbingo",
		Short:         "Meeting bingo with AI-generated cards, served to your browser.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			setupLogging(cfg)
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.DurationVar(&cfg.analysisTimeout, "analysis-timeout", 30*time.Second, "time allowed for the post-game analysis (env: MEETINGBINGO_ANALYSIS_TIMEOUT)")
	fs.StringVar(&cfg.apiKey, "api-key", "", "Gemini API key (env: MEETINGBINGO_API_KEY, GEMINI_API_KEY)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MEETINGBINGO_BIND)")
	fs.StringVar(&cfg.db, "db", "meetingbingo.db", "SQLite file for the leaderboard, empty for in-memory (env: MEETINGBINGO_DB)")
	fs.StringVar(&cfg.gcpProject, "gcp-project", "", "Vertex AI project, used when no API key is set (env: MEETINGBINGO_GCP_PROJECT, GCP_PROJECT_ID)")
	fs.StringVar(&cfg.gcpRegion, "gcp-region", defaultRegion, "Vertex AI region (env: MEETINGBINGO_GCP_REGION, GCP_REGION)")
	fs.DurationVar(&cfg.generateTimeout, "generate-timeout", 45*time.Second, "time allowed for card generation (env: MEETINGBINGO_GENERATE_TIMEOUT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error (env: MEETINGBINGO_LOG_LEVEL)")
	fs.StringVar(&cfg.model, "model", defaultModel, "Gemini model name (env: MEETINGBINGO_MODEL)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MEETINGBINGO_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers under /debug (env: MEETINGBINGO_PROFILE)")
	fs.IntVar(&cfg.rateLimit, "rate-limit", 10, "generation requests per minute per IP (env: MEETINGBINGO_RATE_LIMIT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle players are forgotten, 0 to keep forever (env: MEETINGBINGO_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MEETINGBINGO_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MEETINGBINGO_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "human-readable console logs (env: MEETINGBINGO_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		envs := append([]string{f.Name, envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))}, extraEnv[f.Name]...)
		_ = v.BindEnv(envs...)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("meetingbingo v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
