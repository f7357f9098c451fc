package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liamcoop/premium/internal/config"
	"github.com/liamcoop/premium/internal/logger"
	"github.com/liamcoop/premium/premium"
)

// Exit codes
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// app carries the state shared by every sub-command of one invocation
type app struct {
	v          *viper.Viper
	configFile string
	output     string
}

// NewRootCmd builds the premium command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	a.v.SetDefault("log_level", "warn")

	root := &cobra.Command{
		Use:   "premium",
		Short: "Health insurance premium prediction",
		Long: `premium estimates annual health insurance premiums from an applicant profile
using the segmented model artifacts of a release.

Releases are read from an artifact directory (manifest.yaml plus one JSON
bundle per segment) or from PostgreSQL after they have been published.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (YAML)")
	flags.StringVarP(&a.output, "output", "o", OutputText, "output format (text, json)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("artifact-source", config.SourceFile, "artifact source (file, postgres)")
	flags.String("artifact-dir", "artifacts", "artifact directory")
	flags.String("database-url", "", "PostgreSQL connection URL")

	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("artifact_source", flags.Lookup("artifact-source"))
	_ = a.v.BindPFlag("artifact_dir", flags.Lookup("artifact-dir"))
	_ = a.v.BindPFlag("database_url", flags.Lookup("database-url"))

	root.AddCommand(
		newPredictCmd(a),
		newValidateCmd(a),
		newPublishCmd(a),
		newReleasesCmd(a),
	)
	return root
}

// setup reads .env and the optional config file, then routes logs to stderr
func (a *app) setup(stderr io.Writer) error {
	_ = godotenv.Load()

	if a.output != OutputText && a.output != OutputJSON {
		return fmt.Errorf("unknown output format %q", a.output)
	}
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	_, err := logger.InitTo(stderr, logger.Config{
		Level:  a.v.GetString("log_level"),
		Format: "text",
	})
	if err != nil {
		logger.Warn("logger setup incomplete", "error", err)
	}
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.FromViper(a.v)
}

// openStore returns the configured artifact store and a function releasing it
func (a *app) openStore(ctx context.Context) (premium.ArtifactStore, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ArtifactSource != config.SourcePostgres {
		return premium.NewFileArtifactStore(cfg.ArtifactDir), func() {}, nil
	}
	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return premium.NewPostgresArtifactStore(db), func() { db.Close() }, nil
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, errors.New("database URL is required; use --database-url or " + config.EnvPrefix + "_DATABASE_URL")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// ExitCode maps a command error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, premium.ErrInvalidInput):
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}

// Execute runs the root command against os.Args and returns the exit status
func Execute() int {
	root := NewRootCmd()
	err := root.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}
