// Package cmd implements the sbommeld CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbommeld/sbommeld"
	"github.com/sbommeld/sbommeld/internal/config"
	"github.com/sbommeld/sbommeld/pkg/classify"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/merge"
	"github.com/sbommeld/sbommeld/pkg/normalize"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sbommeld",
	Short: "SBOM reconciliation and merge",
	Long: `Sbommeld reconciles SBOM documents produced by different scanners for
the same artifact. It normalizes SPDX and CycloneDX inputs, classifies
package identity across sources (exact / fuzzy / unique), merges the
result into one canonical CycloneDX document, and scores how much each
source agrees with the rest.

Source documents are passed as name=path arguments, e.g.:

  sbommeld merge trivy=trivy.cdx.json syft=syft.spdx.json`,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.sbommeld.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sbommeld")
	}

	// .env files load before viper env binding; .env.local overrides .env.
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(envFile)
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// configureLogging sets the global log level from flags and environment.
func configureLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	zerolog.SetGlobalLevel(level)
	logging.SetDefault(logging.Default().Level(level))
}

// newClient builds a Client from the effective configuration.
func newClient() (*sbommeld.Client, config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, config.Config{}, err
	}
	client, err := sbommeld.New(
		sbommeld.WithClassifier(
			classify.WithNameThreshold(cfg.Matching.NameThreshold),
			classify.WithVersionThreshold(cfg.Matching.VersionThreshold),
			classify.WithOverallThreshold(cfg.Matching.OverallThreshold),
			classify.WithCandidateLimit(cfg.Matching.CandidateLimit),
			classify.WithCaseSensitive(cfg.Matching.CaseSensitive),
		),
		sbommeld.WithMerger(
			merge.WithNoisePatterns(cfg.Policy.NoisePatterns),
			merge.WithExcludedNamespaces(cfg.Policy.ExcludedNamespaces),
			merge.WithTool(toolIdentity()),
		),
	)
	if err != nil {
		return nil, config.Config{}, err
	}
	return client, cfg, nil
}

// source is one name=path CLI argument.
type source struct {
	name string
	path string
}

// parseSources validates name=path arguments.
func parseSources(args []string) ([]source, error) {
	sources := make([]source, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid source argument %q: expected name=path", arg)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		seen[name] = true
		sources = append(sources, source{name: name, path: path})
	}
	return sources, nil
}

// ingestAll reads and ingests every source, auto-detecting formats.
// Per-source failures are reported and skipped; the unit proceeds with
// whatever sources succeeded. Returns the number ingested.
func ingestAll(ctx context.Context, client *sbommeld.Client, unit string, sources []source) (int, error) {
	ingested := 0
	for _, s := range sources {
		data, err := os.ReadFile(s.path)
		if err != nil {
			logging.Err(err).Str("source", s.name).Msg("Failed to read source document")
			continue
		}
		if _, _, err := client.Ingest(ctx, unit, s.name, data, normalize.Format("")); err != nil {
			logging.Err(err).Str("source", s.name).Msg("Failed to ingest source document")
			continue
		}
		ingested++
	}
	if ingested == 0 {
		return 0, fmt.Errorf("no source documents could be ingested")
	}
	return ingested, nil
}
