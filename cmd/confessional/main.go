package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dataconfessional/confessional/internal/config"
	"github.com/dataconfessional/confessional/internal/engine"
	"github.com/dataconfessional/confessional/internal/gpu"
	"github.com/dataconfessional/confessional/internal/secrets"
	"github.com/dataconfessional/confessional/internal/storage"
)

var version = "dev"

// noColor defaults to on when NO_COLOR is set or stderr is not a terminal.
var noColor = os.Getenv("NO_COLOR") != "" || !stderrIsTerminal()

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var rootCmd = &cobra.Command{
	Use:           "confessional",
	Short:         "Local AI engine for Data Confessional",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "confessional version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", noColor, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(healthCmd, packsCmd, installCmd, chatCmd, reportCmd)
	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(configCmd, credentialCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		if engine.KindOf(err) != 0 {
			fmt.Fprintln(os.Stderr, "  "+engine.Advise(err).UserMessage)
		}
		os.Exit(1)
	}
}

// setupLogging installs a text handler on stderr at the configured level.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// app bundles the collaborators the commands share.
type app struct {
	settings config.Settings
	store    *storage.Store
	secrets  *secrets.Store
	engine   *engine.Service
}

// openApp loads settings, opens the history database and builds the
// engine service. Extra engine options are applied after the defaults.
func openApp(opts ...engine.Option) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	opts = append([]engine.Option{
		engine.WithGPUDetector(gpu.Detect),
		engine.WithRecorder(store),
	}, opts...)

	return &app{
		settings: cfg,
		store:    store,
		secrets:  secrets.Default(cfg.SecretsDir()),
		engine:   engine.New(config.NewFileStore(cfg.EngineConfigPath()), opts...),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}
