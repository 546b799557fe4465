package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maria2021831011/NoteWhisper/internal/config"
)

var (
	verbose    bool
	quiet      bool
	configPath string
	logPath    string
	outputDir  string
	cacheKind  string

	cfg     *config.Config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "notewhisper",
	Short: "Turn recorded lectures into transcripts, notes and quizzes",
	Long: `NoteWhisper transcribes Bangla, English and code-mixed lecture audio and
derives study material from it: ranked keypoints, a bounded summary and a quiz.

Exit codes: 0 completed, 1 failed, 3 partially completed.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.OutputDir = outputDir
		}
		if cmd.Flags().Changed("cache") {
			cfg.Cache.Backend = cacheKind
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logPath
		}
		return setupLogging(cfg.LogFile)
	},
}

// setupLogging installs the default logger on stderr, teeing to path when set.
func setupLogging(path string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		w = io.MultiWriter(os.Stderr, f)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exit.err)
		}
		return exit.code
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/notewhisper/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", config.Default().OutputDir, "directory for generated artifacts")
	rootCmd.PersistentFlags().StringVar(&cacheKind, "cache", config.Default().Cache.Backend, "stage cache: sqlite, redis, memory, none")
}
