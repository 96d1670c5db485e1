package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/app"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/preprocess"
)

const appName = "dococr"

var Version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	output     string
	save       bool
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Adaptive OCR for scanned and digital documents",
		Long: color.New(color.FgHiMagenta).Sprintf(
			"Extracts text from PDFs and images, choosing between the text layer and OCR. %s",
			color.New(color.FgBlue).Sprintf("(%s)", Version),
		),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", os.Getenv(common.ConfigFileEnv), "TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "out", "o", "", "Write JSON results to this file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&flags.save, "save", false, "Persist results to the configured database")

	rootCmd.AddCommand(
		processCmd(flags),
		pageCmd(flags),
		pagesCmd(flags),
		batchCmd(flags),
		splitCmd(flags),
		enginesCmd(flags),
		preprocessCmd(flags),
		infoCmd(flags),
		exportCmd(flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err, "kind", common.KindOf(err))
		if names := common.AvailableEngines(err); len(names) > 0 {
			fmt.Fprintln(os.Stderr, color.YellowString("available engines: %v", names))
		}
		os.Exit(1)
	}
}

// build loads config and wires the pipeline; logs go to stderr so stdout stays JSON.
func build(flags *globalFlags) (*app.App, error) {
	cfg, err := common.LoadConfigFile(flags.configFile)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	logger := common.NewLoggerTo(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	return app.New(cfg, nil, logger)
}

func writeJSON(flags *globalFlags, v any) error {
	var w io.Writer = os.Stdout
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close() // nolint: errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadOverrides reads preset overrides from a JSON file; empty path means none.
func loadOverrides(path string) (*preprocess.Overrides, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewFileNotFound(path)
	}
	o, err := preprocess.ParseOverrides(data)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
