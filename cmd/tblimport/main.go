// Command tblimport loads JSON documents into keyed tables.
//
//	tblimport import doc.json DSN=PROD.TABLES TABLE=T1 (REPL
//	tblimport query --library PROD.TABLES --table T1
//	tblimport serve
//
// Exit status is 0 on success and a per-failure code otherwise; see
// core.ExitCode.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tblimport/internal/config"
	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/logging"
)

var (
	profilePath string
	logLevel    string
	logFormat   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tblimport",
	Short: "Import JSON documents into keyed tables",
	Long: `tblimport reads a JSON document describing a table (its name, library,
key fields, value fields and rows) and writes it to a table library.

An existing table is only replaced when REPL is requested and its fields
match the document; FORCE replaces it regardless.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&profilePath, "config", "", "YAML configuration profile (default $"+config.ProfileEnv+")")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "log format: text, json, console")
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(profilePath)
	if err != nil {
		return configError(err)
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logging.FromContext(cmd.Context()).Debug("configuration loaded", "config", cfg.String())
	return nil
}

func configError(err error) error {
	return &core.Error{Kind: core.KindConfig, Op: "configure", RC: 8, Reason: "INVALID", Err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(report(err))
}

// report prints err for the operator and returns the exit status.
func report(err error) int {
	if err == nil {
		return core.ExitOK
	}
	fmt.Fprintf(os.Stderr, "tblimport: %v\n", err)
	var ce *core.Error
	if !errors.As(err, &ce) {
		// cobra flag and argument errors
		return core.ExitSyntax
	}
	if core.IsUserFacing(err) {
		fmt.Fprintf(os.Stderr, "tblimport: %s\n", core.FormatUserError(err))
	}
	return core.ExitCode(err)
}
