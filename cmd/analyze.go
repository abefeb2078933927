package cmd

import (
	"context"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/locality"
	"github.com/relloyd/dbcop/logger"
	"github.com/spf13/cobra"
)

var analyzeCfg = actions.AnalyzeConfig{}
var analyzeLogLevel string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <server-or-connection>",
	Short: "Explain whether a server is on this machine",
	Long: `Classify a server address, or the server of a saved connection, as local or remote
and print the machine names, interface addresses and DNS results used to decide.

Syncs to remote servers need confirmation before any destructive step.`,
	Args: getConnectionArgFunc(&analyzeCfg.Server, "requires a <server> or <connection>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		log := logger.NewLogger(constants.AppName, analyzeLogLevel, stackDumpOnPanic)
		analyzeCfg.Analyzer = locality.NewClassifier(log)
		if src, err := getConnectionSource(); err == nil {
			analyzeCfg.Loader = src.Loader
		}
		_, err := actions.RunAnalyze(context.Background(), &analyzeCfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().SortFlags = false
	switches.addFlag(analyzeCmd, &analyzeCfg.JSON, "json", "", false, "")
	switches.addFlag(analyzeCmd, &analyzeLogLevel, "log-level", "warn", false, "")
}
