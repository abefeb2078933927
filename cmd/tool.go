package cmd

import (
	"context"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/toolpath"
	"github.com/spf13/cobra"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Find the SqlPackage executable",
}

var toolLocateCfg = actions.ToolLocateConfig{}
var toolLocateLogLevel string

var toolLocateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Print the path of SqlPackage",
	Long: `Print the path of SqlPackage, searching well known install locations and PATH.
The result is cached per machine so later syncs start quickly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		log := logger.NewLogger(constants.AppName, toolLocateLogLevel, stackDumpOnPanic)
		toolLocateCfg.Locator = toolpath.NewLocator(log, toolpath.NewCache(config.ToolCache))
		_, err := actions.RunToolLocate(context.Background(), &toolLocateCfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(toolCmd)
	toolCmd.AddCommand(toolLocateCmd)
	toolLocateCmd.Flags().SortFlags = false
	switches.addFlag(toolLocateCmd, &toolLocateCfg.ToolPath, "sqlpackage", "", false, "")
	switches.addFlag(toolLocateCmd, &toolLocateCfg.Forget, "forget", "", false, "")
	switches.addFlag(toolLocateCmd, &toolLocateLogLevel, "log-level", "info", false, "")
}
