package cmd

import (
	"context"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/rdbms"
	"github.com/spf13/cobra"
)

var listDatabasesCfg = actions.ListDatabasesConfig{}
var listDatabasesLogLevel string

var databasesCmd = &cobra.Command{
	Use:     "databases <connection>",
	Aliases: []string{"dbs"},
	Short:   "List the user databases on a connection",
	Long:    `List the user databases on a connection, excluding system databases, sorted by name`,
	Args:    getConnectionArgFunc(&listDatabasesCfg.LogicalName, ""),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		src, err := getConnectionSource()
		if err != nil {
			return err
		}
		log := logger.NewLogger(constants.AppName, listDatabasesLogLevel, stackDumpOnPanic)
		listDatabasesCfg.Connections = src
		listDatabasesCfg.Dialer = rdbms.NewSqlServerDialer(log)
		_, err = actions.RunListDatabases(context.Background(), &listDatabasesCfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
	switches.addFlag(databasesCmd, &listDatabasesLogLevel, "log-level", "warn", false, "")
}
