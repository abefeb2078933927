package cmd

import (
	"github.com/relloyd/dbcop/actions"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy a database or its schema from source to target using SqlPackage",
	Long: `Copy a database or its schema from source-connection.database to target-connection.database

Choose the mode by subcommand:

- full:  the target database is dropped and re-created from a .bacpac export of the source.
- safe:  the source schema is published to the target without dropping objects or losing data.
- force: the source schema is published and objects that only exist in the target are dropped.

The target database name defaults to the source database name.
If the target server is not this machine you are asked to confirm first (see --yes).
Press Ctrl+C to cancel. The intermediate package file is always removed.
`,
}

var syncCfg = actions.SyncConfig{}

func init() {
	rootCmd.AddCommand(syncCmd)
	initSyncMode("full", "Export the source and import it into a re-created target database (.bacpac)")
	initSyncMode("safe", "Publish the source schema without dropping objects or allowing data loss (.dacpac)")
	initSyncMode("force", "Publish the source schema, dropping extra objects and allowing data loss (.dacpac)")
}

func initSyncMode(mode string, short string) {
	c := &cobra.Command{
		Use:   mode + " " + argsDefinitionTxt,
		Short: short,
		Args:  getSyncArgsFunc(&syncCfg.Source, &syncCfg.Target, ""),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			syncCfg.Mode = mode
			return runSync()
		},
	}
	syncCmd.AddCommand(c)
	c.Flags().SortFlags = false
	switches.addFlag(c, &syncCfg.AssumeYes, "yes", "", false, "")
	switches.addFlag(c, &syncCfg.ToolPath, "sqlpackage", "", false, "")
	switches.addFlag(c, &syncCfg.TempDir, "temp-dir", "", false, "")
	switches.addFlag(c, &syncCfg.LogFile, "log-file", "", false, "")
	switches.addFlag(c, &syncCfg.LockFile, "lock-file", "", false, "")
	if mode != "full" {
		switches.addFlag(c, &syncCfg.ExtractAllTableData, "extract-all-table-data", "", false, "")
	}
	switches.addFlag(c, &syncCfg.LogLevel, "log-level", "info", false, "")
}

func runSync() error {
	src, err := getConnectionSource()
	if err != nil {
		return err
	}
	syncCfg.Connections = src
	syncCfg.StackDumpOnPanic = stackDumpOnPanic
	return actions.RunSync(&syncCfg)
}
