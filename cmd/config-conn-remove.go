package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var connRemoveCfg = actions.ConnectionRemoveConfig{}

var configConnRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a connection",
	Long:    fmt.Sprintf("Remove a connection from config file %q", config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		connRemoveCfg.Store = getConnectionStore()
		return actions.RunConnectionRemove(&connRemoveCfg)
	},
}

func initConnRemove() {
	configConnCmd.AddCommand(configConnRemoveCmd)
	switches.addFlag(configConnRemoveCmd, &connRemoveCfg.LogicalName, "connection-name", "", true, "")
	configConnRemoveCmd.SilenceUsage = true
}
