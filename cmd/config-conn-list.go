package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var configConnListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print all connections",
	Long: fmt.Sprintf(`List connections stored in config store %q
by printing them all to STDOUT. Passwords are never printed.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return actions.RunConnectionList(&actions.ConnectionListConfig{Store: getConnectionStore()})
	},
}

func initConnList() {
	configConnCmd.AddCommand(configConnListCmd)
}
