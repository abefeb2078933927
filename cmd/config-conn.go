package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var configConnCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conn", "connection"},
	Short:   "Configure connection details",
	Long: fmt.Sprintf(`Configure SQL Server connections for use by sync actions where:

- Connections are stored in file %q
- Passwords are encrypted before they are saved`, config.Connections.FullPath),
}

func init() {
	configCmd.AddCommand(configConnCmd)
	configCmd.Flags().SortFlags = false
	initConnAdd()
	initConnList()
	initConnRemove()
	initConnTest()
	initConnExport()
	initConnImport()
}
