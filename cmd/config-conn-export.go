package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var connExportCfg = actions.ConnectionExportConfig{}

var configConnExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export connections to a JSON file",
	Long: fmt.Sprintf(`Export all connections from config file %q to a JSON file.

Passwords are left out unless --include-passwords is set, in which case they remain encrypted
and can only be read back by an installation sharing the same secret.`, config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		connExportCfg.Store = getConnectionStore()
		return actions.RunConnectionExport(&connExportCfg)
	},
}

var connImportCfg = actions.ConnectionImportConfig{}

var configConnImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import connections from a JSON or YAML file",
	Long: fmt.Sprintf(`Import connections into config file %q from a file written by 'export'
or from a list of connections in JSON or YAML. Existing connections are skipped unless forced.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		connImportCfg.Store = getConnectionStore()
		_, err := actions.RunConnectionImport(&connImportCfg)
		return err
	},
}

func initConnExport() {
	configConnCmd.AddCommand(configConnExportCmd)
	configConnExportCmd.Flags().SortFlags = false
	switches.addFlag(configConnExportCmd, &connExportCfg.FileName, "file", "", true, "")
	switches.addFlag(configConnExportCmd, &connExportCfg.IncludePasswords, "include-passwords", "", false, "")
}

func initConnImport() {
	configConnCmd.AddCommand(configConnImportCmd)
	configConnImportCmd.Flags().SortFlags = false
	switches.addFlag(configConnImportCmd, &connImportCfg.FileName, "file", "", true, "")
	switches.addFlag(configConnImportCmd, &connImportCfg.Force, "force-import", "", false, "")
}
