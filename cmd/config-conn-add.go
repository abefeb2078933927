package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var connAddCfg = actions.ConnectionConfig{}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a SQL Server connection",
	Long: fmt.Sprintf(`Add a SQL Server connection to the config store %q
by supplying a server and credentials, or a DSN of the form:

sqlserver://[<user>:<pass>@]<host>[:<port>][/<instance>]

When SQL authentication is used and no password is given you are prompted for one.
The password is encrypted before it is saved.`,
		config.Connections.FullPath),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		connAddCfg.Store = getConnectionStore()
		connAddCfg.Credentials = config.Credentials
		if connAddCfg.Dsn == "" && !connAddCfg.WindowsAuth && connAddCfg.UserID != "" && connAddCfg.Password == "" { // if we need a password...
			pwd, err := actions.PromptPassword(fmt.Sprintf("Password for %v@%v: ", connAddCfg.UserID, connAddCfg.Server))
			if err != nil {
				return err
			}
			connAddCfg.Password = pwd
		}
		return actions.RunConnectionAdd(&connAddCfg)
	},
}

func initConnAdd() {
	configConnCmd.AddCommand(configConnAddCmd)
	configConnAddCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddCmd, &connAddCfg.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Server, "server", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.UserID, "user", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Password, "password", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.WindowsAuth, "windows-auth", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Dsn, "dsn", "", false, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Force, "force-connection", "", false, "")
}
