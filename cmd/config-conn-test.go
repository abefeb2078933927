package cmd

import (
	"context"

	"github.com/relloyd/dbcop/actions"
	"github.com/relloyd/dbcop/constants"
	"github.com/relloyd/dbcop/logger"
	"github.com/relloyd/dbcop/rdbms"
	"github.com/spf13/cobra"
)

var connTestCfg = actions.ConnectionTestConfig{}
var connTestLogLevel string

var configConnTestCmd = &cobra.Command{
	Use:   "test <connection>",
	Short: "Check a connection works",
	Long:  `Connect to the master database of a saved connection and ping it`,
	Args:  getConnectionArgFunc(&connTestCfg.LogicalName, ""),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		src, err := getConnectionSource()
		if err != nil {
			return err
		}
		log := logger.NewLogger(constants.AppName, connTestLogLevel, stackDumpOnPanic)
		connTestCfg.Connections = src
		connTestCfg.Dialer = rdbms.NewSqlServerDialer(log)
		return actions.RunConnectionTest(context.Background(), &connTestCfg)
	},
}

func initConnTest() {
	configConnCmd.AddCommand(configConnTestCmd)
	switches.addFlag(configConnTestCmd, &connTestLogLevel, "log-level", "warn", false, "")
}
