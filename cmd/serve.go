package cmd

import (
	"net"

	"github.com/relloyd/dbcop/actions"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that runs syncs described in JSON",
	Long: `Start a web service that runs one sync at a time, where:

  POST /syncs                  starts a sync: {"mode":"safe","source":"dev.Orders","target":"local","confirmRemote":false}
  GET  /syncs/current          shows the state and progress of the current or last sync
  POST /syncs/current/cancel   cancels the running sync
  GET  /analyze/{server}       explains whether a server is local or remote
  GET  /health                 health check
  GET  /metrics                Prometheus metrics
  POST /stop                   stops the server

Remote targets are only synced when the request sets confirmRemote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runServe()
	},
}

var serveConfig = actions.WebServerConfig{
	LogLevel: "info",
	Scheme:   "http",
	Addr:     net.IP{0, 0, 0, 0},
	Port:     8080,
}

func runServe() error {
	src, err := getConnectionSource()
	if err != nil {
		return err
	}
	serveConfig.Connections = src
	serveConfig.StackDumpOnPanic = stackDumpOnPanic
	return actions.RunWebServer(&serveConfig)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", "8080", false, "")
	switches.addFlag(serveCmd, &serveConfig.ToolPath, "sqlpackage", "", false, "")
	switches.addFlag(serveCmd, &serveConfig.TempDir, "temp-dir", "", false, "")
	switches.addFlag(serveCmd, &serveConfig.LockFile, "lock-file", "", false, "")
	switches.addFlag(serveCmd, &serveConfig.LogLevel, "log-level", "info", false, "")
}
