package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2026-01-01T00:00+0000"
	osArch           = "linux"
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use:   "dbcop",
	Short: "Copy SQL Server databases and schemas from one server to another using SqlPackage",
	Long: `dbcop copies a SQL Server database, or just its schema, from a source server to a target.

It drives SqlPackage in one of three modes:

- full:  export the source to a .bacpac and import it into a freshly re-created target database.
- safe:  extract the source schema to a .dacpac and publish it without dropping objects
         or accepting data loss.
- force: as safe but objects missing from the source are dropped and data loss is allowed.

Before any destructive work the target is classified as local or remote. Remote targets
need confirmation. Save connections with 'config connections add' then refer to them as
<connection>.<database>. Start an HTTP server with 'serve' to run syncs via a RESTful API.`,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if err := execute12FactorMode(twelveFactorActions); err != nil {
			// execute12FactorMode logs the error.
			os.Exit(1)
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}
