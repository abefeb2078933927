package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default values for commands",
	Long: fmt.Sprintf(`Configure default values for command flags, for example temp-dir or sqlpackage, where:

- Defaults are stored in config file %q`, config.Main.FullPath),
}

func init() {
	configCmd.AddCommand(defaultCmd)
}
