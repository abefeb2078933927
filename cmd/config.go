package cmd

import (
	"fmt"

	"github.com/relloyd/dbcop/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure connections and default flag values",
	Long: fmt.Sprintf(`Configure connections & default parameters where:

- Connections are stored in encrypted file %q
- Default flag values are stored in encrypted file %q
- The key protecting both lives in %q
`, config.Connections.FullPath, config.Main.FullPath, config.LocalSecret.FullPath),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
