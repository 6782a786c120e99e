package env

import (
	"github.com/spf13/cobra"

	"envis/cmd/root"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Environment operations (create/delete/service management)",
	Long:  `Environment operations (create/delete/service management)`,
}

const envExample = `  # create an environment and put Node.js in it
  envis env create dev
  envis env add-service dev nodejs 20.19.1`

func init() {
	root.RootCmd.AddCommand(envCmd)

	envCmd.Example = envExample
}
