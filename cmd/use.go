package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"envis/cmd/root"
)

var usePassword string

var useCmd = &cobra.Command{
	Use:   "use <name_or_id>",
	Short: "Activate an environment by id or name",
	Long:  "Activate an environment into the shell startup files. The argument is matched against ids first, then against names.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		env, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		if err := app.Environments.ActivateWithServices(env, usePassword); err != nil {
			return err
		}
		fmt.Printf("Environment %s is now %s. Open a new terminal to pick it up.\n",
			env.Name, color.GreenString("active"))
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(useCmd)

	useCmd.Flags().StringVarP(&usePassword, "password", "p", "",
		"admin password for privileged services (hosts entries)")
	useCmd.Example = `  envis use dev
  envis use a1b2c3d4-1714032000`
}
