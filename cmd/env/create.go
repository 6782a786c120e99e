package env

import (
	"fmt"

	"github.com/spf13/cobra"

	"envis/cmd/root"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.Create(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created environment %s (%s).\n", e.Name, e.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name_or_id>",
	Short: "Delete an environment and its service records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		if err := app.Environments.Delete(e.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted environment %s.\n", e.Name)
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <name_or_id>",
	Short: "Deactivate an environment and clear the managed block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		if err := app.Environments.DeactivateWithServices(e, ""); err != nil {
			return err
		}
		fmt.Printf("Environment %s is now inactive.\n", e.Name)
		return nil
	},
}

func init() {
	envCmd.AddCommand(createCmd)
	envCmd.AddCommand(deleteCmd)
	envCmd.AddCommand(deactivateCmd)
}
