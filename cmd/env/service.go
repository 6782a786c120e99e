package env

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/internal/models"
)

var addServiceCmd = &cobra.Command{
	Use:   "add-service <env> <service> <version>",
	Short: "Add a service at a version to an environment",
	Long:  "Create a service data record inside an environment. The shared installation is downloaded first when missing.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		t := models.ServiceType(args[1])
		version := args[2]

		if in, err := app.Installers.Get(t); err == nil && !in.IsInstalled(version) {
			fmt.Printf("Installing %s %s ...\n", t, version)
			if err := in.DownloadAndInstall(version); err != nil {
				return err
			}
		}
		sd, err := app.ServiceData.Create(e.ID, t, version)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s %s to environment %s.\n", sd.ServiceType, sd.Version, e.Name)
		return nil
	},
}

var removeServiceCmd = &cobra.Command{
	Use:   "remove-service <env> <service> <version>",
	Short: "Remove a service record from an environment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		if err := app.ServiceData.Delete(e.ID, models.ServiceType(args[1]), args[2]); err != nil {
			return err
		}
		fmt.Printf("Removed %s %s from environment %s.\n", args[1], args[2], e.Name)
		return nil
	},
}

var servicesCmd = &cobra.Command{
	Use:   "services <env>",
	Short: "List the service records of an environment",
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
		sds, err := app.ServiceData.List(e.ID)
		if err != nil {
			return err
		}
		if len(sds) == 0 {
			fmt.Printf("Environment %s has no services.\n", e.Name)
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "Type", "Version", "Status"})
		for _, sd := range sds {
			t.AppendRow(table.Row{sd.Name, sd.ServiceType, sd.Version, sd.Status})
		}
		t.Render()
		return nil
	},
}

func init() {
	envCmd.AddCommand(addServiceCmd)
	envCmd.AddCommand(removeServiceCmd)
	envCmd.AddCommand(servicesCmd)
}
