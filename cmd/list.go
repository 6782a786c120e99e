package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all environments",
	Long:  "List every environment with its services. The active environment carries an [Active] marker.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		envs, err := app.Environments.GetAll()
		if err != nil {
			return err
		}
		if len(envs) == 0 {
			fmt.Println("No environments yet. Create one with 'envis env create <name>'.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "ID", "Services", "Created"})
		for _, e := range envs {
			name := e.Name
			if e.Status == models.StatusActive {
				name = color.GreenString("[Active] ") + name
			}
			count := 0
			if sds, err := app.ServiceData.List(e.ID); err == nil {
				count = len(sds)
			}
			t.AppendRow(table.Row{name, e.ID, count, e.CreatedAt.Format("2006-01-02 15:04")})
		}
		t.Render()
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(listCmd)

	listCmd.Example = `  envis list`
}
