package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/internal/models"
	"envis/services"
)

// activeServiceData resolves <service> against the active environment.
func activeServiceData(app *services.App, typeName string) (string, *models.ServiceData, error) {
	t := models.ServiceType(typeName)
	if !t.Valid() {
		return "", nil, fmt.Errorf("unknown service type '%s'", typeName)
	}
	envs, err := app.Environments.GetAll()
	if err != nil {
		return "", nil, err
	}
	for _, e := range envs {
		if e.Status != models.StatusActive {
			continue
		}
		sds, err := app.ServiceData.List(e.ID)
		if err != nil {
			return "", nil, err
		}
		for i := range sds {
			if sds[i].ServiceType == t {
				return e.ID, &sds[i], nil
			}
		}
		return "", nil, fmt.Errorf("active environment '%s' has no %s service: %w",
			e.Name, t, models.ErrNotFound)
	}
	return "", nil, fmt.Errorf("no active environment: %w", models.ErrNotFound)
}

var startCmd = &cobra.Command{
	Use:   "start <service>",
	Short: "Start a service of the active environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		envID, sd, err := activeServiceData(app, args[0])
		if err != nil {
			return err
		}
		pid, err := app.Processes.Start(envID, sd)
		if err != nil {
			return err
		}
		fmt.Printf("Started %s %s (pid %d).\n", sd.ServiceType, sd.Version, pid)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <service>",
	Short: "Stop a service of the active environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		envID, sd, err := activeServiceData(app, args[0])
		if err != nil {
			return err
		}
		if err := app.Processes.Stop(envID, sd); err != nil {
			return err
		}
		fmt.Printf("Stopped %s %s.\n", sd.ServiceType, sd.Version)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <service>",
	Short: "Show the running state of a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		envID, sd, err := activeServiceData(app, args[0])
		if err != nil {
			return err
		}
		pid, running := app.Processes.Status(envID, sd)
		fmt.Printf("%s %s (%s)\n", sd.ServiceType, sd.Version, sd.Status)
		if running {
			fmt.Printf("Process: running (pid %d)\n", pid)
		} else {
			fmt.Println("Process: not running")
		}
		if task, ok := app.Downloads.GetTask(services.TaskID(sd.ServiceType, sd.Version)); ok {
			fmt.Printf("Install task: %s\n", task.Status)
		}
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(startCmd)
	root.RootCmd.AddCommand(stopCmd)
	root.RootCmd.AddCommand(statusCmd)

	startCmd.Example = `  envis start mongodb`
}
