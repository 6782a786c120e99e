package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/internal/models"
)

var installCmd = &cobra.Command{
	Use:   "install <service> <version>",
	Short: "Download and install a service version",
	Long:  "Download a service into the shared installation directory. The installation is version scoped and shared across environments.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		t := models.ServiceType(args[0])
		version := args[1]
		in, err := app.Installers.Get(t)
		if err != nil {
			return err
		}
		if in.IsInstalled(version) {
			fmt.Printf("%s %s is already installed.\n", t, version)
			return nil
		}
		fmt.Printf("Installing %s %s ...\n", t, version)
		if err := in.DownloadAndInstall(version); err != nil {
			return err
		}
		fmt.Printf("Installed %s %s.\n", t, version)
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions <service>",
	Short: "List installable versions of a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		in, err := app.Installers.Get(models.ServiceType(args[0]))
		if err != nil {
			return err
		}
		versions, err := in.AvailableVersions()
		if err != nil {
			return err
		}
		for _, v := range versions {
			marker := ""
			if in.IsInstalled(v.Version) {
				marker = "  (installed)"
			}
			fmt.Printf("%s%s\n", v.Version, marker)
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <service> <version>",
	Short: "Remove a shared service installation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		in, err := app.Installers.Get(models.ServiceType(args[0]))
		if err != nil {
			return err
		}
		if err := in.Uninstall(args[1]); err != nil {
			return err
		}
		fmt.Printf("Removed %s %s.\n", args[0], args[1])
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(installCmd)
	root.RootCmd.AddCommand(versionsCmd)
	root.RootCmd.AddCommand(uninstallCmd)

	installCmd.Example = `  envis install nodejs 20.19.1
  envis install mongodb 7.0.14`
}
