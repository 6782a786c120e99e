package hosts

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"envis/cmd/root"
	"envis/internal/models"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage the Envis block of the OS hosts file",
	Long:  `Manage the Envis block of the OS hosts file`,
}

var hostsPassword string

// readPassword prompts when -p was not given. Writes need sudo.
func readPassword() (string, error) {
	if hostsPassword != "" {
		return hostsPassword, nil
	}
	fmt.Print("Admin password: ")
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", models.ErrNeedsAdmin
	}
	return string(data), nil
}

var listHostsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the managed hosts entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		entries, err := app.Hosts.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No managed hosts entries.")
			return nil
		}
		for _, e := range entries {
			marker := ""
			if !e.Enabled {
				marker = "  (disabled)"
			}
			fmt.Printf("%s %s%s\n", e.IP, e.Hostname, marker)
		}
		return nil
	},
}

var addHostCmd = &cobra.Command{
	Use:   "add <ip> <hostname>",
	Short: "Add an entry to the managed hosts block",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		password, err := readPassword()
		if err != nil {
			return err
		}
		entry := models.HostEntry{IP: args[0], Hostname: args[1], Enabled: true}
		if err := app.Hosts.AddHosts([]models.HostEntry{entry}, password); err != nil {
			return err
		}
		fmt.Printf("Added %s %s.\n", args[0], args[1])
		return nil
	},
}

var removeHostCmd = &cobra.Command{
	Use:   "remove <ip> <hostname>",
	Short: "Remove an entry from the managed hosts block",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		password, err := readPassword()
		if err != nil {
			return err
		}
		entry := models.HostEntry{IP: args[0], Hostname: args[1]}
		if err := app.Hosts.RemoveHosts([]models.HostEntry{entry}, password); err != nil {
			return err
		}
		fmt.Printf("Removed %s %s.\n", args[0], args[1])
		return nil
	},
}

func init() {
	root.RootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(listHostsCmd)
	hostsCmd.AddCommand(addHostCmd)
	hostsCmd.AddCommand(removeHostCmd)

	hostsCmd.PersistentFlags().StringVarP(&hostsPassword, "password", "p", "",
		"admin password for privileged writes")
	hostsCmd.Example = `  envis hosts add 127.0.0.1 myapp.test`
}
