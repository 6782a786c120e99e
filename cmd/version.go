package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"envis/cmd/root"
)

var SoftwareVer = "dev"
var BuildTime = ""
var BuildCommitId = ""

func PrintVersions() {
	fmt.Printf("envis %s\n", SoftwareVer)
	if BuildTime != "" {
		fmt.Printf("Build Time: %s\n", BuildTime)
	}
	if BuildCommitId != "" {
		fmt.Printf("Build Commit ID: %s\n", BuildCommitId)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",

	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)
	root.RootCmd.Version = SoftwareVer

	versionCmd.Example = `  envis version`
}
