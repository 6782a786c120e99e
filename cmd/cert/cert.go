package cert

import (
	"github.com/spf13/cobra"

	"envis/cmd/root"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Local CA and certificate operations",
	Long:  `Local CA and certificate operations (initialise the CA, issue, list and revoke server certificates)`,
}

const certExample = `  # issue a certificate for a local domain
  envis cert init-ca
  envis cert issue dev api.test --san www.api.test`

func init() {
	root.RootCmd.AddCommand(certCmd)

	certCmd.Example = certExample
}
