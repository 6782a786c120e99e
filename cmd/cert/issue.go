package cert

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/internal/models"
)

var (
	caCN      string
	caOrg     string
	caDays    int
	issueSANs []string
	issueDays int
)

var initCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Initialise the local certificate authority",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		cc := models.CAConfig{CommonName: caCN, Organization: caOrg, ValidityDays: caDays}
		if err := app.Certs.InitializeCA(cc); err != nil {
			return err
		}
		fmt.Println("Certificate authority initialised. Trust ca.crt in your OS to silence browser warnings.")
		return nil
	},
}

var issueCmd = &cobra.Command{
	Use:   "issue <env> <domain>",
	Short: "Issue a server certificate for a domain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		cert, err := app.Certs.Issue(e.ID, args[1], issueSANs, issueDays)
		if err != nil {
			return err
		}
		fmt.Printf("Issued certificate for %s (serial %s)\n", cert.Domain, cert.Serial)
		fmt.Printf("  crt: %s\n  key: %s\n  pem: %s\n  pfx: %s\n",
			cert.Paths.Cert, cert.Paths.Key, cert.Paths.PEM, cert.Paths.PFX)
		return nil
	},
}

var listCertsCmd = &cobra.Command{
	Use:   "list <env>",
	Short: "List the certificates of an environment",
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
		certs, err := app.Certs.List(e.ID)
		if err != nil {
			return err
		}
		if len(certs) == 0 {
			fmt.Printf("Environment %s has no certificates.\n", e.Name)
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Domain", "Serial", "Valid To", "Issuer"})
		for _, c := range certs {
			t.AppendRow(table.Row{c.Domain, c.Serial, c.ValidTo.Format("2006-01-02"), c.Issuer})
		}
		t.Render()
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <env> <domain>",
	Short: "Revoke (delete) a certificate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := root.App()
		if err != nil {
			return err
		}
		e, err := app.Environments.FindByNameOrID(args[0])
		if err != nil {
			return err
		}
		if err := app.Certs.Revoke(e.ID, args[1]); err != nil {
			return err
		}
		fmt.Printf("Revoked certificate for %s.\n", args[1])
		return nil
	},
}

func init() {
	certCmd.AddCommand(initCACmd)
	certCmd.AddCommand(issueCmd)
	certCmd.AddCommand(listCertsCmd)
	certCmd.AddCommand(revokeCmd)

	initCACmd.Flags().StringVar(&caCN, "cn", "Envis Local CA", "common name of the CA")
	initCACmd.Flags().StringVar(&caOrg, "org", "Envis", "organisation of the CA")
	initCACmd.Flags().IntVar(&caDays, "days", 3650, "CA validity in days")
	issueCmd.Flags().StringSliceVar(&issueSANs, "san", nil, "additional DNS names")
	issueCmd.Flags().IntVar(&issueDays, "days", 365, "certificate validity in days")
}
