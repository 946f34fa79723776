package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stephnangue/fedgate/cmd/server"
)

var fedgateCmd = &cobra.Command{
	Use:   "fedgate",
	Short: "Fedgate is a federated identity login gateway",
	Long: `Fedgate fronts a Keystone-style identity backend and turns login
credentials or a federated realm selection into a project-scoped token.
It resolves identity domains, discovers federated realms, and picks the
project to scope each token to.`,
}

func Execute() {
	if err := fedgateCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	fedgateCmd.AddCommand(server.ServerCmd)
}
