package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "farmmarket",
	Short: "Farmmarket - produce marketplace backend",
	Long: `Farmmarket connects farmers selling produce with buyers. Farmers publish
listings, buyers make offers, and farmers accept, reject or counter them.
Accepted offers are recorded as transactions.

This CLI runs the HTTP API, applies database migrations and issues
development tokens.`,
	SilenceUsage: true,
}

// Execute runs the command line. It is called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}
