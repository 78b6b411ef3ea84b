package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradingagents",
	Short: "Tradingagents fetches and normalizes CN-A/HK/US stock data for analyst agents.",
	Long:  `Please provide subcommand to take further actions.`,
}

//Execute is the entrance of this command-line framework
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
