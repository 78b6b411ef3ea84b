package cmd

import (
	"fmt"

	"github.com/aiinpocket/TradingAgents-CN-sub001/getd"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(fundamentalsCmd)
}

var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals <symbol>",
	Short: "Render the fundamentals analysis report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(getd.GetFundamentalsUnified(args[0]))
	},
}
