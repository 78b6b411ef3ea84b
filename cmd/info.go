package cmd

import (
	"fmt"

	"github.com/aiinpocket/TradingAgents-CN-sub001/getd"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(newsCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <symbol>",
	Short: "Show the identity record for a stock",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(getd.GetStockInfoUnified(args[0]))
	},
}

var newsCmd = &cobra.Command{
	Use:   "news <symbol>",
	Short: "Show recent headlines for a stock",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(getd.GetStockNewsUnified(args[0], 10))
	},
}
