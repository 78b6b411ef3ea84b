package cmd

import (
	"fmt"

	"github.com/aiinpocket/TradingAgents-CN-sub001/getd"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/spf13/cobra"
)

var (
	startDate string
	endDate   string
)

func init() {
	getCmd.Flags().StringVar(&startDate, "start", "", "start date (2006-01-02)")
	getCmd.Flags().StringVar(&endDate, "end", "", "end date (2006-01-02)")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <symbol>",
	Short: "Get the price report for a stock",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, end := startDate, endDate
		if start == "" || end == "" {
			start, end = util.DefaultDateRange(30)
		}
		fmt.Println(getd.GetStockDataUnified(args[0], start, end))
	},
}
