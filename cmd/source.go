package cmd

import (
	"fmt"

	"github.com/aiinpocket/TradingAgents-CN-sub001/getd"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourceCmd)
}

var sourceCmd = &cobra.Command{
	Use:   "source [name]",
	Short: "Show or switch the active China data source",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Printf("當前數據源: %s\n可用數據源: %v\n",
				getd.Manager().CurrentSource(), getd.Manager().AvailableSources())
			return
		}
		fmt.Println(getd.SwitchChinaDataSource(args[0]))
	},
}
