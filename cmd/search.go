package cmd

import (
	"fmt"
	"os"

	"github.com/aiinpocket/TradingAgents-CN-sub001/getd"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search listed stocks by code or name keyword",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		frame, e := getd.Manager().SearchStocks(args[0])
		if e != nil {
			fmt.Printf("❌ 搜索失败: %+v\n", e)
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(frame.Cols())
		for i := 0; i < frame.Len(); i++ {
			row := make([]string, 0, len(frame.Cols()))
			for _, c := range frame.Cols() {
				row = append(row, frame.Cell(c, i))
			}
			table.Append(row)
		}
		table.Render()
	},
}
