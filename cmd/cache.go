package cmd

import (
	"fmt"
	"os"

	"github.com/aiinpocket/TradingAgents-CN-sub001/cache"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var clearDays int

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheClearCmd.Flags().IntVar(&clearDays, "days", 7, "sweep entries older than this many days")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or sweep the local data cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		st := cache.Get().GetStats()
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Metric", "Value"})
		table.Append([]string{"總文件數", fmt.Sprintf("%d", st.TotalFiles)})
		table.Append([]string{"歷史數據", fmt.Sprintf("%d", st.StockDataCount)})
		table.Append([]string{"新聞數據", fmt.Sprintf("%d", st.NewsCount)})
		table.Append([]string{"基本面數據", fmt.Sprintf("%d", st.FundamentalsCount)})
		table.Append([]string{"跳過緩存", fmt.Sprintf("%d", st.SkippedCount)})
		table.Append([]string{"總大小(MB)", fmt.Sprintf("%.2f", st.TotalSizeMB)})
		table.Render()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Sweep expired cache entries",
	Run: func(cmd *cobra.Command, args []string) {
		n := cache.Get().ClearOldCache(clearDays)
		fmt.Printf("已清理 %d 條過期緩存\n", n)
	},
}
