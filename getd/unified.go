package getd

import (
	"fmt"
	"strings"

	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

//The unified interface is the only surface downstream agents call. Every
//function recovers panics and returns text starting with 📊/📈/💰/📰 on
//success or ❌ on failure, so agents can detect errors without exception
//handling.

func guardText(symbol string, fn func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic while serving %s: %+v", symbol, r)
			out = fmt.Sprintf("❌ 獲取%s數據時發生內部錯誤", symbol)
		}
	}()
	out = fn()
	if strings.TrimSpace(out) == "" {
		out = fmt.Sprintf("❌ 未能獲取%s的數據", symbol)
	}
	return
}

//GetStockDataUnified returns the textual price report for any CN-A/HK/US
//symbol.
func GetStockDataUnified(symbol, start, end string) string {
	return guardText(symbol, func() string {
		return Manager().GetStockData(symbol, start, end)
	})
}

//GetStockInfoUnified returns the identity record for a symbol, falling back
//to the placeholder record instead of failing.
func GetStockInfoUnified(symbol string) (info *model.StockInfo) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic while resolving %s info: %+v", symbol, r)
			info = fillMarketFields(&model.StockInfo{
				Symbol: symbol,
				Name:   model.PlaceholderName(symbol),
				Source: model.Unknown,
			}, market.Classify(symbol))
		}
	}()
	return Manager().GetStockInfo(symbol)
}

//GetFundamentalsUnified returns the markdown fundamentals report.
func GetFundamentalsUnified(symbol string) string {
	return guardText(symbol, func() string {
		return Manager().GetFundamentals(symbol)
	})
}

//GetStockNewsUnified returns recent headlines for the symbol.
func GetStockNewsUnified(symbol string, limit int) string {
	return guardText(symbol, func() string {
		return Manager().GetStockNews(symbol, limit)
	})
}

//SwitchChinaDataSource switches the active CN provider, reporting the result
//as text.
func SwitchChinaDataSource(name string) string {
	if e := Manager().SwitchSource(name); e != nil {
		return fmt.Sprintf("❌ 切換數據源失败: %+v", e)
	}
	return fmt.Sprintf("📊 當前中國股票數據源: %s", Manager().CurrentSource())
}
