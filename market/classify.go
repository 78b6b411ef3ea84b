//Package market classifies raw ticker strings into their listing market and
//derives currency and exchange attributes. Classification is a pure string
//operation; no network calls are made.
package market

import (
	"regexp"
	"strings"

	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

var (
	hkSuffixPattern = regexp.MustCompile(`^\d{4,5}\.HK$`)
	cnPattern       = regexp.MustCompile(`^\d{6}$`)
	hkDigitsPattern = regexp.MustCompile(`^\d{4,5}$`)
)

//Classify derives the MarketInfo record for a raw ticker. The .HK suffix wins
//over numeric prefixes; 6-digit numerics beat 4-5 digit ones for CN; anything
//unmatched defaults to US.
func Classify(ticker string) model.MarketInfo {
	raw := strings.ToUpper(strings.TrimSpace(ticker))
	code := stripChinesePrefix(raw)

	switch {
	case hkSuffixPattern.MatchString(raw):
		return hkInfo(raw)
	case cnPattern.MatchString(code):
		return cnInfo(raw, code)
	case hkDigitsPattern.MatchString(code):
		return hkInfo(code + ".HK")
	default:
		return usInfo(raw)
	}
}

//IsCNStock reports whether the ticker classifies as a China A-share.
func IsCNStock(ticker string) bool {
	return Classify(ticker).IsCNA
}

//IsHKStock reports whether the ticker classifies as a Hong Kong share.
func IsHKStock(ticker string) bool {
	return Classify(ticker).IsHK
}

//IsUSStock reports whether the ticker classifies as a US share.
func IsUSStock(ticker string) bool {
	return Classify(ticker).IsUS
}

//NormalizeHKTicker pads bare HK digit codes and appends the .HK suffix.
func NormalizeHKTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if hkDigitsPattern.MatchString(t) {
		return t + ".HK"
	}
	return t
}

//CNExchange resolves the exchange of a bare 6-digit A-share code by its
//leading digit: 6 Shanghai, 0/3 Shenzhen, 8/4 Beijing.
func CNExchange(code string) string {
	switch {
	case strings.HasPrefix(code, "6"):
		return "SSE"
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "SZSE"
	case strings.HasPrefix(code, "8"), strings.HasPrefix(code, "4"):
		return "BSE"
	}
	return "SSE"
}

func stripChinesePrefix(t string) string {
	for _, p := range []string{"SH.", "SZ.", "BJ.", "SH", "SZ", "BJ"} {
		if strings.HasPrefix(t, p) && len(t) > len(p) && isAllDigits(t[len(p):]) {
			return t[len(p):]
		}
	}
	return t
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func cnInfo(raw, code string) model.MarketInfo {
	return model.MarketInfo{
		Ticker:          raw,
		Market:          model.MarketCN,
		MarketName:      "中國A股",
		CurrencyName:    "人民币",
		CurrencyCode:    "CNY",
		CurrencySymbol:  "¥",
		DefaultExchange: CNExchange(code),
		IsCNA:           true,
	}
}

func hkInfo(raw string) model.MarketInfo {
	return model.MarketInfo{
		Ticker:          raw,
		Market:          model.MarketHK,
		MarketName:      "港股",
		CurrencyName:    "港币",
		CurrencyCode:    "HKD",
		CurrencySymbol:  "HK$",
		DefaultExchange: "HKG",
		IsHK:            true,
	}
}

func usInfo(raw string) model.MarketInfo {
	return model.MarketInfo{
		Ticker:          raw,
		Market:          model.MarketUS,
		MarketName:      "美股",
		CurrencyName:    "美元",
		CurrencyCode:    "USD",
		CurrencySymbol:  "$",
		DefaultExchange: "US",
		IsUS:            true,
	}
}
