package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

//Market identifies the listing market of a security.
type Market string

//DataKind identifies the category of cached data.
type DataKind string

//DataSource identifies an upstream data provider.
type DataSource string

const (
	//MarketCN China A-share market
	MarketCN Market = "cn"
	//MarketHK Hong Kong market
	MarketHK Market = "hk"
	//MarketUS United States market
	MarketUS Market = "us"
)

const (
	KindStockData    DataKind = "stock_data"
	KindNews         DataKind = "news"
	KindFundamentals DataKind = "fundamentals"
)

const (
	Tushare  DataSource = "tushare"
	AKShare  DataSource = "akshare"
	BaoStock DataSource = "baostock"
	FinnHub  DataSource = "finnhub"
	YFinance DataSource = "yfinance"
	Unknown  DataSource = "unknown"
)

//Price series type tags.
const (
	PriceTypeRaw             = "raw"
	PriceTypeForwardAdjusted = "forward_adjusted"
)

//MarketInfo is the derived classification record for a ticker.
type MarketInfo struct {
	Ticker          string
	Market          Market
	MarketName      string
	CurrencyName    string
	CurrencyCode    string
	CurrencySymbol  string
	DefaultExchange string
	IsCNA           bool
	IsHK            bool
	IsUS            bool
}

func (m MarketInfo) String() string {
	return toJSONString(m)
}

//StockInfo is the basic identity record of a security.
type StockInfo struct {
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name"`
	Industry string     `json:"industry,omitempty"`
	Area     string     `json:"area,omitempty"`
	Market   string     `json:"market,omitempty"`
	ListDate string     `json:"list_date,omitempty"`
	Exchange string     `json:"exchange,omitempty"`
	Currency string     `json:"currency,omitempty"`
	Source   DataSource `json:"source"`
}

//PlaceholderName is the sentinel used when no provider supplied a real name.
func PlaceholderName(symbol string) string {
	return "股票" + symbol
}

//Valid reports whether the record carries a real company name.
func (s *StockInfo) Valid() bool {
	return s != nil && s.Name != "" && s.Name != PlaceholderName(s.Symbol)
}

func (s *StockInfo) String() string {
	return toJSONString(s)
}

//PriceBar is one trading day of canonical OHLCV data.
type PriceBar struct {
	Date      string
	Code      string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Amount    float64
	PctChange float64
	Change    float64
	//raw mirrors, populated when the series is forward adjusted
	OpenRaw  float64
	HighRaw  float64
	LowRaw   float64
	CloseRaw float64
}

func (b *PriceBar) String() string {
	return toJSONString(b)
}

//Bars is a daily price series in ascending date order.
type Bars struct {
	Code      string
	PriceType string
	Rows      []*PriceBar
}

//Empty returns whether there is no valid data within this series.
func (s *Bars) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

//Len returns the number of bars.
func (s *Bars) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

//Latest returns the most recent bar, or nil when empty.
func (s *Bars) Latest() *PriceBar {
	if s.Empty() {
		return nil
	}
	return s.Rows[len(s.Rows)-1]
}

//SortByDate sorts bars ascending by date string.
func (s *Bars) SortByDate() {
	if s.Empty() {
		return
	}
	sort.SliceStable(s.Rows, func(i, j int) bool {
		return s.Rows[i].Date < s.Rows[j].Date
	})
}

//Closes returns the close column.
func (s *Bars) Closes() []float64 {
	vals := make([]float64, 0, s.Len())
	for _, r := range s.Rows {
		vals = append(vals, r.Close)
	}
	return vals
}

//Highs returns the high column.
func (s *Bars) Highs() []float64 {
	vals := make([]float64, 0, s.Len())
	for _, r := range s.Rows {
		vals = append(vals, r.High)
	}
	return vals
}

//Lows returns the low column.
func (s *Bars) Lows() []float64 {
	vals := make([]float64, 0, s.Len())
	for _, r := range s.Rows {
		vals = append(vals, r.Low)
	}
	return vals
}

//TotalVolume aggregates the volume column.
func (s *Bars) TotalVolume() float64 {
	var sum float64
	for _, r := range s.Rows {
		if !math.IsNaN(r.Volume) {
			sum += r.Volume
		}
	}
	return sum
}

//QualityIssues reports invariant breaches within the series. Breaches are a
//quality signal for consumers, not a reason to drop the data.
func (s *Bars) QualityIssues() (issues []string) {
	for i, r := range s.Rows {
		if i > 0 && r.Date <= s.Rows[i-1].Date {
			issues = append(issues, fmt.Sprintf("date not ascending at %s", r.Date))
		}
		if r.Volume < 0 {
			issues = append(issues, fmt.Sprintf("negative volume at %s", r.Date))
		}
		hi, lo := math.Max(r.Open, r.Close), math.Min(r.Open, r.Close)
		if r.High < hi || lo < r.Low || r.Low < 0 {
			issues = append(issues, fmt.Sprintf("inconsistent OHLC at %s", r.Date))
		}
	}
	return
}

func toJSONString(v interface{}) string {
	j, e := json.Marshal(v)
	if e != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(j)
}

//FinancialMetrics holds ratio strings and composite scores for one security.
//Ratio values are pre-formatted strings so that estimated values can carry
//the （估算值） marker all the way to the rendered report.
type FinancialMetrics struct {
	PE            string
	PB            string
	PS            string
	ROE           string
	ROA           string
	GrossMargin   string
	NetMargin     string
	DebtRatio     string
	CurrentRatio  string
	QuickRatio    string
	CashRatio     string
	DividendYield string

	FundamentalScore float64
	ValuationScore   float64
	GrowthScore      float64
	RiskLevel        string

	//DataSource is one of "AKShare", "Tushare", "estimated"
	DataSource string
}

//Estimated reports whether any ratio carries the estimation marker.
func (m *FinancialMetrics) Estimated() bool {
	return m.DataSource == "estimated"
}

//FinancialStatements groups the three statement kinds fetched independently.
//A nil/empty member means that statement could not be retrieved; partial
//results are still usable.
type FinancialStatements struct {
	BalanceSheet    map[string]float64
	IncomeStatement map[string]float64
	CashFlow        map[string]float64
	//MainIndicators wide-pivoted indicator name -> latest period value
	MainIndicators map[string]string
}

//Empty reports whether nothing at all was retrieved.
func (f *FinancialStatements) Empty() bool {
	return f == nil || (len(f.BalanceSheet) == 0 && len(f.IncomeStatement) == 0 &&
		len(f.CashFlow) == 0 && len(f.MainIndicators) == 0)
}
