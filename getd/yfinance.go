package getd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/global"
	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const yfChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

//YFinanceFetcher serves US and HK daily history from the Yahoo chart API.
//Yahoo throttles aggressively, so calls are spaced by a per-market minimum
//interval.
type YFinanceFetcher struct {
	mu       sync.Mutex
	lastCall time.Time
}

var (
	yfInstance *YFinanceFetcher
	yfOnce     sync.Once
)

func yFinance() *YFinanceFetcher {
	yfOnce.Do(func() {
		yfInstance = &YFinanceFetcher{}
	})
	return yfInstance
}

func (f *YFinanceFetcher) source() model.DataSource {
	return model.YFinance
}

func (f *YFinanceFetcher) healthy() bool {
	return true
}

//throttle blocks until the per-market minimum interval since the previous
//call has elapsed.
func (f *YFinanceFetcher) throttle(symbol string) {
	interval := conf.Args.Network.YFMinIntervalUS
	if market.IsHKStock(symbol) {
		interval = conf.Args.Network.YFMinIntervalHK
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	wait := time.Duration(interval*float64(time.Second)) - time.Since(f.lastCall)
	if wait > 0 {
		time.Sleep(wait)
	}
	f.lastCall = time.Now()
}

func yahooSymbol(symbol string) string {
	if market.IsHKStock(symbol) {
		code := strings.TrimSuffix(market.NormalizeHKTicker(symbol), ".HK")
		//Yahoo wants 4-digit HK codes
		for len(code) > 4 && strings.HasPrefix(code, "0") {
			code = code[1:]
		}
		return code + ".HK"
	}
	return strings.ToUpper(symbol)
}

//chartToBars unpacks the chart payload's parallel timestamp/quote arrays.
func chartToBars(symbol string, chart gjson.Result) *model.Bars {
	bars := &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}
	result := chart.Get("chart.result.0")
	if !result.Exists() {
		return bars
	}
	ts := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	vols := quote.Get("volume").Array()
	for i := range ts {
		if i >= len(closes) || !closes[i].Exists() || closes[i].Type == gjson.Null {
			continue
		}
		bar := &model.PriceBar{
			Date:   time.Unix(ts[i].Int(), 0).UTC().Format(global.DateFormat),
			Code:   symbol,
			Close:  closes[i].Float(),
			Volume: vols[i].Float(),
		}
		if i < len(opens) {
			bar.Open = opens[i].Float()
		}
		if i < len(highs) {
			bar.High = highs[i].Float()
		}
		if i < len(lows) {
			bar.Low = lows[i].Float()
		}
		bars.Rows = append(bars.Rows, bar)
	}
	bars.SortByDate()
	for i, r := range bars.Rows {
		if i > 0 && bars.Rows[i-1].Close != 0 {
			r.Change = r.Close - bars.Rows[i-1].Close
			r.PctChange = r.Change / bars.Rows[i-1].Close * 100
		}
	}
	return bars
}

func (f *YFinanceFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	if start == "" || end == "" {
		start, end = util.DefaultDateRange(365)
	}
	f.throttle(symbol)
	t1, _ := util.ParseDate(start)
	t2, _ := util.ParseDate(end)
	link := fmt.Sprintf("%s%s?period1=%d&period2=%d&interval=1d",
		yfChartURL, yahooSymbol(symbol), t1.Unix(), t2.AddDate(0, 0, 1).Unix())
	body, e := getRetry(link)
	if e != nil {
		log.Warnf("yahoo chart fetch failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	bars := chartToBars(symbol, gjson.ParseBytes(body))
	if bars.Empty() {
		log.Warnf("yahoo returned no rows for %s [%s, %s]", symbol, start, end)
	}
	return bars, nil
}

func (f *YFinanceFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	f.throttle(symbol)
	link := fmt.Sprintf("%s%s?range=1d&interval=1d", yfChartURL, yahooSymbol(symbol))
	body, e := getRetry(link)
	if e != nil {
		return nil, e
	}
	meta := gjson.GetBytes(body, "chart.result.0.meta")
	name := meta.Get("longName").String()
	if name == "" {
		name = meta.Get("shortName").String()
	}
	if name == "" {
		return nil, errors.Errorf("yahoo has no metadata for %s", symbol)
	}
	return &model.StockInfo{
		Symbol:   symbol,
		Name:     name,
		Exchange: meta.Get("fullExchangeName").String(),
		Currency: meta.Get("currency").String(),
		Source:   model.YFinance,
	}, nil
}
