package getd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/global"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const fhBaseURL = "https://finnhub.io/api/v1"

//FinnHubFetcher is the US primary. The free tier has no daily history, so a
//series is synthesized from the realtime quote snapshot.
type FinnHubFetcher struct {
	apiKey string
}

var (
	fhInstance *FinnHubFetcher
	fhOnce     sync.Once
)

func finnHub() *FinnHubFetcher {
	fhOnce.Do(func() {
		fhInstance = &FinnHubFetcher{apiKey: conf.Args.DataSource.FinnHubAPIKey}
		if fhInstance.apiKey == "" {
			log.Warn("FINNHUB_API_KEY not configured, finnhub adapter disabled")
		}
	})
	return fhInstance
}

func (f *FinnHubFetcher) source() model.DataSource {
	return model.FinnHub
}

func (f *FinnHubFetcher) healthy() bool {
	return f.apiKey != ""
}

func (f *FinnHubFetcher) get(path string, params string) (gjson.Result, error) {
	if !f.healthy() {
		return gjson.Result{}, errors.New("finnhub api key not configured")
	}
	link := fmt.Sprintf("%s%s?%s&token=%s", fhBaseURL, path, params, f.apiKey)
	body, e := getRetry(link)
	if e != nil {
		return gjson.Result{}, e
	}
	return gjson.ParseBytes(body), nil
}

//quoteToBar synthesizes today's bar from the quote payload
//{c,d,dp,o,h,l,pc}.
func quoteToBar(symbol string, q gjson.Result) *model.PriceBar {
	return &model.PriceBar{
		Date:      time.Now().Format(global.DateFormat),
		Code:      symbol,
		Open:      q.Get("o").Float(),
		High:      q.Get("h").Float(),
		Low:       q.Get("l").Float(),
		Close:     q.Get("c").Float(),
		Change:    q.Get("d").Float(),
		PctChange: q.Get("dp").Float(),
	}
}

func (f *FinnHubFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	q, e := f.get("/quote", "symbol="+strings.ToUpper(symbol))
	if e != nil {
		log.Warnf("finnhub quote fetch failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	if q.Get("c").Float() == 0 {
		log.Warnf("finnhub has no quote for %s", symbol)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	return &model.Bars{
		Code:      symbol,
		PriceType: model.PriceTypeRaw,
		Rows:      []*model.PriceBar{quoteToBar(symbol, q)},
	}, nil
}

func (f *FinnHubFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	p, e := f.get("/stock/profile2", "symbol="+strings.ToUpper(symbol))
	if e != nil {
		return nil, e
	}
	name := p.Get("name").String()
	if name == "" {
		return nil, errors.Errorf("finnhub has no profile for %s", symbol)
	}
	return &model.StockInfo{
		Symbol:   strings.ToUpper(symbol),
		Name:     name,
		Industry: p.Get("finnhubIndustry").String(),
		Area:     p.Get("country").String(),
		Exchange: p.Get("exchange").String(),
		Currency: p.Get("currency").String(),
		ListDate: p.Get("ipo").String(),
		Source:   model.FinnHub,
	}, nil
}

//earnings returns the recent quarterly EPS surprises as a text block.
func (f *FinnHubFetcher) earnings(symbol string) (string, error) {
	r, e := f.get("/stock/earnings", "symbol="+strings.ToUpper(symbol))
	if e != nil {
		return "", e
	}
	rows := r.Array()
	if len(rows) == 0 {
		return "", errors.Errorf("finnhub has no earnings for %s", symbol)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s 盈利歷史:\n", strings.ToUpper(symbol))
	for _, row := range rows {
		fmt.Fprintf(&b, "   %s: 實際EPS %.2f / 預期 %.2f\n",
			row.Get("period").String(), row.Get("actual").Float(), row.Get("estimate").Float())
	}
	return b.String(), nil
}
