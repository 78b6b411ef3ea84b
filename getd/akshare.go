package getd

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
	"github.com/ssgreg/repeat"
	"github.com/tidwall/gjson"
)

const (
	emKlineURL  = "http://push2his.eastmoney.com/api/qt/stock/kline/get"
	emQuoteURL  = "http://push2.eastmoney.com/api/qt/stock/get"
	emFinURL    = "https://datacenter.eastmoney.com/securities/api/data/get"
	emSearchURL = "https://search-api-web.eastmoney.com/search/jsonp"
)

//EM kline rows arrive positionally; headers are reconstructed in Chinese and
//then translated so the generic normalizer handles the rest.
var emKlineCols = []string{"日期", "開盘", "收盘", "最高", "最低", "成交量", "成交額", "振幅", "涨跌幅", "涨跌額", "換手率"}

var cnHeaderRenames = map[string]string{
	"日期":  "date",
	"開盘":  "open",
	"收盘":  "close",
	"最高":  "high",
	"最低":  "low",
	"成交量": "volume",
	"成交額": "amount",
	"涨跌幅": "pct_change",
	"涨跌額": "change",
}

//AKShareFetcher serves CN-A and HK data from the tokenless Eastmoney quote
//endpoints. Always healthy; reachability problems surface per call.
type AKShareFetcher struct{}

var (
	akInstance *AKShareFetcher
	akOnce     sync.Once
)

func akShare() *AKShareFetcher {
	akOnce.Do(func() {
		akInstance = &AKShareFetcher{}
	})
	return akInstance
}

func (f *AKShareFetcher) source() model.DataSource {
	return model.AKShare
}

func (f *AKShareFetcher) healthy() bool {
	return true
}

//emSecID resolves the Eastmoney market-prefixed security id.
func emSecID(symbol string) string {
	if market.IsHKStock(symbol) {
		code := strings.TrimSuffix(market.NormalizeHKTicker(symbol), ".HK")
		for len(code) < 5 {
			code = "0" + code
		}
		return "116." + code
	}
	code := bareCode(symbol)
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

//getRetry wraps the shared HTTP getter in the standard retry policy.
func getRetry(link string) ([]byte, error) {
	var body []byte
	op := func(error) error {
		var e error
		body, e = util.HTTPGetBody(link, nil)
		return e
	}
	if e := repeat.Repeat(
		repeat.FnHintTemporary(op),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(conf.Args.DefaultRetry),
	); e != nil {
		return nil, errors.Wrapf(e, "GET %s failed", link)
	}
	return body, nil
}

//TranslateCNHeaders renames Chinese provider headers onto canonical names.
func TranslateCNHeaders(f *model.Frame) *model.Frame {
	for cn, canonical := range cnHeaderRenames {
		f.Rename(cn, canonical)
	}
	return f
}

func emKlineFrame(body []byte) *model.Frame {
	f := model.NewFrame(emKlineCols...)
	for _, line := range gjson.GetBytes(body, "data.klines").Array() {
		cells := strings.Split(line.String(), ",")
		if len(cells) < len(emKlineCols) {
			pad := make([]string, len(emKlineCols)-len(cells))
			cells = append(cells, pad...)
		}
		f.Append(cells[:len(emKlineCols)]...)
	}
	return f
}

func (f *AKShareFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	if start == "" || end == "" {
		start, end = util.DefaultDateRange(365)
	}
	link := fmt.Sprintf("%s?secid=%s&klt=101&fqt=1&beg=%s&end=%s"+
		"&fields1=f1,f2,f3,f4,f5,f6&fields2=f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61",
		emKlineURL, emSecID(symbol), util.CompactDate(start), util.CompactDate(end))
	body, e := getRetry(link)
	if e != nil {
		log.Warnf("akshare kline fetch failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	frame := StandardizeFrame(TranslateCNHeaders(emKlineFrame(body)))
	bars := BarsFromFrame(frame, symbol)
	if bars.Empty() {
		log.Warnf("akshare returned no rows for %s [%s, %s]", symbol, start, end)
		return bars, nil
	}
	//fqt=1 serves forward-adjusted prices already
	bars.PriceType = model.PriceTypeForwardAdjusted
	for _, r := range bars.Rows {
		r.OpenRaw, r.HighRaw, r.LowRaw, r.CloseRaw = r.Open, r.High, r.Low, r.Close
	}
	return bars, nil
}

//stockInfo reads the individual-info endpoint: f57 code, f58 name, f127
//industry.
func (f *AKShareFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	link := fmt.Sprintf("%s?secid=%s&fields=f57,f58,f127,f128", emQuoteURL, emSecID(symbol))
	body, e := getRetry(link)
	if e != nil {
		return nil, e
	}
	data := gjson.GetBytes(body, "data")
	name := data.Get("f58").String()
	if name == "" {
		return nil, errors.Errorf("akshare has no record for %s", symbol)
	}
	return &model.StockInfo{
		Symbol:   symbol,
		Name:     name,
		Industry: data.Get("f127").String(),
		Area:     data.Get("f128").String(),
		Source:   model.AKShare,
	}, nil
}

//main indicator field -> Chinese indicator name as published in the wide table
var emIndicatorNames = map[string]string{
	"EPSJB": "每股收益",
	"BPS":   "每股淨資產",
	"ROEJQ": "淨資產收益率",
	"XSMLL": "毛利率",
	"XSJLL": "淨利率",
	"ZCFZL": "資產負債率",
	"LD":    "流動比率",
	"SD":    "速動比率",
}

//PivotMainIndicators flattens the latest report period of the long-form main
//indicator payload into indicator-name keyed values.
func PivotMainIndicators(body []byte) map[string]string {
	latest := gjson.GetBytes(body, "result.data.0")
	if !latest.Exists() {
		return nil
	}
	out := make(map[string]string)
	for field, name := range emIndicatorNames {
		if v := latest.Get(field); v.Exists() && v.String() != "" {
			out[name] = v.String()
		}
	}
	return out
}

//financialData retrieves the latest main-indicator row; statements proper are
//Tushare territory.
func (f *AKShareFetcher) financialData(symbol string) (*model.FinancialStatements, error) {
	secu := tushareCode(symbol)
	link := fmt.Sprintf("%s?type=RPT_F10_FINANCE_MAINFINADATA&sty=APP_F10_MAINFINADATA"+
		"&filter=(SECUCODE=%%22%s%%22)&p=1&ps=1&sr=-1&st=REPORT_DATE", emFinURL, secu)
	body, e := getRetry(link)
	if e != nil {
		return nil, e
	}
	indicators := PivotMainIndicators(body)
	if len(indicators) == 0 {
		return nil, errors.Errorf("akshare has no main indicators for %s", symbol)
	}
	return &model.FinancialStatements{MainIndicators: indicators}, nil
}

//stockNews pulls recent headlines from the Eastmoney article search.
func (f *AKShareFetcher) stockNews(symbol string, limit int) (string, error) {
	if limit <= 0 {
		limit = 10
	}
	param := fmt.Sprintf(`{"uid":"","keyword":"%s","type":["cmsArticleWebOld"],`+
		`"client":"web","clientVersion":"curr","clientType":"web","param":{"cmsArticleWebOld":`+
		`{"searchScope":"default","sort":"default","pageIndex":1,"pageSize":%d}}}`, symbol, limit)
	link := emSearchURL + "?cb=&param=" + url.QueryEscape(param)
	body, e := getRetry(link)
	if e != nil {
		return "", e
	}
	//strip the jsonp shell when present
	s := strings.TrimSpace(string(body))
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = strings.TrimSuffix(s[i:], ")")
	}
	articles := gjson.Get(s, "result.cmsArticleWebOld").Array()
	if len(articles) == 0 {
		return "", errors.Errorf("no news found for %s", symbol)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📰 %s 相關新聞（共%d條）:\n\n", symbol, len(articles))
	for i, a := range articles {
		title := strings.NewReplacer("<em>", "", "</em>", "").Replace(a.Get("title").String())
		fmt.Fprintf(&b, "%d. %s\n   日期: %s\n", i+1, title, a.Get("date").String())
	}
	return b.String(), nil
}
