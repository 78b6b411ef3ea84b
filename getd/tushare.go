package getd

import (
	"strings"
	"sync"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
	"github.com/ssgreg/repeat"
	"github.com/tidwall/gjson"
)

//TushareFetcher fetches China A-share data from the Tushare Pro HTTP API.
//All calls are token gated; without TUSHARE_TOKEN the adapter reports
//unhealthy and the manager routes around it.
type TushareFetcher struct {
	token string
	url   string
}

var (
	tsInstance *TushareFetcher
	tsOnce     sync.Once
)

func tuShare() *TushareFetcher {
	tsOnce.Do(func() {
		tsInstance = &TushareFetcher{
			token: conf.Args.DataSource.TushareToken,
			url:   conf.Args.DataSource.TushareAPIURL,
		}
		if tsInstance.token == "" {
			log.Warn("TUSHARE_TOKEN not configured, tushare adapter disabled")
		}
	})
	return tsInstance
}

func (f *TushareFetcher) source() model.DataSource {
	return model.Tushare
}

func (f *TushareFetcher) healthy() bool {
	return f.token != ""
}

//tushareCode maps a bare symbol onto Tushare's dotted code. Codes already
//carrying a dot pass through; sh./sz. prefixes are stripped first.
func tushareCode(symbol string) string {
	s := strings.ToLower(symbol)
	s = strings.TrimPrefix(s, "sh.")
	s = strings.TrimPrefix(s, "sz.")
	s = strings.ToUpper(s)
	if strings.Contains(s, ".") {
		return s
	}
	if len(s) != 6 {
		return s
	}
	switch s[0] {
	case '6':
		return s + ".SH"
	case '0', '3':
		return s + ".SZ"
	case '8', '4':
		return s + ".BJ"
	}
	return s
}

//call invokes one Tushare api_name with retry on transient transport errors.
func (f *TushareFetcher) call(apiName string, params map[string]string, fields string) (gjson.Result, error) {
	if !f.healthy() {
		return gjson.Result{}, errors.New("tushare token not configured")
	}
	payload := map[string]interface{}{
		"api_name": apiName,
		"token":    f.token,
		"params":   params,
		"fields":   fields,
	}
	var body []byte
	op := func(error) error {
		var e error
		body, e = util.HTTPPostJSON(f.url, payload)
		return e
	}
	if e := repeat.Repeat(
		repeat.FnHintTemporary(op),
		repeat.StopOnSuccess(),
		repeat.LimitMaxTries(conf.Args.DefaultRetry),
	); e != nil {
		return gjson.Result{}, errors.Wrapf(e, "tushare %s call failed", apiName)
	}
	r := gjson.ParseBytes(body)
	if r.Get("code").Int() != 0 {
		return gjson.Result{}, errors.Errorf("tushare %s rejected: %s", apiName, r.Get("msg").String())
	}
	return r.Get("data"), nil
}

//frameFromTushare rebuilds a frame from the columnar {fields, items} payload.
func frameFromTushare(data gjson.Result) *model.Frame {
	var cols []string
	for _, c := range data.Get("fields").Array() {
		cols = append(cols, c.String())
	}
	f := model.NewFrame(cols...)
	for _, item := range data.Get("items").Array() {
		row := make([]string, 0, len(cols))
		for _, cell := range item.Array() {
			row = append(row, cell.String())
		}
		f.Append(row...)
	}
	return f
}

func (f *TushareFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	code := tushareCode(symbol)
	if start == "" || end == "" {
		start, end = util.DefaultDateRange(365)
	}
	data, e := f.call("daily", map[string]string{
		"ts_code":    code,
		"start_date": util.CompactDate(start),
		"end_date":   util.CompactDate(end),
	}, "ts_code,trade_date,open,high,low,close,vol,amount,pct_chg")
	if e != nil {
		log.Warnf("tushare daily fetch failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	frame := StandardizeFrame(frameFromTushare(data))
	bars := BarsFromFrame(frame, bareCode(code))
	if bars.Empty() {
		log.Warnf("tushare returned no rows for %s [%s, %s]", symbol, start, end)
		return bars, nil
	}
	//daily endpoint serves un-adjusted prices, rebuild a continuous series
	return ForwardAdjust(bars), nil
}

func (f *TushareFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	code := tushareCode(symbol)
	data, e := f.call("stock_basic", map[string]string{
		"ts_code": code,
	}, "ts_code,symbol,name,area,industry,market,list_date")
	if e != nil {
		return nil, e
	}
	frame := frameFromTushare(data)
	if frame.Empty() {
		return nil, errors.Errorf("tushare has no basic record for %s", symbol)
	}
	return &model.StockInfo{
		Symbol:   frame.Cell("symbol", 0),
		Name:     frame.Cell("name", 0),
		Industry: frame.Cell("industry", 0),
		Area:     frame.Cell("area", 0),
		Market:   frame.Cell("market", 0),
		ListDate: util.CanonicalDate(frame.Cell("list_date", 0)),
		Source:   model.Tushare,
	}, nil
}

//statement api_name -> fields of interest
var tsStatements = []struct {
	api    string
	fields string
	into   func(*model.FinancialStatements) *map[string]float64
}{
	{"balancesheet", "total_assets,total_liab,total_hldr_eqy_exc_min_int,total_cur_assets,total_cur_liab,money_cap,inventories",
		func(s *model.FinancialStatements) *map[string]float64 { return &s.BalanceSheet }},
	{"income", "total_revenue,revenue,operate_profit,total_profit,n_income,basic_eps",
		func(s *model.FinancialStatements) *map[string]float64 { return &s.IncomeStatement }},
	{"cashflow", "n_cashflow_act,n_cashflow_inv_act,n_cash_flows_fnc_act,c_cash_equ_end_period",
		func(s *model.FinancialStatements) *map[string]float64 { return &s.CashFlow }},
}

//financialData fetches the three statements independently; a failure on one
//statement never discards the others.
func (f *TushareFetcher) financialData(symbol string) (*model.FinancialStatements, error) {
	code := tushareCode(symbol)
	out := &model.FinancialStatements{}
	for _, st := range tsStatements {
		data, e := f.call(st.api, map[string]string{"ts_code": code}, st.fields)
		if e != nil {
			log.Warnf("tushare %s fetch failed for %s: %+v", st.api, symbol, e)
			continue
		}
		frame := frameFromTushare(data)
		if frame.Empty() {
			continue
		}
		m := make(map[string]float64)
		for _, col := range frame.Cols() {
			if vals := frame.Floats(col); len(vals) > 0 {
				m[col] = vals[0]
			}
		}
		*st.into(out) = m
	}
	if out.Empty() {
		return nil, errors.Errorf("no financial statements available for %s", symbol)
	}
	return out, nil
}

//searchStocks filters the stock_basic universe by keyword against name,
//symbol and industry.
func (f *TushareFetcher) searchStocks(keyword string) (*model.Frame, error) {
	data, e := f.call("stock_basic", map[string]string{
		"list_status": "L",
	}, "ts_code,symbol,name,area,industry,list_date")
	if e != nil {
		return nil, e
	}
	universe := frameFromTushare(data)
	out := model.NewFrame(universe.Cols()...)
	kw := strings.ToLower(keyword)
	for i := 0; i < universe.Len(); i++ {
		if strings.Contains(strings.ToLower(universe.Cell("name", i)), kw) ||
			strings.Contains(universe.Cell("symbol", i), keyword) ||
			strings.Contains(strings.ToLower(universe.Cell("industry", i)), kw) {
			row := make([]string, 0, len(universe.Cols()))
			for _, c := range universe.Cols() {
				row = append(row, universe.Cell(c, i))
			}
			out.Append(row...)
		}
	}
	log.Infof("tushare search %q matched %d of %d", keyword, out.Len(), universe.Len())
	return out, nil
}

