package getd

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/aiinpocket/TradingAgents-CN-sub001/cache"
	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

//per-market provider priority
var (
	cnOrder = []model.DataSource{model.AKShare, model.Tushare, model.BaoStock}
	hkOrder = []model.DataSource{model.AKShare, model.YFinance}
	usOrder = []model.DataSource{model.FinnHub, model.YFinance}
)

var sourceLabels = map[model.DataSource]string{
	model.Tushare:  "Tushare",
	model.AKShare:  "AKShare",
	model.BaoStock: "BaoStock",
	model.FinnHub:  "FinnHub",
	model.YFinance: "Yahoo Finance",
	model.Unknown:  "緩存",
}

//DataSourceManager routes each request to a provider, consults the cache,
//orchestrates the fallback cascade and renders the textual report consumed by
//downstream agents.
type DataSourceManager struct {
	mu        sync.RWMutex
	current   model.DataSource
	available []model.DataSource
	fetchers  map[model.DataSource]dataFetcher
	store     *cache.Cache
}

var (
	mgrInstance *DataSourceManager
	mgrOnce     sync.Once
)

//Manager returns the process-wide manager bound to the registered adapters.
func Manager() *DataSourceManager {
	mgrOnce.Do(func() {
		fmLock.Lock()
		fetchers := make(map[model.DataSource]dataFetcher, len(fmap))
		for k, v := range fmap {
			fetchers[k] = v
		}
		fmLock.Unlock()
		mgrInstance = newManager(fetchers, cache.Get())
	})
	return mgrInstance
}

//newManager probes the given adapters and intersects the configured default
//CN source with actual availability.
func newManager(fetchers map[model.DataSource]dataFetcher, store *cache.Cache) *DataSourceManager {
	m := &DataSourceManager{
		fetchers: fetchers,
		store:    store,
	}
	for _, src := range cnOrder {
		if f, ok := fetchers[src]; ok && f.healthy() {
			m.available = append(m.available, src)
		}
	}
	configured := model.DataSource(conf.Args.DataSource.DefaultChinaSource)
	for _, src := range m.available {
		if src == configured {
			m.current = src
			break
		}
	}
	if m.current == "" && len(m.available) > 0 {
		m.current = m.available[0]
		if configured != m.current {
			log.Warnf("configured china source %s unavailable, using %s", configured, m.current)
		}
	}
	log.Infof("data source manager ready: current=%s available=%v", m.current, m.available)
	return m
}

//CurrentSource returns the active CN provider.
func (m *DataSourceManager) CurrentSource() model.DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

//AvailableSources lists the healthy CN providers in priority order.
func (m *DataSourceManager) AvailableSources() []model.DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DataSource, len(m.available))
	copy(out, m.available)
	return out
}

//SwitchSource changes the active CN provider after validating availability.
func (m *DataSourceManager) SwitchSource(name string) error {
	src := model.DataSource(strings.ToLower(strings.TrimSpace(name)))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.available {
		if s == src {
			m.current = src
			log.Infof("china data source switched to %s", src)
			return nil
		}
	}
	return errors.Errorf("data source %q is not available, candidates: %v", name, m.available)
}

//routeOrder resolves the fallback order for a market, with the CN list
//rotated so the currently selected source leads.
func (m *DataSourceManager) routeOrder(mi model.MarketInfo) []model.DataSource {
	switch {
	case mi.IsCNA:
		cur := m.CurrentSource()
		order := []model.DataSource{}
		if cur != "" {
			order = append(order, cur)
		}
		for _, s := range cnOrder {
			if s != cur {
				order = append(order, s)
			}
		}
		return order
	case mi.IsHK:
		return hkOrder
	default:
		return usOrder
	}
}

//GetStockData returns the Chinese textual report for the requested window,
//drawing from cache, the routed provider and the fallback cascade in that
//order. It never returns an error; failures render as a ❌ report.
func (m *DataSourceManager) GetStockData(symbol, start, end string) string {
	mi := market.Classify(symbol)
	order := m.routeOrder(mi)

	if key := m.store.FindCachedStockData(symbol, start, end, "", 0); key != "" {
		if text := m.reportFromCache(key, symbol, start, end, mi, false); text != "" {
			log.Infof("serving %s from cache (%s)", symbol, key)
			return text
		}
	}

	var tried []string
	for _, src := range order {
		f, ok := m.fetchers[src]
		if !ok || !f.healthy() {
			continue
		}
		tried = append(tried, sourceLabels[src])
		bars, e := f.stockData(symbol, start, end)
		if e != nil {
			log.Warnf("%s fetch failed for %s: %+v", src, symbol, e)
			continue
		}
		if bars.Empty() {
			log.Warnf("%s returned empty series for %s, falling back", src, symbol)
			continue
		}
		if _, e := m.store.SaveStockData(symbol, bars, start, end, src); e != nil {
			log.Warnf("failed to cache %s series: %+v", symbol, e)
		}
		text := m.renderReport(symbol, bars, src, start, end, mi)
		if strings.Contains(text, "❌") {
			continue
		}
		return text + m.earningsBlock(symbol, mi)
	}

	//all live providers failed, try any stale entry before giving up
	if key := m.store.FindStaleStockData(symbol, ""); key != "" {
		if text := m.reportFromCache(key, symbol, start, end, mi, true); text != "" {
			log.Warnf("serving stale cache for %s (%s)", symbol, key)
			return text
		}
	}
	return m.exhaustionReport(symbol, start, end, mi, tried)
}

func (m *DataSourceManager) reportFromCache(key, symbol, start, end string, mi model.MarketInfo, stale bool) string {
	bars, text, e := m.store.LoadStockData(key)
	if e != nil {
		log.Warnf("cache load failed for %s: %+v", key, e)
		return ""
	}
	src := m.store.EntrySource(key)
	switch {
	case !bars.Empty():
		text = m.renderReport(symbol, bars, src, start, end, mi) + m.earningsBlock(symbol, mi)
	case text == "":
		return ""
	}
	if stale {
		text += "\n\n⚠️ 使用的是過期緩存數據"
	}
	return text
}

//earningsBlock appends the recent earnings history for US symbols when an
//adapter exposes one. Absence is not an error.
func (m *DataSourceManager) earningsBlock(symbol string, mi model.MarketInfo) string {
	if !mi.IsUS {
		return ""
	}
	for _, src := range usOrder {
		f, ok := m.fetchers[src]
		if !ok || !f.healthy() {
			continue
		}
		ef, ok := f.(earningsFetcher)
		if !ok {
			continue
		}
		text, e := ef.earnings(symbol)
		if e != nil {
			log.Debugf("%s earnings fetch failed for %s: %+v", src, symbol, e)
			continue
		}
		if text != "" {
			return "\n" + text
		}
	}
	return ""
}

//renderReport formats the stable Chinese report contract.
func (m *DataSourceManager) renderReport(symbol string, bars *model.Bars, src model.DataSource, start, end string, mi model.MarketInfo) string {
	if bars.Empty() {
		return fmt.Sprintf("❌ 未能獲取%s的數據", symbol)
	}
	name := m.resolveName(symbol)
	latest := bars.Latest()
	hi, _ := stats.Max(bars.Highs())
	lo, _ := stats.Min(bars.Lows())
	mean, _ := stats.Mean(bars.Closes())
	cur := mi.CurrencySymbol
	label := sourceLabels[src]
	if label == "" {
		label = string(src)
	}
	if start == "" {
		start = bars.Rows[0].Date
	}
	if end == "" {
		end = latest.Date
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s(%s) - %s數據\n", name, symbol, label)
	fmt.Fprintf(&b, "數據期間: %s 至 %s\n", start, end)
	fmt.Fprintf(&b, "數據條數: %d條\n\n", bars.Len())
	fmt.Fprintf(&b, "💰 最新價格: %s%.2f\n", cur, latest.Close)
	fmt.Fprintf(&b, "📈 涨跌額: %+.2f (%+.2f%%)\n\n", latest.Change, latest.PctChange)
	fmt.Fprintf(&b, "📊 價格統計:\n")
	fmt.Fprintf(&b, "   最高價: %s%.2f\n", cur, hi)
	fmt.Fprintf(&b, "   最低價: %s%.2f\n", cur, lo)
	fmt.Fprintf(&b, "   平均價: %s%.2f\n", cur, mean)
	fmt.Fprintf(&b, "   成交量: %.0f股\n", bars.TotalVolume())
	return b.String()
}

func (m *DataSourceManager) resolveName(symbol string) string {
	info := m.GetStockInfo(symbol)
	if info.Valid() {
		return info.Name
	}
	return model.PlaceholderName(symbol)
}

//GetStockInfo cascades over the info capability of the routed providers. A
//placeholder-named result is treated as a miss. Currency and exchange are
//backfilled from the market classification when the provider omits them.
func (m *DataSourceManager) GetStockInfo(symbol string) *model.StockInfo {
	mi := market.Classify(symbol)
	for _, src := range m.routeOrder(mi) {
		f, ok := m.fetchers[src]
		if !ok || !f.healthy() {
			continue
		}
		info, e := f.stockInfo(symbol)
		if e != nil {
			log.Debugf("%s info fetch failed for %s: %+v", src, symbol, e)
			continue
		}
		if info.Valid() {
			return fillMarketFields(info, mi)
		}
	}
	return fillMarketFields(&model.StockInfo{
		Symbol: symbol,
		Name:   model.PlaceholderName(symbol),
		Source: model.Unknown,
	}, mi)
}

func fillMarketFields(info *model.StockInfo, mi model.MarketInfo) *model.StockInfo {
	if info.Currency == "" {
		info.Currency = mi.CurrencyCode
	}
	if info.Exchange == "" {
		info.Exchange = mi.DefaultExchange
	}
	return info
}

//SearchStocks runs a keyword search over the first provider exposing a
//search endpoint and returns the matching identity frame.
func (m *DataSourceManager) SearchStocks(keyword string) (*model.Frame, error) {
	var lastErr error
	for _, src := range append(append([]model.DataSource{}, cnOrder...), usOrder...) {
		f, ok := m.fetchers[src]
		if !ok || !f.healthy() {
			continue
		}
		sf, ok := f.(stockSearcher)
		if !ok {
			continue
		}
		frame, e := sf.searchStocks(keyword)
		if e != nil {
			log.Warnf("%s search failed for %q: %+v", src, keyword, e)
			lastErr = e
			continue
		}
		if !frame.Empty() {
			return frame, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.Errorf("no provider matched %q", keyword)
}

//exhaustionReport renders the structured failure block with a clearly tagged
//synthetic demo series so downstream agents always receive parsable text.
func (m *DataSourceManager) exhaustionReport(symbol, start, end string, mi model.MarketInfo, tried []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ 所有數據源都無法獲取%s的數據\n", symbol)
	fmt.Fprintf(&b, "期間: %s 至 %s\n", start, end)
	if len(tried) > 0 {
		fmt.Fprintf(&b, "已嘗試: %s\n", strings.Join(tried, ", "))
	}
	b.WriteString("建议稍後重試\n\n")
	b.WriteString(demoBlock(symbol, mi))
	return b.String()
}

//demoBlock generates a deterministic synthetic quote for demonstrations;
//the tag is part of the text contract and must never be removed.
func demoBlock(symbol string, mi model.MarketInfo) string {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	base := 10 + float64(h.Sum32()%9000)/100
	var b strings.Builder
	b.WriteString("模擬數據（仅供演示）:\n")
	fmt.Fprintf(&b, "📊 %s 模擬走勢\n", model.PlaceholderName(symbol))
	fmt.Fprintf(&b, "💰 最新價格: %s%.2f\n", mi.CurrencySymbol, base)
	fmt.Fprintf(&b, "📈 涨跌額: %+.2f (%+.2f%%)\n", base*0.012, 1.2)
	return b.String()
}

//GetStockNews serves cached headlines when fresh, otherwise fetches through
//any news-capable adapter and stores the result in the news pool.
func (m *DataSourceManager) GetStockNews(symbol string, limit int) string {
	if key := m.store.FindCachedNews(symbol, "", 0); key != "" {
		if text, e := m.store.LoadNewsData(key); e == nil && text != "" {
			log.Infof("serving %s news from cache (%s)", symbol, key)
			return text
		}
	}
	start, end := "", ""
	for _, src := range []model.DataSource{model.AKShare} {
		f, ok := m.fetchers[src]
		if !ok {
			continue
		}
		nf, ok := f.(newsFetcher)
		if !ok {
			continue
		}
		text, e := nf.stockNews(symbol, limit)
		if e != nil {
			log.Warnf("%s news fetch failed for %s: %+v", src, symbol, e)
			continue
		}
		if _, e := m.store.SaveNewsData(symbol, text, start, end, src); e != nil {
			log.Warnf("failed to cache news for %s: %+v", symbol, e)
		}
		return text
	}
	return fmt.Sprintf("❌ 未能獲取%s的新聞數據", symbol)
}
