package getd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/cache"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

//fakeFetcher scripts one provider for manager tests.
type fakeFetcher struct {
	src       model.DataSource
	unhealthy bool
	bars      *model.Bars
	info      *model.StockInfo
	fin       *model.FinancialStatements
	matches   *model.Frame
	earnText  string
	dataCalls int
}

func (f *fakeFetcher) source() model.DataSource { return f.src }
func (f *fakeFetcher) healthy() bool            { return !f.unhealthy }

func (f *fakeFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	f.dataCalls++
	if f.bars == nil {
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	return f.bars, nil
}

func (f *fakeFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	if f.info == nil {
		return &model.StockInfo{Symbol: symbol, Name: model.PlaceholderName(symbol)}, nil
	}
	return f.info, nil
}

func (f *fakeFetcher) financialData(symbol string) (*model.FinancialStatements, error) {
	if f.fin == nil || f.fin.Empty() {
		return nil, os.ErrNotExist
	}
	return f.fin, nil
}

func (f *fakeFetcher) searchStocks(keyword string) (*model.Frame, error) {
	if f.matches == nil {
		return nil, os.ErrNotExist
	}
	return f.matches, nil
}

func (f *fakeFetcher) earnings(symbol string) (string, error) {
	if f.earnText == "" {
		return "", os.ErrNotExist
	}
	return f.earnText, nil
}

func cnBars(code string) *model.Bars {
	return &model.Bars{
		Code:      code,
		PriceType: model.PriceTypeRaw,
		Rows: []*model.PriceBar{
			{Date: "2025-07-21", Code: code, Open: 10.0, High: 10.5, Low: 9.8, Close: 10.2, Volume: 120000, Amount: 1224000, PctChange: 2.0},
			{Date: "2025-07-22", Code: code, Open: 10.2, High: 10.8, Low: 10.1, Close: 10.6, Volume: 98000, Amount: 1038800, PctChange: 3.92, Change: 0.4},
		},
	}
}

func testManager(t *testing.T, fetchers ...*fakeFetcher) (*DataSourceManager, *cache.Cache) {
	t.Helper()
	store := cache.New(t.TempDir())
	fm := make(map[model.DataSource]dataFetcher)
	for _, f := range fetchers {
		fm[f.src] = f
	}
	return newManager(fm, store), store
}

func TestManagerReportFormat(t *testing.T) {
	ak := &fakeFetcher{
		src:  model.AKShare,
		bars: cnBars("000001"),
		info: &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.AKShare},
	}
	m, _ := testManager(t, ak)

	text := m.GetStockData("000001", "2025-07-20", "2025-07-26")
	if !strings.HasPrefix(text, "📊 平安銀行(000001) - AKShare數據") {
		t.Fatalf("report header wrong:\n%s", text)
	}
	for _, want := range []string{
		"數據期間: 2025-07-20 至 2025-07-26",
		"數據條數: 2條",
		"💰 最新價格: ¥10.60",
		"📈 涨跌額: +0.40 (+3.92%)",
		"最高價: ¥10.80",
		"最低價: ¥9.80",
		"成交量: 218000股",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestManagerFallbackCascade(t *testing.T) {
	ak := &fakeFetcher{src: model.AKShare} //empty series
	tu := &fakeFetcher{
		src:  model.Tushare,
		bars: cnBars("000001"),
		info: &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.Tushare},
	}
	bs := &fakeFetcher{src: model.BaoStock}
	m, store := testManager(t, ak, tu, bs)

	text := m.GetStockData("000001", "2025-07-20", "2025-07-26")
	if !strings.Contains(text, "Tushare數據") {
		t.Fatalf("fallback did not reach tushare:\n%s", text)
	}
	if ak.dataCalls != 1 || tu.dataCalls != 1 || bs.dataCalls != 0 {
		t.Errorf("cascade order wrong: ak=%d tu=%d bs=%d", ak.dataCalls, tu.dataCalls, bs.dataCalls)
	}
	//successful fetch is cached
	if key := store.FindCachedStockData("000001", "2025-07-20", "2025-07-26", model.Tushare, 6); key == "" {
		t.Errorf("fallback result was not cached")
	}
}

func TestManagerServesCacheBeforeFetch(t *testing.T) {
	ak := &fakeFetcher{
		src:  model.AKShare,
		bars: cnBars("000001"),
		info: &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.AKShare},
	}
	m, store := testManager(t, ak)
	if _, e := store.SaveStockData("000001", cnBars("000001"), "2025-07-20", "2025-07-26", model.AKShare); e != nil {
		t.Fatal(e)
	}
	text := m.GetStockData("000001", "2025-07-20", "2025-07-26")
	if ak.dataCalls != 0 {
		t.Errorf("manager fetched despite a fresh cache entry")
	}
	if !strings.Contains(text, "數據條數: 2條") {
		t.Errorf("cached report malformed:\n%s", text)
	}
}

//writeAgedEntry plants an expired cache record through the public metadata
//layout so a fresh cache instance will index it.
func writeAgedEntry(t *testing.T, dir, symbol string, bars *model.Bars, age time.Duration) {
	t.Helper()
	store := cache.New(dir)
	key, e := store.SaveStockData(symbol, bars, "2025-07-20", "2025-07-26", model.AKShare)
	if e != nil {
		t.Fatal(e)
	}
	metaPath := filepath.Join(dir, "metadata", key+"_meta.json")
	body, e := os.ReadFile(metaPath)
	if e != nil {
		t.Fatal(e)
	}
	var entry cache.Entry
	if e := json.Unmarshal(body, &entry); e != nil {
		t.Fatal(e)
	}
	entry.CachedAt = time.Now().Add(-age)
	body, _ = json.MarshalIndent(entry, "", "  ")
	if e := os.WriteFile(metaPath, body, 0644); e != nil {
		t.Fatal(e)
	}
}

func TestManagerExhaustion(t *testing.T) {
	ak := &fakeFetcher{src: model.AKShare}
	tu := &fakeFetcher{src: model.Tushare}
	bs := &fakeFetcher{src: model.BaoStock}
	m, _ := testManager(t, ak, tu, bs)

	text := m.GetStockData("000001", "2025-07-20", "2025-07-26")
	if !strings.HasPrefix(text, "❌ 所有數據源都無法獲取000001的數據") {
		t.Fatalf("exhaustion header wrong:\n%s", text)
	}
	if !strings.Contains(text, "模擬數據（仅供演示）") {
		t.Errorf("demo block missing:\n%s", text)
	}
}

func TestManagerStaleCacheOnExhaustion(t *testing.T) {
	dir := t.TempDir()
	writeAgedEntry(t, dir, "000001", cnBars("000001"), 48*time.Hour)

	ak := &fakeFetcher{src: model.AKShare, info: &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.AKShare}}
	fm := map[model.DataSource]dataFetcher{model.AKShare: ak}
	m := newManager(fm, cache.New(dir))

	text := m.GetStockData("000001", "2025-07-20", "2025-07-26")
	if !strings.Contains(text, "⚠️ 使用的是過期緩存數據") {
		t.Fatalf("stale marker missing:\n%s", text)
	}
	if !strings.Contains(text, "數據條數: 2條") {
		t.Errorf("stale report lost the series:\n%s", text)
	}
}

func TestGetStockInfoPlaceholderFallback(t *testing.T) {
	ak := &fakeFetcher{src: model.AKShare} //placeholder name only
	m, _ := testManager(t, ak)
	info := m.GetStockInfo("000001")
	if info.Name != model.PlaceholderName("000001") || info.Source != model.Unknown {
		t.Errorf("expected placeholder record, got %s", info)
	}

	tu := &fakeFetcher{src: model.Tushare, info: &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.Tushare}}
	m2, _ := testManager(t, ak, tu)
	if got := m2.GetStockInfo("000001"); got.Name != "平安銀行" {
		t.Errorf("placeholder should cascade to the next provider, got %s", got)
	}
}

func TestSwitchSource(t *testing.T) {
	ak := &fakeFetcher{src: model.AKShare}
	tu := &fakeFetcher{src: model.Tushare}
	m, _ := testManager(t, ak, tu)

	if m.CurrentSource() != model.AKShare {
		t.Fatalf("default source wrong: %s", m.CurrentSource())
	}
	if e := m.SwitchSource("tushare"); e != nil {
		t.Fatalf("switch to tushare failed: %+v", e)
	}
	if m.CurrentSource() != model.Tushare {
		t.Errorf("switch not applied")
	}
	if e := m.SwitchSource("bloomberg"); e == nil {
		t.Errorf("switch to unknown source must fail")
	}
	//current source leads the CN route order after a switch
	order := m.routeOrder(marketInfoCN())
	if order[0] != model.Tushare {
		t.Errorf("route order ignores current source: %v", order)
	}
}

func marketInfoCN() model.MarketInfo {
	return model.MarketInfo{Market: model.MarketCN, IsCNA: true}
}

func TestManagerUnhealthySkipped(t *testing.T) {
	tu := &fakeFetcher{src: model.Tushare, unhealthy: true}
	bs := &fakeFetcher{
		src:  model.BaoStock,
		bars: cnBars("600036"),
		info: &model.StockInfo{Symbol: "600036", Name: "招商銀行", Source: model.BaoStock},
	}
	m, _ := testManager(t, tu, bs)
	if len(m.AvailableSources()) != 1 || m.AvailableSources()[0] != model.BaoStock {
		t.Fatalf("availability probe wrong: %v", m.AvailableSources())
	}
	text := m.GetStockData("600036", "2025-07-20", "2025-07-26")
	if tu.dataCalls != 0 {
		t.Errorf("unhealthy adapter was invoked")
	}
	if !strings.Contains(text, "BaoStock數據") {
		t.Errorf("healthy adapter not used:\n%s", text)
	}
}

func TestGetStockInfoBackfillsMarketFields(t *testing.T) {
	ak := &fakeFetcher{
		src:  model.AKShare,
		info: &model.StockInfo{Symbol: "0700.HK", Name: "腾讯控股", Source: model.AKShare},
	}
	m, _ := testManager(t, ak)

	info := m.GetStockInfo("0700.HK")
	if info.Currency != "HKD" {
		t.Errorf("currency = %q, want HKD", info.Currency)
	}
	if info.Exchange != "HKG" {
		t.Errorf("exchange = %q, want HKG", info.Exchange)
	}

	//placeholder fallback carries the same market fields
	m2, _ := testManager(t)
	ph := m2.GetStockInfo("600036")
	if ph.Currency != "CNY" || ph.Exchange != "SSE" {
		t.Errorf("placeholder record missing market fields: %s", ph)
	}

	//provider-supplied values are never overwritten
	fh := &fakeFetcher{
		src:  model.FinnHub,
		info: &model.StockInfo{Symbol: "AAPL", Name: "Apple Inc", Currency: "USD", Exchange: "NASDAQ", Source: model.FinnHub},
	}
	m3, _ := testManager(t, fh)
	if got := m3.GetStockInfo("AAPL"); got.Exchange != "NASDAQ" {
		t.Errorf("backfill clobbered provider exchange: %s", got)
	}
}

func TestManagerSearch(t *testing.T) {
	frame := model.NewFrame("ts_code", "name", "industry")
	frame.Append("600036.SH", "招商銀行", "銀行")
	tu := &fakeFetcher{src: model.Tushare, matches: frame}
	ak := &fakeFetcher{src: model.AKShare} //no matches
	m, _ := testManager(t, ak, tu)

	got, e := m.SearchStocks("招商")
	if e != nil {
		t.Fatalf("search failed: %+v", e)
	}
	if got.Len() != 1 || got.Cell("name", 0) != "招商銀行" {
		t.Errorf("search result wrong: %v", got)
	}

	m2, _ := testManager(t, ak)
	if _, e := m2.SearchStocks("nothing"); e == nil {
		t.Errorf("search with no provider match must fail")
	}
}

func TestUSReportAppendsEarnings(t *testing.T) {
	fh := &fakeFetcher{
		src:      model.FinnHub,
		bars:     cnBars("AAPL"),
		info:     &model.StockInfo{Symbol: "AAPL", Name: "Apple Inc", Source: model.FinnHub},
		earnText: "📈 AAPL 盈利歷史:\n   2025-06-30: 實際EPS 1.40 / 預期 1.35",
	}
	m, _ := testManager(t, fh)

	text := m.GetStockData("AAPL", "2025-07-20", "2025-07-26")
	if !strings.Contains(text, "盈利歷史") {
		t.Errorf("earnings block missing from US report:\n%s", text)
	}

	//CN reports never carry the earnings block
	ak := &fakeFetcher{
		src:      model.AKShare,
		bars:     cnBars("000001"),
		info:     &model.StockInfo{Symbol: "000001", Name: "平安銀行", Source: model.AKShare},
		earnText: "📈 盈利歷史",
	}
	m2, _ := testManager(t, ak)
	if text := m2.GetStockData("000001", "2025-07-20", "2025-07-26"); strings.Contains(text, "盈利歷史") {
		t.Errorf("earnings block leaked into CN report:\n%s", text)
	}
}
