package cache

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(t.TempDir())
}

func sampleBars() *model.Bars {
	return &model.Bars{
		Code:      "000001",
		PriceType: model.PriceTypeRaw,
		Rows: []*model.PriceBar{
			{Date: "2025-06-02", Code: "000001", Open: 10.0, High: 10.5, Low: 9.8, Close: 10.2, Volume: 120000, Amount: 1224000},
			{Date: "2025-06-03", Code: "000001", Open: 10.2, High: 10.8, Low: 10.1, Close: 10.6, Volume: 98000, Amount: 1038800},
		},
	}
}

func TestSaveAndLoadStockData(t *testing.T) {
	c := newTestCache(t)
	key, e := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.Tushare)
	if e != nil {
		t.Fatalf("save failed: %+v", e)
	}
	if !strings.HasPrefix(key, "000001_stock_data_") {
		t.Errorf("unexpected key shape: %s", key)
	}
	bars, text, e := c.LoadStockData(key)
	if e != nil {
		t.Fatalf("load failed: %+v", e)
	}
	if text != "" {
		t.Errorf("expected CSV payload, got text")
	}
	if bars == nil || bars.Len() != 2 {
		t.Fatalf("expected 2 bars, got %v", bars)
	}
	if bars.Rows[1].Close != 10.6 {
		t.Errorf("close mismatch: %f", bars.Rows[1].Close)
	}
}

func TestSaveAndLoadStockText(t *testing.T) {
	c := newTestCache(t)
	key, e := c.SaveStockData("AAPL", "# AAPL report", "2025-06-01", "2025-06-03", model.YFinance)
	if e != nil {
		t.Fatalf("save failed: %+v", e)
	}
	bars, text, e := c.LoadStockData(key)
	if e != nil {
		t.Fatalf("load failed: %+v", e)
	}
	if bars != nil {
		t.Errorf("expected text payload, got bars")
	}
	if text != "# AAPL report" {
		t.Errorf("text mismatch: %q", text)
	}
}

func TestKeyStableAcrossEquivalentRequests(t *testing.T) {
	c := newTestCache(t)
	k1, _ := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.Tushare)
	k2, _ := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.Tushare)
	if k1 != k2 {
		t.Errorf("equivalent requests produced different keys: %s vs %s", k1, k2)
	}
	//dates within the same 3-day bucket collide on the same key
	k3, _ := c.SaveStockData("000001", sampleBars(), "2025-06-02", "2025-06-03", model.Tushare)
	if k1 != k3 {
		t.Errorf("same-bucket request produced a different key: %s vs %s", k1, k3)
	}
}

func TestFindCachedStockData(t *testing.T) {
	c := newTestCache(t)
	if got := c.FindCachedStockData("000001", "2025-06-01", "2025-06-03", model.Tushare, 6); got != "" {
		t.Errorf("expected miss on empty cache, got %s", got)
	}
	key, _ := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.Tushare)
	got := c.FindCachedStockData("000001", "2025-06-01", "2025-06-03", model.Tushare, 6)
	if got != key {
		t.Errorf("expected exact hit %s, got %s", key, got)
	}
	//index scan path: different date range, same symbol/source
	got = c.FindCachedStockData("000001", "2025-01-01", "2025-12-31", model.Tushare, 6)
	if got != key {
		t.Errorf("expected scan hit %s, got %s", key, got)
	}
	if got := c.FindCachedStockData("600036", "2025-06-01", "2025-06-03", model.Tushare, 6); got != "" {
		t.Errorf("expected miss for other symbol, got %s", got)
	}
}

func TestIsCacheValidTTL(t *testing.T) {
	c := newTestCache(t)
	key, _ := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.AKShare)
	if !c.IsCacheValid(key, 6, "000001", model.KindStockData) {
		t.Errorf("fresh entry reported invalid")
	}
	c.mu.Lock()
	c.index[key].CachedAt = time.Now().Add(-7 * time.Hour)
	c.mu.Unlock()
	if c.IsCacheValid(key, 6, "000001", model.KindStockData) {
		t.Errorf("expired entry reported valid")
	}
	//stale lookup still surfaces it
	if got := c.FindStaleStockData("000001", ""); got != key {
		t.Errorf("stale lookup failed: got %q", got)
	}
}

func TestFundamentalsRoundTrip(t *testing.T) {
	c := newTestCache(t)
	key, e := c.SaveFundamentalsData("600036", "# 基本面分析報告", model.AKShare)
	if e != nil {
		t.Fatalf("save failed: %+v", e)
	}
	got := c.FindCachedFundamentals("600036", model.AKShare, 12)
	if got != key {
		t.Errorf("expected %s, got %s", key, got)
	}
	report, e := c.LoadFundamentalsData(key)
	if e != nil || report != "# 基本面分析報告" {
		t.Errorf("report mismatch: %q, %v", report, e)
	}
	//any-source scan
	if got := c.FindCachedFundamentals("600036", "", 12); got != key {
		t.Errorf("any-source lookup failed: got %q", got)
	}
}

func TestSkipOversizedContent(t *testing.T) {
	c := newTestCache(t)
	origEnable := conf.Args.Cache.EnableLengthCheck
	origMax := conf.Args.Cache.MaxContentLength
	conf.Args.Cache.EnableLengthCheck = true
	conf.Args.Cache.MaxContentLength = 100
	defer func() {
		conf.Args.Cache.EnableLengthCheck = origEnable
		conf.Args.Cache.MaxContentLength = origMax
	}()
	for _, k := range conf.Args.Cache.LongTextKeys {
		os.Unsetenv(k)
	}

	big := strings.Repeat("a", 200)
	key, e := c.SaveStockData("AAPL", big, "2025-06-01", "2025-06-03", model.YFinance)
	if e != nil {
		t.Fatalf("save failed: %+v", e)
	}
	if key == "" {
		t.Fatalf("expected synthetic key for skipped save")
	}
	if _, text, _ := c.LoadStockData(key); text != "" {
		t.Errorf("skipped save should not be loadable")
	}
	st := c.GetStats()
	if st.SkippedCount < 1 {
		t.Errorf("expected skipped_count >= 1, got %d", st.SkippedCount)
	}
	if st.StockDataCount != 0 {
		t.Errorf("skipped save must not appear in stock data count")
	}
}

func TestClearOldCache(t *testing.T) {
	c := newTestCache(t)
	keep, _ := c.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.Tushare)
	drop, _ := c.SaveNewsData("000001", "舊聞", "2025-01-01", "2025-01-02", model.AKShare)
	c.mu.Lock()
	c.index[drop].CachedAt = time.Now().AddDate(0, 0, -10)
	c.mu.Unlock()

	n := c.ClearOldCache(7)
	if n != 1 {
		t.Errorf("expected 1 cleared, got %d", n)
	}
	if c.loadEntry(drop) != nil {
		t.Errorf("cleared entry still resolvable")
	}
	if c.loadEntry(keep) == nil {
		t.Errorf("fresh entry was swept")
	}
}

func TestIndexRebuiltFromMetadata(t *testing.T) {
	dir := t.TempDir()
	c1 := New(dir)
	key, _ := c1.SaveStockData("000001", sampleBars(), "2025-06-01", "2025-06-03", model.BaoStock)

	c2 := New(dir)
	bars, _, e := c2.LoadStockData(key)
	if e != nil || bars == nil || bars.Len() != 2 {
		t.Fatalf("reload through fresh index failed: %v, %+v", bars, e)
	}
	if got := c2.FindCachedStockData("000001", "2025-06-01", "2025-06-03", model.BaoStock, 6); got != key {
		t.Errorf("fresh index scan missed the entry: %q", got)
	}
}
