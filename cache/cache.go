//Package cache implements the file-backed content-addressed data cache.
//Data files live in per-(market, kind) pool directories; every file is paired
//with a JSON metadata record under metadata/, which doubles as the scan source
//for the in-memory index.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/global"
	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
)

var log = global.Log

//Entry is the metadata record accompanying each cached data file.
type Entry struct {
	Symbol        string         `json:"symbol"`
	DataType      model.DataKind `json:"data_type"`
	MarketType    model.Market   `json:"market_type"`
	StartDate     string         `json:"start_date,omitempty"`
	EndDate       string         `json:"end_date,omitempty"`
	DataSource    string         `json:"data_source"`
	FilePath      string         `json:"file_path"`
	FileFormat    string         `json:"file_format"`
	ContentLength int            `json:"content_length"`
	CachedAt      time.Time      `json:"cached_at"`
}

type poolConfig struct {
	TTLHours    float64
	MaxFiles    int
	Description string
}

func defaultPoolConfig() map[string]poolConfig {
	return map[string]poolConfig{
		"us_stock_data":    {4, 1000, "美股歷史數據"},
		"cn_stock_data":    {6, 1000, "A股歷史數據"},
		"hk_stock_data":    {6, 1000, "港股歷史數據"},
		"us_news":          {8, 500, "美股新聞數據"},
		"cn_news":          {6, 500, "A股新聞數據"},
		"hk_news":          {6, 500, "港股新聞數據"},
		"us_fundamentals":  {24, 200, "美股基本面數據"},
		"cn_fundamentals":  {12, 200, "A股基本面數據"},
		"hk_fundamentals":  {24, 200, "港股基本面數據"},
	}
}

//Cache is the process-wide stock data cache. All methods are safe for
//concurrent use from multiple agent threads.
type Cache struct {
	dir   string
	pools map[string]poolConfig

	mu           sync.RWMutex
	index        map[string]*Entry
	indexBuilt   bool
	skippedSaves int
}

var (
	instance *Cache
	once     sync.Once
)

//Get returns the global cache instance rooted at the configured directory.
func Get() *Cache {
	once.Do(func() {
		instance = New(conf.Args.Cache.Dir)
	})
	return instance
}

//New creates a cache rooted at dir, creating all pool directories.
func New(dir string) *Cache {
	c := &Cache{
		dir:   dir,
		pools: defaultPoolConfig(),
		index: make(map[string]*Entry),
	}
	if h := conf.Args.Cache.NewsCacheHours; h > 0 {
		for _, m := range []string{"us", "cn", "hk"} {
			pc := c.pools[m+"_news"]
			pc.TTLHours = float64(h)
			c.pools[m+"_news"] = pc
		}
	}
	for _, m := range []string{"us", "cn", "hk"} {
		for _, k := range []string{"stocks", "news", "fundamentals"} {
			os.MkdirAll(filepath.Join(dir, m+"_"+k), 0755)
		}
	}
	os.MkdirAll(c.metadataDir(), 0755)
	log.Debugf("cache initialized at %s", dir)
	return c
}

func (c *Cache) metadataDir() string {
	return filepath.Join(c.dir, "metadata")
}

func (c *Cache) metadataPath(cacheKey string) string {
	return filepath.Join(c.metadataDir(), cacheKey+"_meta.json")
}

func (c *Cache) poolDir(kind model.DataKind, mkt model.Market) string {
	var sub string
	switch kind {
	case model.KindStockData:
		sub = string(mkt) + "_stocks"
	case model.KindNews:
		sub = string(mkt) + "_news"
	case model.KindFundamentals:
		sub = string(mkt) + "_fundamentals"
	default:
		return c.dir
	}
	return filepath.Join(c.dir, sub)
}

func poolKey(mkt model.Market, kind model.DataKind) string {
	return string(mkt) + "_" + string(kind)
}

func marketOf(symbol string) model.Market {
	return market.Classify(symbol).Market
}

//generateKey builds the cache key {symbol}_{kind}_{hash12}. The hash covers a
//sorted, stringified parameter vector, so equivalent requests collide on the
//same key regardless of argument order.
func generateKey(kind model.DataKind, symbol string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := fmt.Sprintf("%s_%s", kind, symbol)
	for _, k := range keys {
		s += fmt.Sprintf("_%s_%s", k, params[k])
	}
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%s_%s_%s", symbol, kind, hex.EncodeToString(sum[:])[:12])
}

func stockDataParams(symbol, start, end string, source string, mkt model.Market, skipped bool) map[string]string {
	p := map[string]string{
		"start_bucket": fmt.Sprintf("%d", util.DateBucket(start)),
		"end_bucket":   fmt.Sprintf("%d", util.DateBucket(end)),
		"source":       source,
		"market":       string(mkt),
	}
	if skipped {
		p["skipped"] = "true"
	}
	return p
}

//ShouldSkipForContent reports whether a payload is too long to cache. The gate
//only trips when the length check is enabled, the content exceeds the limit,
//and no long-context capable provider key is configured; otherwise a stale
//oversized report could later be fed to a short-context agent.
func (c *Cache) ShouldSkipForContent(content string, kind model.DataKind) bool {
	if !conf.Args.Cache.EnableLengthCheck {
		return false
	}
	if len(content) <= conf.Args.Cache.MaxContentLength {
		return false
	}
	for _, key := range conf.Args.Cache.LongTextKeys {
		if strings.TrimSpace(os.Getenv(key)) != "" {
			log.Debugf("content length %d over limit but long-context provider %s is configured, caching anyway",
				len(content), key)
			return false
		}
	}
	log.Warnf("content too long (%d > %d chars) with no long-context provider, skipping %s cache",
		len(content), conf.Args.Cache.MaxContentLength, kind)
	return true
}

//SaveStockData caches a price series (CSV) or textual block (TXT) and returns
//the cache key. Oversized content yields a synthetic key with no I/O.
func (c *Cache) SaveStockData(symbol string, data interface{}, start, end string, source model.DataSource) (string, error) {
	mkt := marketOf(symbol)
	var body []byte
	format := "txt"
	switch d := data.(type) {
	case *model.Bars:
		b, e := d.ToCSV()
		if e != nil {
			return "", e
		}
		body = b
		format = "csv"
	case string:
		body = []byte(d)
	default:
		return "", errors.Errorf("unsupported stock data type: %T", data)
	}

	if c.ShouldSkipForContent(string(body), model.KindStockData) {
		key := generateKey(model.KindStockData, symbol,
			stockDataParams(symbol, start, end, string(source), mkt, true))
		c.mu.Lock()
		c.skippedSaves++
		c.mu.Unlock()
		log.Infof("stock data cache skipped for %s -> %s", symbol, key)
		return key, nil
	}

	key := generateKey(model.KindStockData, symbol,
		stockDataParams(symbol, start, end, string(source), mkt, false))
	entry := &Entry{
		Symbol:        symbol,
		DataType:      model.KindStockData,
		MarketType:    mkt,
		StartDate:     start,
		EndDate:       end,
		DataSource:    string(source),
		FilePath:      filepath.Join(c.poolDir(model.KindStockData, mkt), key+"."+format),
		FileFormat:    format,
		ContentLength: len(body),
	}
	if e := c.store(key, entry, body); e != nil {
		return "", e
	}
	log.Infof("%s cached: %s (%s) -> %s", c.describe(mkt, model.KindStockData), symbol, source, key)
	return key, nil
}

//LoadStockData reads a cached series back. Exactly one of the returns is
//populated according to the recorded file format; both nil/"" means a miss.
func (c *Cache) LoadStockData(cacheKey string) (*model.Bars, string, error) {
	entry := c.loadEntry(cacheKey)
	if entry == nil {
		return nil, "", nil
	}
	body, e := os.ReadFile(entry.FilePath)
	if e != nil {
		//a concurrent sweep may have removed the file; treat as a miss
		return nil, "", nil
	}
	if entry.FileFormat == "csv" {
		bars, e := model.BarsFromCSV(body)
		if e != nil {
			return nil, "", e
		}
		return bars, "", nil
	}
	return nil, string(body), nil
}

//FindCachedStockData locates a fresh cached series for the request. It first
//reconstructs the exact bucketed key, then falls back to an index scan over
//entries with the same symbol, kind and market.
func (c *Cache) FindCachedStockData(symbol, start, end string, source model.DataSource, maxAgeHours float64) string {
	mkt := marketOf(symbol)
	if maxAgeHours <= 0 {
		maxAgeHours = c.ttlFor(mkt, model.KindStockData)
	}

	exact := generateKey(model.KindStockData, symbol,
		stockDataParams(symbol, start, end, string(source), mkt, false))
	if c.IsCacheValid(exact, maxAgeHours, symbol, model.KindStockData) {
		log.Debugf("exact cache hit for %s -> %s", symbol, exact)
		return exact
	}

	for key, entry := range c.snapshotIndex() {
		if entry.Symbol != symbol || entry.DataType != model.KindStockData || entry.MarketType != mkt {
			continue
		}
		if source != "" && entry.DataSource != string(source) {
			continue
		}
		if c.IsCacheValid(key, maxAgeHours, symbol, model.KindStockData) {
			log.Debugf("partial cache hit for %s -> %s", symbol, key)
			return key
		}
	}
	return ""
}

//FindStaleStockData returns the freshest expired entry for the symbol, used
//only when every live provider has failed.
func (c *Cache) FindStaleStockData(symbol string, source model.DataSource) string {
	mkt := marketOf(symbol)
	var bestKey string
	var bestAt time.Time
	for key, entry := range c.snapshotIndex() {
		if entry.Symbol != symbol || entry.DataType != model.KindStockData || entry.MarketType != mkt {
			continue
		}
		if source != "" && entry.DataSource != string(source) {
			continue
		}
		if entry.CachedAt.After(bestAt) {
			bestKey, bestAt = key, entry.CachedAt
		}
	}
	return bestKey
}

//SaveNewsData caches a news text block for the symbol.
func (c *Cache) SaveNewsData(symbol, news, start, end string, source model.DataSource) (string, error) {
	if !conf.Args.Cache.NewsCacheEnabled {
		return "", nil
	}
	mkt := marketOf(symbol)
	params := map[string]string{
		"start_bucket": fmt.Sprintf("%d", util.DateBucket(start)),
		"end_bucket":   fmt.Sprintf("%d", util.DateBucket(end)),
		"source":       string(source),
	}
	if c.ShouldSkipForContent(news, model.KindNews) {
		params["skipped"] = "true"
		key := generateKey(model.KindNews, symbol, params)
		c.mu.Lock()
		c.skippedSaves++
		c.mu.Unlock()
		log.Infof("news cache skipped for %s -> %s", symbol, key)
		return key, nil
	}
	key := generateKey(model.KindNews, symbol, params)
	entry := &Entry{
		Symbol:        symbol,
		DataType:      model.KindNews,
		MarketType:    mkt,
		StartDate:     start,
		EndDate:       end,
		DataSource:    string(source),
		FilePath:      filepath.Join(c.poolDir(model.KindNews, mkt), key+".txt"),
		FileFormat:    "txt",
		ContentLength: len(news),
	}
	if e := c.store(key, entry, []byte(news)); e != nil {
		return "", e
	}
	log.Infof("%s cached: %s (%s) -> %s", c.describe(mkt, model.KindNews), symbol, source, key)
	return key, nil
}

//LoadNewsData reads a cached news block.
func (c *Cache) LoadNewsData(cacheKey string) (string, error) {
	entry := c.loadEntry(cacheKey)
	if entry == nil {
		return "", nil
	}
	body, e := os.ReadFile(entry.FilePath)
	if e != nil {
		return "", nil
	}
	return string(body), nil
}

//FindCachedNews scans the index for a fresh news entry for the symbol.
func (c *Cache) FindCachedNews(symbol string, source model.DataSource, maxAgeHours float64) string {
	mkt := marketOf(symbol)
	if maxAgeHours <= 0 {
		maxAgeHours = c.ttlFor(mkt, model.KindNews)
	}
	for key, entry := range c.snapshotIndex() {
		if entry.Symbol != symbol || entry.DataType != model.KindNews || entry.MarketType != mkt {
			continue
		}
		if source != "" && entry.DataSource != string(source) {
			continue
		}
		if c.IsCacheValid(key, maxAgeHours, symbol, model.KindNews) {
			return key
		}
	}
	return ""
}

//SaveFundamentalsData caches a rendered fundamentals report. The key carries
//no date fields; fundamentals are daily-stable under the pool TTL.
func (c *Cache) SaveFundamentalsData(symbol, report string, source model.DataSource) (string, error) {
	mkt := marketOf(symbol)
	params := map[string]string{
		"source": string(source),
		"market": string(mkt),
	}
	if c.ShouldSkipForContent(report, model.KindFundamentals) {
		params["skipped"] = "true"
		key := generateKey(model.KindFundamentals, symbol, params)
		c.mu.Lock()
		c.skippedSaves++
		c.mu.Unlock()
		log.Infof("fundamentals cache skipped for %s -> %s", symbol, key)
		return key, nil
	}
	key := generateKey(model.KindFundamentals, symbol, params)
	entry := &Entry{
		Symbol:        symbol,
		DataType:      model.KindFundamentals,
		MarketType:    mkt,
		DataSource:    string(source),
		FilePath:      filepath.Join(c.poolDir(model.KindFundamentals, mkt), key+".txt"),
		FileFormat:    "txt",
		ContentLength: len(report),
	}
	if e := c.store(key, entry, []byte(report)); e != nil {
		return "", e
	}
	log.Infof("%s cached: %s (%s) -> %s", c.describe(mkt, model.KindFundamentals), symbol, source, key)
	return key, nil
}

//LoadFundamentalsData reads a cached fundamentals report.
func (c *Cache) LoadFundamentalsData(cacheKey string) (string, error) {
	entry := c.loadEntry(cacheKey)
	if entry == nil {
		return "", nil
	}
	body, e := os.ReadFile(entry.FilePath)
	if e != nil {
		return "", nil
	}
	return string(body), nil
}

//FindCachedFundamentals locates a fresh cached report for the symbol. An
//exact key match is attempted when source is given; otherwise the index is
//scanned.
func (c *Cache) FindCachedFundamentals(symbol string, source model.DataSource, maxAgeHours float64) string {
	mkt := marketOf(symbol)
	if maxAgeHours <= 0 {
		maxAgeHours = c.ttlFor(mkt, model.KindFundamentals)
	}
	if source != "" {
		exact := generateKey(model.KindFundamentals, symbol, map[string]string{
			"source": string(source),
			"market": string(mkt),
		})
		if c.IsCacheValid(exact, maxAgeHours, symbol, model.KindFundamentals) {
			return exact
		}
	}
	for key, entry := range c.snapshotIndex() {
		if entry.Symbol != symbol || entry.DataType != model.KindFundamentals || entry.MarketType != mkt {
			continue
		}
		if source != "" && entry.DataSource != string(source) {
			continue
		}
		if c.IsCacheValid(key, maxAgeHours, symbol, model.KindFundamentals) {
			return key
		}
	}
	return ""
}

//EntrySource reports the provider a cached entry came from.
func (c *Cache) EntrySource(cacheKey string) model.DataSource {
	entry := c.loadEntry(cacheKey)
	if entry == nil {
		return model.Unknown
	}
	return model.DataSource(entry.DataSource)
}

//IsCacheValid checks whether the entry exists and is younger than the TTL.
//A non-positive maxAgeHours resolves the TTL from the pool table.
func (c *Cache) IsCacheValid(cacheKey string, maxAgeHours float64, symbol string, kind model.DataKind) bool {
	entry := c.loadEntry(cacheKey)
	if entry == nil {
		return false
	}
	if maxAgeHours <= 0 {
		mkt := entry.MarketType
		k := entry.DataType
		if symbol != "" && kind != "" {
			mkt = marketOf(symbol)
			k = kind
		}
		maxAgeHours = c.ttlFor(mkt, k)
	}
	age := time.Since(entry.CachedAt)
	return age < time.Duration(maxAgeHours*float64(time.Hour))
}

//ClearOldCache sweeps entries older than maxAgeDays, removing both the data
//file and its metadata, and dropping them from the index.
func (c *Cache) ClearOldCache(maxAgeDays int) int {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	cleared := 0
	for key, entry := range c.snapshotIndex() {
		if entry.CachedAt.After(cutoff) {
			continue
		}
		if entry.FilePath != "" {
			os.Remove(entry.FilePath)
		}
		os.Remove(c.metadataPath(key))
		c.mu.Lock()
		delete(c.index, key)
		c.mu.Unlock()
		cleared++
	}
	log.Infof("cleared %d expired cache entries", cleared)
	return cleared
}

//Stats summarizes the cache contents.
type Stats struct {
	TotalFiles        int
	StockDataCount    int
	NewsCount         int
	FundamentalsCount int
	TotalSizeMB       float64
	SkippedCount      int
}

//GetStats scans the index and reports per-kind counts, total size and the
//number of skipped (never-written) saves.
func (c *Cache) GetStats() Stats {
	st := Stats{}
	for _, entry := range c.snapshotIndex() {
		switch entry.DataType {
		case model.KindStockData:
			st.StockDataCount++
		case model.KindNews:
			st.NewsCount++
		case model.KindFundamentals:
			st.FundamentalsCount++
		}
		st.TotalFiles++
		if fi, e := os.Stat(entry.FilePath); e == nil {
			st.TotalSizeMB += float64(fi.Size()) / (1024 * 1024)
		} else {
			st.SkippedCount++
		}
	}
	c.mu.RLock()
	st.SkippedCount += c.skippedSaves
	c.mu.RUnlock()
	return st
}

func (c *Cache) ttlFor(mkt model.Market, kind model.DataKind) float64 {
	if pc, ok := c.pools[poolKey(mkt, kind)]; ok {
		return pc.TTLHours
	}
	return 24
}

func (c *Cache) describe(mkt model.Market, kind model.DataKind) string {
	if pc, ok := c.pools[poolKey(mkt, kind)]; ok {
		return pc.Description
	}
	return "數據"
}

//store writes the data file first, then publishes the entry to the in-memory
//index, then finalizes the on-disk metadata. Readers that observe a metadata
//file can rely on the data file existing at that moment.
func (c *Cache) store(key string, entry *Entry, body []byte) error {
	entry.CachedAt = time.Now()
	if e := os.MkdirAll(filepath.Dir(entry.FilePath), 0755); e != nil {
		return errors.Wrap(e, "failed to create cache pool directory")
	}
	if e := os.WriteFile(entry.FilePath, body, 0644); e != nil {
		return errors.Wrapf(e, "failed to write cache file %s", entry.FilePath)
	}
	c.mu.Lock()
	c.ensureIndexLocked()
	c.index[key] = entry
	c.mu.Unlock()
	meta, e := json.MarshalIndent(entry, "", "  ")
	if e != nil {
		return errors.Wrap(e, "failed to marshal cache metadata")
	}
	if e := os.WriteFile(c.metadataPath(key), meta, 0644); e != nil {
		return errors.Wrapf(e, "failed to write cache metadata %s", key)
	}
	return nil
}

func (c *Cache) loadEntry(cacheKey string) *Entry {
	if cacheKey == "" {
		return nil
	}
	c.mu.RLock()
	entry, ok := c.index[cacheKey]
	c.mu.RUnlock()
	if ok {
		return entry
	}
	body, e := os.ReadFile(c.metadataPath(cacheKey))
	if e != nil {
		return nil
	}
	entry = &Entry{}
	if e := json.Unmarshal(body, entry); e != nil {
		log.Warnf("corrupt cache metadata for %s: %+v", cacheKey, e)
		return nil
	}
	c.mu.Lock()
	c.index[cacheKey] = entry
	c.mu.Unlock()
	return entry
}

//snapshotIndex returns a copy of the index, building it from the metadata
//directory on first use.
func (c *Cache) snapshotIndex() map[string]*Entry {
	c.mu.Lock()
	c.ensureIndexLocked()
	snap := make(map[string]*Entry, len(c.index))
	for k, v := range c.index {
		snap[k] = v
	}
	c.mu.Unlock()
	return snap
}

func (c *Cache) ensureIndexLocked() {
	if c.indexBuilt {
		return
	}
	c.indexBuilt = true
	files, e := filepath.Glob(filepath.Join(c.metadataDir(), "*_meta.json"))
	if e != nil {
		log.Warnf("failed to scan cache metadata: %+v", e)
		return
	}
	for _, f := range files {
		body, e := os.ReadFile(f)
		if e != nil {
			continue
		}
		entry := &Entry{}
		if e := json.Unmarshal(body, entry); e != nil {
			continue
		}
		key := strings.TrimSuffix(filepath.Base(f), "_meta.json")
		if _, exists := c.index[key]; !exists {
			c.index[key] = entry
		}
	}
	log.Debugf("cache index built: %d entries", len(c.index))
}
