package getd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/global"
	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

const estimateSuffix = "（估算值）"

//GetFundamentals renders the deterministic fundamentals report for a symbol.
//Real metrics are attempted AKShare first then Tushare; when both fail the
//symbol is classified into an industry bucket with tabulated estimates. The
//rendered markdown is cached when a real path succeeded.
func (m *DataSourceManager) GetFundamentals(symbol string) string {
	if key := m.store.FindCachedFundamentals(symbol, "", 0); key != "" {
		if text, e := m.store.LoadFundamentalsData(key); e == nil && text != "" {
			log.Infof("serving %s fundamentals from cache (%s)", symbol, key)
			return text
		}
	}

	info := m.GetStockInfo(symbol)
	if !info.Valid() {
		return fmt.Sprintf("❌ 無法獲取股票%s的基本信息\n建议稍後重試", symbol)
	}

	price := m.latestPrice(symbol)
	metrics := m.realMetrics(symbol, price)
	if metrics == nil {
		metrics = estimatedMetrics(symbol, info.Industry)
	}
	scoreMetrics(metrics, info.Industry)

	report := renderFundamentals(symbol, info, metrics, price)
	if !metrics.Estimated() {
		src := model.AKShare
		if metrics.DataSource == "Tushare" {
			src = model.Tushare
		}
		if _, e := m.store.SaveFundamentalsData(symbol, report, src); e != nil {
			log.Warnf("failed to cache fundamentals for %s: %+v", symbol, e)
		}
	}
	return report
}

//latestPrice resolves a current price from the freshest cached close,
//falling back to the realtime quote when nothing is cached.
func (m *DataSourceManager) latestPrice(symbol string) float64 {
	if key := m.store.FindStaleStockData(symbol, ""); key != "" {
		if bars, _, e := m.store.LoadStockData(key); e == nil && !bars.Empty() {
			return bars.Latest().Close
		}
	}
	if q, e := GetRealtimeQuote(symbol); e == nil && q.Price > 0 {
		return q.Price
	}
	return 0
}

//realMetrics tries the real financial paths in priority order.
func (m *DataSourceManager) realMetrics(symbol string, price float64) *model.FinancialMetrics {
	for _, src := range []model.DataSource{model.AKShare, model.Tushare} {
		f, ok := m.fetchers[src]
		if !ok || !f.healthy() {
			continue
		}
		ff, ok := f.(financialFetcher)
		if !ok {
			continue
		}
		st, e := ff.financialData(symbol)
		if e != nil {
			log.Warnf("%s financial fetch failed for %s: %+v", src, symbol, e)
			continue
		}
		var metrics *model.FinancialMetrics
		if len(st.MainIndicators) > 0 {
			metrics = metricsFromIndicators(st.MainIndicators, price)
		} else {
			metrics = metricsFromStatements(st, price)
		}
		if metrics != nil {
			metrics.DataSource = sourceLabels[src]
			return metrics
		}
	}
	return nil
}

//metricsFromIndicators derives ratios from the pivoted main-indicator table.
//PE and PB are computed against the live price; non-positive EPS is published
//as a loss marker rather than a negative multiple.
func metricsFromIndicators(ind map[string]string, price float64) *model.FinancialMetrics {
	eps := parseRatio(ind["每股收益"])
	bps := parseRatio(ind["每股淨資產"])
	m := &model.FinancialMetrics{
		PE:           "N/A",
		PB:           "N/A",
		PS:           "N/A",
		ROE:          orNA(ind["淨資產收益率"], "%"),
		GrossMargin:  orNA(ind["毛利率"], "%"),
		NetMargin:    orNA(ind["淨利率"], "%"),
		DebtRatio:    orNA(ind["資產負債率"], "%"),
		CurrentRatio: orNA(ind["流動比率"], ""),
		QuickRatio:   orNA(ind["速動比率"], ""),
	}
	if price > 0 && !math.IsNaN(eps) {
		if eps <= 0 {
			m.PE = "N/A(亏損)"
		} else {
			m.PE = fmt.Sprintf("%.1f", price/eps)
		}
	}
	if price > 0 && !math.IsNaN(bps) && bps > 0 {
		m.PB = fmt.Sprintf("%.2f", price/bps)
	}
	if m.ROE == "N/A" && m.NetMargin == "N/A" && m.PE == "N/A" {
		return nil
	}
	return m
}

//metricsFromStatements derives ratios from raw statement line items.
func metricsFromStatements(st *model.FinancialStatements, price float64) *model.FinancialMetrics {
	if st.Empty() {
		return nil
	}
	bal, inc := st.BalanceSheet, st.IncomeStatement
	m := &model.FinancialMetrics{
		PE: "N/A", PB: "N/A", PS: "N/A",
		ROE: "N/A", ROA: "N/A", GrossMargin: "N/A", NetMargin: "N/A",
		DebtRatio: "N/A", CurrentRatio: "N/A", QuickRatio: "N/A",
	}
	equity := bal["total_hldr_eqy_exc_min_int"]
	assets := bal["total_assets"]
	netIncome := inc["n_income"]
	revenue := inc["total_revenue"]
	if equity > 0 && netIncome != 0 {
		m.ROE = fmt.Sprintf("%.1f%%", netIncome/equity*100)
	}
	if assets > 0 && netIncome != 0 {
		m.ROA = fmt.Sprintf("%.1f%%", netIncome/assets*100)
	}
	if revenue > 0 && netIncome != 0 {
		m.NetMargin = fmt.Sprintf("%.1f%%", netIncome/revenue*100)
	}
	if assets > 0 {
		m.DebtRatio = fmt.Sprintf("%.1f%%", bal["total_liab"]/assets*100)
	}
	if cl := bal["total_cur_liab"]; cl > 0 {
		m.CurrentRatio = fmt.Sprintf("%.2f", bal["total_cur_assets"]/cl)
	}
	if eps := inc["basic_eps"]; price > 0 && eps != 0 {
		if eps < 0 {
			m.PE = "N/A(亏損)"
		} else {
			m.PE = fmt.Sprintf("%.1f", price/eps)
		}
	}
	if m.ROE == "N/A" && m.NetMargin == "N/A" && m.DebtRatio == "N/A" {
		return nil
	}
	return m
}

//estimated ratio tables per industry bucket
func estimatedMetrics(symbol, industry string) *model.FinancialMetrics {
	est := func(v string) string { return v + estimateSuffix }
	var m *model.FinancialMetrics
	switch {
	case symbol == "000001" || symbol == "600036" || strings.Contains(industry, "銀行"):
		m = &model.FinancialMetrics{
			PE: est("5.2"), PB: est("0.85"), PS: est("2.1"),
			ROE: est("16.8%"), ROA: est("0.9%"),
			GrossMargin: est("N/A"), NetMargin: est("38.5%"),
			DebtRatio: est("91.5%"), CurrentRatio: est("N/A"), QuickRatio: est("N/A"),
			DividendYield: est("4.5%"),
		}
	case strings.HasPrefix(symbol, "300"):
		m = &model.FinancialMetrics{
			PE: est("45.0"), PB: est("5.5"), PS: est("8.2"),
			ROE: est("12.0%"), ROA: est("6.5%"),
			GrossMargin: est("42.0%"), NetMargin: est("15.0%"),
			DebtRatio: est("35.0%"), CurrentRatio: est("2.10"), QuickRatio: est("1.80"),
			DividendYield: est("0.5%"),
		}
	default:
		m = &model.FinancialMetrics{
			PE: est("25.0"), PB: est("2.5"), PS: est("3.0"),
			ROE: est("10.0%"), ROA: est("5.0%"),
			GrossMargin: est("30.0%"), NetMargin: est("12.0%"),
			DebtRatio: est("55.0%"), CurrentRatio: est("1.50"), QuickRatio: est("1.10"),
			DividendYield: est("2.0%"),
		}
	}
	m.DataSource = "estimated"
	return m
}

//scoreMetrics fills the composite scores in [1,10] and the risk level.
func scoreMetrics(m *model.FinancialMetrics, industry string) {
	roe := parseRatio(m.ROE)
	netMargin := parseRatio(m.NetMargin)
	pe := parseRatio(m.PE)
	pb := parseRatio(m.PB)
	debt := parseRatio(m.DebtRatio)

	fund := 5.0
	switch {
	case roe > 15:
		fund += 1.5
	case roe > 10:
		fund += 1.0
	case roe > 5:
		fund += 0.5
	}
	switch {
	case netMargin > 20:
		fund += 1.0
	case netMargin > 10:
		fund += 0.5
	}

	val := 5.0
	switch {
	case pe > 0 && pe < 15:
		val += 2.0
	case pe > 0 && pe < 25:
		val += 1.0
	case pe > 50:
		val -= 1.0
	}
	switch {
	case pb > 0 && pb < 1.5:
		val += 1.0
	case pb > 0 && pb < 3:
		val += 0.5
	case pb > 5:
		val -= 0.5
	}

	growth := 6.0
	if containsAny(industry, "科技", "软件", "互聯網") {
		growth += 1.0
	}
	if containsAny(industry, "銀行", "保險") {
		growth -= 0.5
	}

	m.FundamentalScore = clampScore(fund)
	m.ValuationScore = clampScore(val)
	m.GrowthScore = clampScore(growth)
	m.RiskLevel = riskLevel(debt, industry)
}

func riskLevel(debt float64, industry string) string {
	level := "較低"
	switch {
	case debt > 70:
		level = "較高"
	case debt > 50:
		level = "中等"
	}
	if containsAny(industry, "銀行") {
		level = "中等"
	}
	if containsAny(industry, "科技", "創業板") {
		level = "較高"
	}
	return level
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

//parseRatio extracts the numeric part of a formatted ratio string, tolerating
//percent signs and the estimation suffix. NaN when not numeric.
func parseRatio(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), estimateSuffix)
	s = strings.TrimSuffix(s, "%")
	v, e := strconv.ParseFloat(s, 64)
	if e != nil {
		return math.NaN()
	}
	return v
}

func orNA(v, suffix string) string {
	if strings.TrimSpace(v) == "" {
		return "N/A"
	}
	if suffix != "" && !strings.HasSuffix(v, suffix) {
		return v + suffix
	}
	return v
}

func provenanceNote(ds string) string {
	switch ds {
	case "AKShare":
		return "數據來源: AKShare真實數據"
	case "Tushare":
		return "數據來源: Tushare真實數據"
	default:
		return "數據來源: 估算數據（真實數據獲取失敗）"
	}
}

//renderFundamentals produces the fixed-skeleton markdown report.
func renderFundamentals(symbol string, info *model.StockInfo, m *model.FinancialMetrics, price float64) string {
	mi := market.Classify(symbol)
	industry := info.Industry
	if industry == "" {
		industry = "綜合"
	}
	total := (m.FundamentalScore + m.ValuationScore) / 2

	var b strings.Builder
	fmt.Fprintf(&b, "# %s基本面分析報告\n\n", mi.MarketName)
	fmt.Fprintf(&b, "%s\n", provenanceNote(m.DataSource))
	fmt.Fprintf(&b, "生成時間: %s\n\n", time.Now().Format(global.DateFormat))

	b.WriteString("## 股票基本信息\n")
	fmt.Fprintf(&b, "- 股票代碼: %s\n", symbol)
	fmt.Fprintf(&b, "- 股票名稱: %s\n", info.Name)
	fmt.Fprintf(&b, "- 所屬行業: %s\n", industry)
	fmt.Fprintf(&b, "- 所屬市場: %s\n", mi.MarketName)
	if price > 0 {
		fmt.Fprintf(&b, "- 最新價格: %s%.2f\n", mi.CurrencySymbol, price)
	}
	b.WriteString("\n## 財務數據分析\n")
	b.WriteString("### 估值指標\n")
	fmt.Fprintf(&b, "- 市盈率(PE): %s\n", m.PE)
	fmt.Fprintf(&b, "- 市淨率(PB): %s\n", m.PB)
	fmt.Fprintf(&b, "- 市銷率(PS): %s\n", m.PS)
	b.WriteString("### 盈利能力\n")
	fmt.Fprintf(&b, "- 淨資產收益率(ROE): %s\n", m.ROE)
	if m.ROA != "" {
		fmt.Fprintf(&b, "- 總資產收益率(ROA): %s\n", m.ROA)
	}
	fmt.Fprintf(&b, "- 毛利率: %s\n", m.GrossMargin)
	fmt.Fprintf(&b, "- 淨利率: %s\n", m.NetMargin)
	b.WriteString("### 財務健康度\n")
	fmt.Fprintf(&b, "- 資產負債率: %s\n", m.DebtRatio)
	fmt.Fprintf(&b, "- 流動比率: %s\n", m.CurrentRatio)
	fmt.Fprintf(&b, "- 速動比率: %s\n", m.QuickRatio)

	b.WriteString("\n## 行業分析\n")
	fmt.Fprintf(&b, "- 行業: %s\n", industry)
	fmt.Fprintf(&b, "- 行業風險特征: %s\n", industryTrait(industry))

	b.WriteString("\n## 投資價值評估\n")
	fmt.Fprintf(&b, "- 基本面得分: %.1f/10\n", m.FundamentalScore)
	fmt.Fprintf(&b, "- 估值得分: %.1f/10\n", m.ValuationScore)
	fmt.Fprintf(&b, "- 成長性得分: %.1f/10\n", m.GrowthScore)
	fmt.Fprintf(&b, "- 風險水平: %s\n", m.RiskLevel)

	b.WriteString("\n## 投資建议\n")
	fmt.Fprintf(&b, "綜合得分: %.1f/10\n", total)
	switch {
	case total >= 7.5:
		b.WriteString("🟢 **買入** - 基本面與估值俱佳，具備配置價值\n")
	case total >= 6.0:
		b.WriteString("🟡 **觀望** - 基本面尚可，等待更好的介入時機\n")
	default:
		b.WriteString("🔴 **回避** - 基本面或估值存在明顯短板\n")
	}
	if m.Estimated() {
		b.WriteString("\n⚠️ 以上數據為估算值，仅供參考，建议稍後重試獲取真實數據\n")
	}
	return b.String()
}

func industryTrait(industry string) string {
	switch {
	case containsAny(industry, "銀行", "保險"):
		return "強監管、高杠杆經營，盈利穩定但成長有限"
	case containsAny(industry, "科技", "软件", "互聯網"):
		return "高成長高波動，研發投入與政策環境敏感"
	case containsAny(industry, "地產", "建築"):
		return "周期性強，對融資環境高度敏感"
	default:
		return "常規行業風險水平"
	}
}
