//Package getd acquires stock data from upstream providers, normalizes it to
//the canonical schema and serves it through the unified interface.
package getd

import (
	"math"
	"strconv"
	"strings"

	"github.com/aiinpocket/TradingAgents-CN-sub001/global"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
)

var log = global.Log

//canonical column renames applied to every provider frame
var stdRenames = [][2]string{
	{"trade_date", "date"},
	{"ts_code", "code"},
	{"vol", "volume"},
	{"pct_chg", "pct_change"},
}

//volumeAliases tried in order when no volume column survives the renames
var volumeAliases = []string{"vol", "turnover", "trade_volume"}

var priceCols = []string{"open", "high", "low", "close"}

//StandardizeFrame maps provider column names onto the canonical schema,
//repairs missing columns and sorts by ascending date. Applying it twice
//yields the same frame.
func StandardizeFrame(f *model.Frame) *model.Frame {
	if f == nil || f.Empty() {
		return f
	}
	for _, r := range stdRenames {
		f.Rename(r[0], r[1])
	}

	if !f.Has("volume") {
		found := false
		for _, alias := range volumeAliases {
			if f.Has(alias) {
				f.Rename(alias, "volume")
				found = true
				break
			}
		}
		if !found {
			log.Warnf("no volume column among %v, injecting zeros", f.Cols())
			f.SetConstCol("volume", "0")
		}
	}

	for _, col := range priceCols {
		if !f.Has(col) {
			log.Warnf("missing price column %s, injecting NaN", col)
			f.SetConstCol(col, "NaN")
		}
	}
	if !f.Has("pct_change") {
		f.SetConstCol("pct_change", "NaN")
	}
	if !f.Has("amount") {
		f.SetConstCol("amount", "0")
	}

	if f.Has("date") {
		dates := f.Col("date")
		canon := make([]string, len(dates))
		for i, d := range dates {
			canon[i] = util.CanonicalDate(d)
		}
		f.SetCol("date", canon)
		f.SortBy("date")
	} else {
		log.Warnf("frame has no date column among %v", f.Cols())
	}
	return f
}

//BarsFromFrame converts a standardized frame into a typed series for code.
//Rows without a parsable date are dropped; unparsable numerics become NaN so
//downstream consumers can flag rather than silently zero them.
func BarsFromFrame(f *model.Frame, code string) *model.Bars {
	bars := &model.Bars{Code: code, PriceType: model.PriceTypeRaw}
	if f == nil || f.Empty() {
		return bars
	}
	open := f.Floats("open")
	high := f.Floats("high")
	low := f.Floats("low")
	cls := f.Floats("close")
	vol := f.Floats("volume")
	amt := f.Floats("amount")
	pct := f.Floats("pct_change")
	for i := 0; i < f.Len(); i++ {
		date := f.Cell("date", i)
		if _, ok := util.ParseDate(date); !ok {
			continue
		}
		rowCode := bareCode(f.Cell("code", i))
		if rowCode == "" {
			rowCode = code
		}
		bars.Rows = append(bars.Rows, &model.PriceBar{
			Date:      date,
			Code:      rowCode,
			Open:      open[i],
			High:      high[i],
			Low:       low[i],
			Close:     cls[i],
			Volume:    vol[i],
			Amount:    amt[i],
			PctChange: pct[i],
		})
	}
	bars.SortByDate()
	for i, r := range bars.Rows {
		if i > 0 {
			r.Change = r.Close - bars.Rows[i-1].Close
		}
	}
	return bars
}

//ForwardAdjust rebuilds a forward-adjusted price series from raw closes and
//daily percent changes, anchoring on the latest close so the most recent bar
//matches the live quote. Raw values are preserved in the *_raw mirrors.
func ForwardAdjust(raw *model.Bars) *model.Bars {
	if raw.Empty() || !hasPctChange(raw) {
		return raw
	}
	n := raw.Len()
	adj := &model.Bars{Code: raw.Code, PriceType: model.PriceTypeForwardAdjusted}
	adj.Rows = make([]*model.PriceBar, n)

	closeAdj := make([]float64, n)
	closeAdj[n-1] = raw.Rows[n-1].Close
	for t := n - 2; t >= 0; t-- {
		pct := raw.Rows[t+1].PctChange
		if math.IsNaN(pct) || pct <= -100 {
			//no return information, carry the raw chain through unchanged
			closeAdj[t] = closeAdj[t+1] * safeDiv(raw.Rows[t].Close, raw.Rows[t+1].Close)
			continue
		}
		closeAdj[t] = closeAdj[t+1] / (1 + pct/100)
	}

	for t := 0; t < n; t++ {
		r := raw.Rows[t]
		ratio := safeDiv(closeAdj[t], r.Close)
		adj.Rows[t] = &model.PriceBar{
			Date:      r.Date,
			Code:      r.Code,
			Open:      round3(r.Open * ratio),
			High:      round3(r.High * ratio),
			Low:       round3(r.Low * ratio),
			Close:     round3(closeAdj[t]),
			Volume:    r.Volume,
			Amount:    r.Amount,
			PctChange: r.PctChange,
			Change:    r.Change,
			OpenRaw:   r.Open,
			HighRaw:   r.High,
			LowRaw:    r.Low,
			CloseRaw:  r.Close,
		}
	}
	return adj
}

func hasPctChange(s *model.Bars) bool {
	for _, r := range s.Rows {
		if !math.IsNaN(r.PctChange) {
			return true
		}
	}
	return false
}

//bareCode strips the exchange qualifier off a provider code, whether dotted
//suffix (600036.SH) or dotted prefix (sh.600036).
func bareCode(code string) string {
	u := strings.ToUpper(code)
	for _, sfx := range []string{".SH", ".SZ", ".BJ"} {
		if strings.HasSuffix(u, sfx) {
			return code[:len(code)-len(sfx)]
		}
	}
	for _, pfx := range []string{"SH.", "SZ.", "BJ."} {
		if strings.HasPrefix(u, pfx) {
			return code[len(pfx):]
		}
	}
	return code
}

func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return 1
	}
	return a / b
}

func round3(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	s := strconv.FormatFloat(v, 'f', 3, 64)
	r, _ := strconv.ParseFloat(s, 64)
	return r
}
