package getd

import (
	"math"
	"testing"

	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

func tushareStyleFrame() *model.Frame {
	f := model.NewFrame("ts_code", "trade_date", "open", "high", "low", "close", "vol", "amount", "pct_chg")
	f.Append("000001.SZ", "20250603", "10.2", "10.8", "10.1", "10.6", "98000", "1038800", "3.92")
	f.Append("000001.SZ", "20250602", "10.0", "10.5", "9.8", "10.2", "120000", "1224000", "2.00")
	return f
}

func TestStandardizeFrame(t *testing.T) {
	f := StandardizeFrame(tushareStyleFrame())
	for _, col := range []string{"date", "code", "open", "high", "low", "close", "volume", "amount", "pct_change"} {
		if !f.Has(col) {
			t.Errorf("missing canonical column %s", col)
		}
	}
	if f.Has("vol") || f.Has("trade_date") || f.Has("ts_code") || f.Has("pct_chg") {
		t.Errorf("provider columns survived standardization: %v", f.Cols())
	}
	//sorted ascending and dates canonicalized
	if f.Cell("date", 0) != "2025-06-02" || f.Cell("date", 1) != "2025-06-03" {
		t.Errorf("bad date order: %v", f.Col("date"))
	}
}

func TestStandardizeFrameIdempotent(t *testing.T) {
	once := StandardizeFrame(tushareStyleFrame())
	twice := StandardizeFrame(once.Clone())
	if !once.Equal(twice) {
		t.Errorf("standardization is not idempotent:\n%v\nvs\n%v", once.Cols(), twice.Cols())
	}
}

func TestStandardizeFrameVolumeAliases(t *testing.T) {
	f := model.NewFrame("date", "open", "high", "low", "close", "turnover")
	f.Append("2025-06-02", "1", "2", "0.5", "1.5", "42")
	StandardizeFrame(f)
	if !f.Has("volume") {
		t.Fatalf("turnover alias not mapped to volume")
	}
	if f.Cell("volume", 0) != "42" {
		t.Errorf("alias values lost: %s", f.Cell("volume", 0))
	}
}

func TestStandardizeFrameInjectsMissing(t *testing.T) {
	f := model.NewFrame("date", "close")
	f.Append("2025-06-02", "10.2")
	StandardizeFrame(f)
	if f.Cell("volume", 0) != "0" {
		t.Errorf("missing volume should be zero-injected, got %q", f.Cell("volume", 0))
	}
	if !math.IsNaN(f.Floats("open")[0]) {
		t.Errorf("missing open should be NaN-injected")
	}
}

func TestBarsFromFrame(t *testing.T) {
	bars := BarsFromFrame(StandardizeFrame(tushareStyleFrame()), "000001")
	if bars.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d", bars.Len())
	}
	latest := bars.Latest()
	if latest.Date != "2025-06-03" || latest.Close != 10.6 {
		t.Errorf("latest bar wrong: %s", latest)
	}
	if got := latest.Change; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("change column wrong: %f", got)
	}
}

func TestForwardAdjust(t *testing.T) {
	raw := &model.Bars{
		Code:      "000001",
		PriceType: model.PriceTypeRaw,
		Rows: []*model.PriceBar{
			{Date: "2025-06-02", Code: "000001", Open: 10.0, High: 10.5, Low: 9.8, Close: 10.0, PctChange: 1.0, Volume: 100},
			{Date: "2025-06-03", Code: "000001", Open: 10.0, High: 11.0, Low: 9.9, Close: 10.5, PctChange: 5.0, Volume: 110},
			{Date: "2025-06-04", Code: "000001", Open: 10.5, High: 10.8, Low: 10.2, Close: 10.8, PctChange: 2.857142857, Volume: 120},
		},
	}
	adj := ForwardAdjust(raw)
	if adj.PriceType != model.PriceTypeForwardAdjusted {
		t.Fatalf("price type not tagged: %s", adj.PriceType)
	}
	//last bar anchors on the raw close
	last := adj.Latest()
	if last.Close != 10.8 {
		t.Errorf("anchor close wrong: %f", last.Close)
	}
	//walking back: close[1] = 10.8/1.02857142857 = 10.5
	if math.Abs(adj.Rows[1].Close-10.5) > 0.001 {
		t.Errorf("adjusted close[1] wrong: %f", adj.Rows[1].Close)
	}
	if math.Abs(adj.Rows[0].Close-10.0) > 0.001 {
		t.Errorf("adjusted close[0] wrong: %f", adj.Rows[0].Close)
	}
	//raw mirrors preserved
	if adj.Rows[0].CloseRaw != 10.0 || adj.Rows[1].HighRaw != 11.0 {
		t.Errorf("raw mirrors lost")
	}
	//OHL scaled by the same ratio as close
	ratio := adj.Rows[1].Close / raw.Rows[1].Close
	if math.Abs(adj.Rows[1].High-round3(raw.Rows[1].High*ratio)) > 0.001 {
		t.Errorf("high not scaled consistently")
	}
}

func TestForwardAdjustAcrossSplit(t *testing.T) {
	//a 50% price drop explained only by a 2% real decline
	raw := &model.Bars{
		Code:      "600036",
		PriceType: model.PriceTypeRaw,
		Rows: []*model.PriceBar{
			{Date: "2025-06-02", Close: 10.0, Open: 10.0, High: 10.0, Low: 10.0, PctChange: 0},
			{Date: "2025-06-03", Close: 5.0, Open: 5.0, High: 5.0, Low: 5.0, PctChange: -2.0},
		},
	}
	adj := ForwardAdjust(raw)
	if adj.Rows[1].Close != 5.0 {
		t.Errorf("anchor wrong: %f", adj.Rows[1].Close)
	}
	if math.Abs(adj.Rows[0].Close-5.102) > 0.001 {
		t.Errorf("adjusted close[0] wrong: %f", adj.Rows[0].Close)
	}
	if adj.Rows[0].CloseRaw != 10.0 {
		t.Errorf("raw mirror lost: %f", adj.Rows[0].CloseRaw)
	}
}

func TestForwardAdjustNoPctUnchanged(t *testing.T) {
	raw := &model.Bars{
		Code:      "000001",
		PriceType: model.PriceTypeRaw,
		Rows: []*model.PriceBar{
			{Date: "2025-06-02", Close: 10.0, PctChange: math.NaN()},
			{Date: "2025-06-03", Close: 10.5, PctChange: math.NaN()},
		},
	}
	adj := ForwardAdjust(raw)
	if adj.PriceType != model.PriceTypeRaw {
		t.Errorf("series without pct_change must be returned unchanged")
	}
}
