package getd

import (
	"math"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestTushareCode(t *testing.T) {
	cases := map[string]string{
		"600036":    "600036.SH",
		"000001":    "000001.SZ",
		"300750":    "300750.SZ",
		"830799":    "830799.BJ",
		"430047":    "430047.BJ",
		"sh.600036": "600036.SH",
		"sz.000001": "000001.SZ",
		"600036.SH": "600036.SH",
	}
	for in, want := range cases {
		if got := tushareCode(in); got != want {
			t.Errorf("tushareCode(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestFrameFromTushare(t *testing.T) {
	payload := `{"code":0,"data":{"fields":["ts_code","trade_date","open","close","vol","pct_chg"],
		"items":[["000001.SZ","20250603",10.2,10.6,98000,3.92],
		         ["000001.SZ","20250602",10.0,10.2,120000,2.0]]}}`
	f := frameFromTushare(gjson.Get(payload, "data"))
	if f.Len() != 2 {
		t.Fatalf("rows = %d", f.Len())
	}
	if f.Cell("trade_date", 0) != "20250603" || f.Cell("vol", 1) != "120000" {
		t.Errorf("cells wrong: %v / %v", f.Col("trade_date"), f.Col("vol"))
	}
	bars := BarsFromFrame(StandardizeFrame(f), "000001")
	if bars.Len() != 2 || bars.Latest().Close != 10.6 {
		t.Errorf("pipeline broke: %v", bars.Latest())
	}
	if bars.Latest().Code != "000001" {
		t.Errorf("exchange suffix not stripped: %s", bars.Latest().Code)
	}
}

func TestEMSecID(t *testing.T) {
	cases := map[string]string{
		"600036":    "1.600036",
		"000001":    "0.000001",
		"300750":    "0.300750",
		"sh.600036": "1.600036",
		"sz.000001": "0.000001",
		"600036.SH": "1.600036",
		"0700.HK":   "116.00700",
		"0700":      "116.00700",
	}
	for in, want := range cases {
		if got := emSecID(in); got != want {
			t.Errorf("emSecID(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestEMKlinePipeline(t *testing.T) {
	payload := `{"data":{"klines":[
		"2025-06-02,10.0,10.2,10.5,9.8,120000,1224000,7.0,2.0,0.2,1.1",
		"2025-06-03,10.2,10.6,10.8,10.1,98000,1038800,6.6,3.92,0.4,0.9"]}}`
	f := TranslateCNHeaders(emKlineFrame([]byte(payload)))
	for _, col := range []string{"date", "open", "close", "high", "low", "volume", "amount", "pct_change"} {
		if !f.Has(col) {
			t.Errorf("missing column %s after translation: %v", col, f.Cols())
		}
	}
	bars := BarsFromFrame(StandardizeFrame(f), "000001")
	if bars.Len() != 2 {
		t.Fatalf("rows = %d", bars.Len())
	}
	latest := bars.Latest()
	if latest.Close != 10.6 || latest.Volume != 98000 || latest.PctChange != 3.92 {
		t.Errorf("latest bar wrong: %s", latest)
	}
}

func TestPivotMainIndicators(t *testing.T) {
	payload := `{"result":{"data":[
		{"EPSJB":"2.0","BPS":"12.0","ROEJQ":"18.0","XSJLL":"22.0","ZCFZL":"91.0"},
		{"EPSJB":"1.8","BPS":"11.0","ROEJQ":"17.0","XSJLL":"21.0","ZCFZL":"90.0"}]}}`
	ind := PivotMainIndicators([]byte(payload))
	if ind["每股收益"] != "2.0" {
		t.Errorf("latest period not selected: %v", ind)
	}
	if ind["資產負債率"] != "91.0" || ind["淨資產收益率"] != "18.0" {
		t.Errorf("indicator names wrong: %v", ind)
	}
	if PivotMainIndicators([]byte(`{"result":{"data":[]}}`)) != nil {
		t.Errorf("empty payload must yield nil")
	}
}

func TestBaostockCode(t *testing.T) {
	cases := map[string]string{
		"600036":    "sh.600036",
		"000001":    "sz.000001",
		"300750":    "sz.300750",
		"830799":    "bj.830799",
		"sh.600036": "sh.600036",
	}
	for in, want := range cases {
		if got := baostockCode(in); got != want {
			t.Errorf("baostockCode(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestBSRecordFrame(t *testing.T) {
	fields := []string{
		"ok",
		`{"record":[["2025-06-02","sz.000001","10.0","10.5","9.8","10.2","120000","1224000","2.0"],
		            ["2025-06-03","sz.000001","10.2","10.8","10.1","10.6","98000","1038800","3.92"]]}`,
	}
	f := bsRecordFrame(fields, bsKDataCols)
	if f.Len() != 2 {
		t.Fatalf("rows = %d", f.Len())
	}
	f.Rename("pctChg", "pct_change")
	bars := BarsFromFrame(StandardizeFrame(f), "000001")
	if bars.Latest().Close != 10.6 {
		t.Errorf("pipeline broke: %s", bars.Latest())
	}
}

func TestQuoteToBar(t *testing.T) {
	q := gjson.Parse(`{"c":195.5,"d":2.4,"dp":1.24,"o":193.2,"h":196.1,"l":192.8,"pc":193.1}`)
	bar := quoteToBar("AAPL", q)
	if bar.Close != 195.5 || bar.Change != 2.4 || bar.PctChange != 1.24 {
		t.Errorf("bar wrong: %s", bar)
	}
}

func TestChartToBars(t *testing.T) {
	payload := `{"chart":{"result":[{"timestamp":[1753142400,1753228800],
		"indicators":{"quote":[{"open":[193.0,195.0],"high":[196.0,197.0],
		"low":[192.0,194.0],"close":[195.0,196.5],"volume":[1000000,900000]}]}}]}}`
	bars := chartToBars("AAPL", gjson.Parse(payload))
	if bars.Len() != 2 {
		t.Fatalf("rows = %d", bars.Len())
	}
	latest := bars.Latest()
	if latest.Close != 196.5 {
		t.Errorf("close wrong: %f", latest.Close)
	}
	if math.Abs(latest.Change-1.5) > 1e-9 {
		t.Errorf("change wrong: %f", latest.Change)
	}
	//null close rows are skipped
	gap := `{"chart":{"result":[{"timestamp":[1753142400,1753228800],
		"indicators":{"quote":[{"open":[193.0,null],"high":[196.0,null],
		"low":[192.0,null],"close":[195.0,null],"volume":[1000000,null]}]}}]}}`
	if got := chartToBars("AAPL", gjson.Parse(gap)); got.Len() != 1 {
		t.Errorf("null rows not skipped: %d", got.Len())
	}
}

func TestYahooSymbol(t *testing.T) {
	if got := yahooSymbol("00700"); got != "0700.HK" {
		t.Errorf("HK padding wrong: %s", got)
	}
	if got := yahooSymbol("aapl"); got != "AAPL" {
		t.Errorf("US symbol wrong: %s", got)
	}
}

func TestQtSymbol(t *testing.T) {
	cases := map[string]string{
		"600036":    "sh600036",
		"sh.600036": "sh600036",
		"sz.000001": "sz000001",
		"000001":    "sz000001",
		"0700.HK":   "hk0700",
		"AAPL":      "usAAPL",
	}
	for in, want := range cases {
		if got := qtSymbol(in); got != want {
			t.Errorf("qtSymbol(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestParseQtQuote(t *testing.T) {
	fields := make([]string, 40)
	fields[1] = "招商銀行"
	fields[2] = "600036"
	fields[3] = "34.40"
	fields[4] = "34.00"
	fields[5] = "34.10"
	fields[6] = "250000"
	fields[31] = "0.40"
	fields[32] = "1.18"
	payload := `v_sh600036="` + strings.Join(fields, "~") + `";`
	q, e := parseQtQuote(payload)
	if e != nil {
		t.Fatalf("parse failed: %+v", e)
	}
	if q.Name != "招商銀行" || q.Price != 34.40 || q.PctChange != 1.18 {
		t.Errorf("quote wrong: %+v", q)
	}
	if _, e := parseQtQuote("garbage"); e == nil {
		t.Errorf("malformed payload must fail")
	}
}
