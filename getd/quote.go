package getd

import (
	"strconv"
	"strings"

	"github.com/aiinpocket/TradingAgents-CN-sub001/market"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
)

const qtQuoteURL = "http://qt.gtimg.cn/q="

//RealtimeQuote is a point-in-time quote from the Tencent endpoint.
type RealtimeQuote struct {
	Code      string
	Name      string
	Price     float64
	PrevClose float64
	Open      float64
	Volume    float64
	Change    float64
	PctChange float64
}

//qtSymbol maps a ticker to Tencent's prefixed code.
func qtSymbol(symbol string) string {
	mi := market.Classify(symbol)
	switch {
	case mi.IsCNA:
		code := bareCode(symbol)
		if strings.HasPrefix(code, "6") {
			return "sh" + code
		}
		return "sz" + code
	case mi.IsHK:
		return "hk" + strings.TrimSuffix(market.NormalizeHKTicker(symbol), ".HK")
	default:
		return "us" + strings.ToUpper(symbol)
	}
}

//parseQtQuote splits the tilde-delimited payload decoded from GBK.
//Field layout: 1 name, 2 code, 3 price, 4 prev close, 5 open, 6 volume,
//31 change, 32 pct change.
func parseQtQuote(payload string) (*RealtimeQuote, error) {
	i := strings.Index(payload, "\"")
	j := strings.LastIndex(payload, "\"")
	if i < 0 || j <= i {
		return nil, errors.Errorf("malformed quote payload: %q", payload)
	}
	fields := strings.Split(payload[i+1:j], "~")
	if len(fields) < 33 {
		return nil, errors.Errorf("truncated quote payload: %d fields", len(fields))
	}
	pf := func(idx int) float64 {
		v, _ := strconv.ParseFloat(fields[idx], 64)
		return v
	}
	return &RealtimeQuote{
		Name:      fields[1],
		Code:      fields[2],
		Price:     pf(3),
		PrevClose: pf(4),
		Open:      pf(5),
		Volume:    pf(6),
		Change:    pf(31),
		PctChange: pf(32),
	}, nil
}

//GetRealtimeQuote fetches a live quote from the Tencent endpoint, which
//responds in GBK.
func GetRealtimeQuote(symbol string) (*RealtimeQuote, error) {
	body, e := util.HTTPGetBody(qtQuoteURL+qtSymbol(symbol), nil)
	if e != nil {
		return nil, errors.Wrapf(e, "realtime quote fetch failed for %s", symbol)
	}
	decoded, e := util.DecodeGBK(body)
	if e != nil {
		return nil, errors.Wrapf(e, "failed to decode quote payload for %s", symbol)
	}
	return parseQtQuote(decoded)
}
