package getd

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
	"github.com/aiinpocket/TradingAgents-CN-sub001/util"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	bsHost    = "www.baostock.com:10030"
	bsVersion = "1.0.8"
	bsSplit   = "\x01"

	bsTypeLogin       = "10"
	bsTypeLogout      = "11"
	bsTypeKData       = "20"
	bsTypeStockBasic  = "26"
	bsHeaderLen       = 30
	bsReaderBuf       = 1 << 20
	bsSessionUser     = "anonymous"
	bsSessionPassword = "123456"
)

//BaoStockFetcher is the last-resort CN provider. The upstream speaks a
//framed TCP protocol that requires a login/logout pair per session.
type BaoStockFetcher struct {
	mu sync.Mutex
}

var (
	bsInstance *BaoStockFetcher
	bsOnce     sync.Once
)

func baoStock() *BaoStockFetcher {
	bsOnce.Do(func() {
		bsInstance = &BaoStockFetcher{}
	})
	return bsInstance
}

func (f *BaoStockFetcher) source() model.DataSource {
	return model.BaoStock
}

func (f *BaoStockFetcher) healthy() bool {
	return true
}

//baostockCode maps a bare A-share code onto the sh./sz. session format.
func baostockCode(symbol string) string {
	s := strings.ToLower(symbol)
	if strings.HasPrefix(s, "sh.") || strings.HasPrefix(s, "sz.") || strings.HasPrefix(s, "bj.") {
		return s
	}
	s = bareCode(strings.ToUpper(symbol))
	switch {
	case strings.HasPrefix(s, "6"):
		return "sh." + s
	case strings.HasPrefix(s, "8"), strings.HasPrefix(s, "4"):
		return "bj." + s
	default:
		return "sz." + s
	}
}

type bsSession struct {
	conn net.Conn
	rd   *bufio.Reader
}

func bsDial() (*bsSession, error) {
	conn, e := net.DialTimeout("tcp", bsHost,
		time.Duration(conf.Args.Network.HTTPTimeout)*time.Second)
	if e != nil {
		return nil, errors.Wrap(e, "failed to connect baostock")
	}
	s := &bsSession{conn: conn, rd: bufio.NewReaderSize(conn, bsReaderBuf)}
	if e := s.login(); e != nil {
		conn.Close()
		return nil, e
	}
	return s, nil
}

func (s *bsSession) close() {
	body := strings.Join([]string{"logout", bsSessionUser}, bsSplit)
	s.roundTrip(bsTypeLogout, body)
	s.conn.Close()
}

func (s *bsSession) login() error {
	body := strings.Join([]string{"login", bsSessionUser, bsSessionPassword, "0"}, bsSplit)
	fields, e := s.roundTrip(bsTypeLogin, body)
	if e != nil {
		return errors.Wrap(e, "baostock login failed")
	}
	if len(fields) > 0 && fields[0] != "0" {
		return errors.Errorf("baostock login rejected: %v", fields)
	}
	return nil
}

//roundTrip frames one request and returns the response body fields past the
//error code/message pair. The frame is version+type+length header, split-
//joined body and a trailing crc32.
func (s *bsSession) roundTrip(msgType, body string) ([]string, error) {
	header := fmt.Sprintf("%-10s%-10s%010d", bsVersion, msgType, len(body))
	crc := fmt.Sprintf("%010d", crc32.ChecksumIEEE([]byte(header+body)))
	if _, e := s.conn.Write([]byte(header + body + bsSplit + crc + "\n")); e != nil {
		return nil, errors.Wrap(e, "baostock write failed")
	}
	line, e := s.rd.ReadString('\n')
	if e != nil {
		return nil, errors.Wrap(e, "baostock read failed")
	}
	if len(line) < bsHeaderLen {
		return nil, errors.Errorf("short baostock response: %q", line)
	}
	fields := strings.Split(strings.TrimRight(line[bsHeaderLen:], "\n"), bsSplit)
	if len(fields) < 3 {
		return nil, errors.Errorf("malformed baostock response: %q", line)
	}
	if fields[1] != "0" {
		return nil, errors.Errorf("baostock error %s: %s", fields[1], fields[2])
	}
	return fields[3:], nil
}

//bsRecordFrame rebuilds a frame from the JSON record payload trailing a query
//response.
func bsRecordFrame(fields []string, cols []string) *model.Frame {
	f := model.NewFrame(cols...)
	for _, field := range fields {
		if !strings.Contains(field, "\"record\"") {
			continue
		}
		for _, row := range gjson.Get(field, "record").Array() {
			cells := make([]string, 0, len(cols))
			for _, c := range row.Array() {
				cells = append(cells, c.String())
			}
			if len(cells) == len(cols) {
				f.Append(cells...)
			}
		}
		break
	}
	return f
}

var bsKDataCols = []string{"date", "code", "open", "high", "low", "close", "volume", "amount", "pctChg"}

func (f *BaoStockFetcher) stockData(symbol, start, end string) (*model.Bars, error) {
	if start == "" || end == "" {
		start, end = util.DefaultDateRange(365)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, e := bsDial()
	if e != nil {
		log.Warnf("baostock session failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	defer s.close()

	body := strings.Join([]string{
		"query_history_k_data", bsSessionUser, baostockCode(symbol),
		strings.Join(bsKDataCols, ","),
		util.CanonicalDate(start), util.CanonicalDate(end), "d", "3",
	}, bsSplit)
	fields, e := s.roundTrip(bsTypeKData, body)
	if e != nil {
		log.Warnf("baostock k-data query failed for %s: %+v", symbol, e)
		return &model.Bars{Code: symbol, PriceType: model.PriceTypeRaw}, nil
	}
	frame := bsRecordFrame(fields, bsKDataCols)
	frame.Rename("pctChg", "pct_change")
	bars := BarsFromFrame(StandardizeFrame(frame), bareCode(symbol))
	if bars.Empty() {
		log.Warnf("baostock returned no rows for %s [%s, %s]", symbol, start, end)
		return bars, nil
	}
	//adjustflag=3 serves un-adjusted prices
	return ForwardAdjust(bars), nil
}

var bsBasicCols = []string{"code", "code_name", "ipoDate", "outDate", "type", "status"}

func (f *BaoStockFetcher) stockInfo(symbol string) (*model.StockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, e := bsDial()
	if e != nil {
		return nil, e
	}
	defer s.close()

	body := strings.Join([]string{
		"query_stock_basic", bsSessionUser, baostockCode(symbol),
	}, bsSplit)
	fields, e := s.roundTrip(bsTypeStockBasic, body)
	if e != nil {
		return nil, e
	}
	frame := bsRecordFrame(fields, bsBasicCols)
	if frame.Empty() {
		return nil, errors.Errorf("baostock has no basic record for %s", symbol)
	}
	return &model.StockInfo{
		Symbol:   bareCode(symbol),
		Name:     frame.Cell("code_name", 0),
		ListDate: frame.Cell("ipoDate", 0),
		Source:   model.BaoStock,
	}, nil
}
