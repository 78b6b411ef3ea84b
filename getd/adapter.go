package getd

import (
	"sync"

	"github.com/aiinpocket/TradingAgents-CN-sub001/model"
)

//dataFetcher is the capability every provider adapter implements. Adapters
//return empty series for "no data" and reserve errors for configuration or
//irrecoverable transport failures.
type dataFetcher interface {
	source() model.DataSource
	//healthy reports whether the adapter is usable (token present, etc).
	healthy() bool
	stockData(symbol, start, end string) (*model.Bars, error)
	stockInfo(symbol string) (*model.StockInfo, error)
}

//financialFetcher is implemented by adapters that can retrieve statements.
type financialFetcher interface {
	financialData(symbol string) (*model.FinancialStatements, error)
}

//stockSearcher is implemented by adapters with a symbol search endpoint.
type stockSearcher interface {
	searchStocks(keyword string) (*model.Frame, error)
}

//newsFetcher is implemented by adapters that can retrieve recent headlines.
type newsFetcher interface {
	stockNews(symbol string, limit int) (string, error)
}

//earningsFetcher is implemented by adapters with an earnings-history endpoint.
type earningsFetcher interface {
	earnings(symbol string) (string, error)
}

var (
	fmLock sync.Mutex
	fmap   map[model.DataSource]dataFetcher
)

func registerFetcher(f dataFetcher) {
	fmLock.Lock()
	defer fmLock.Unlock()
	if fmap == nil {
		fmap = make(map[model.DataSource]dataFetcher)
	}
	fmap[f.source()] = f
}

func init() {
	registerFetcher(tuShare())
	registerFetcher(akShare())
	registerFetcher(baoStock())
	registerFetcher(finnHub())
	registerFetcher(yFinance())
}
