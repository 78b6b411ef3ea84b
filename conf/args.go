package conf

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Args Global Application Arguments
var Args Arguments

// China data sources
const (
	Tushare  string = "tushare"
	AKShare  string = "akshare"
	BaoStock string = "baostock"
)

// US / HK data sources
const (
	FinnHub  string = "finnhub"
	YFinance string = "yfinance"
)

//Arguments arguments struct type
type Arguments struct {
	DefaultRetry int    `mapstructure:"default_retry"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
	Network      struct {
		HTTPTimeout      int    `mapstructure:"http_timeout"`
		MasterProxyAddr  string `mapstructure:"master_proxy_addr"`
		DefaultUserAgent string `mapstructure:"default_user_agent"`
		//YFMinIntervalUS minimum seconds between Yahoo calls for US symbols
		YFMinIntervalUS float64 `mapstructure:"yf_min_interval_us"`
		//YFMinIntervalHK Yahoo throttles HK regional endpoints harder
		YFMinIntervalHK float64 `mapstructure:"yf_min_interval_hk"`
	}
	DataSource struct {
		//DefaultChinaSource one of tushare / akshare / baostock
		DefaultChinaSource string `mapstructure:"default_china_source"`
		TushareToken       string `mapstructure:"tushare_token"`
		TushareAPIURL      string `mapstructure:"tushare_api_url"`
		FinnHubAPIKey      string `mapstructure:"finnhub_api_key"`
		KlineFailureRetry  int    `mapstructure:"kline_failure_retry"`
	}
	Cache struct {
		Dir               string `mapstructure:"dir"`
		MaxContentLength  int    `mapstructure:"max_content_length"`
		EnableLengthCheck bool   `mapstructure:"enable_length_check"`
		NewsCacheHours    int    `mapstructure:"news_cache_hours"`
		NewsCacheEnabled  bool   `mapstructure:"news_cache_enabled"`
		//LongTextKeys env var names whose presence marks a long-context capable provider
		LongTextKeys []string `mapstructure:"long_text_keys"`
	}
}

func init() {
	//.env is optional, absence is not an error
	godotenv.Load()
	setDefaults()
	bindEnv()
	viper.SetConfigName("tradingagents")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.Errorf("config file error: %+v", err)
		}
	}
	err = viper.Unmarshal(&Args)
	if err != nil {
		logrus.Errorf("config file error: %+v", err)
		return
	}
	Args.DataSource.DefaultChinaSource = strings.ToLower(Args.DataSource.DefaultChinaSource)
	checkConfig()
}

func bindEnv() {
	viper.BindEnv("data_source.tushare_token", "TUSHARE_TOKEN")
	viper.BindEnv("data_source.finnhub_api_key", "FINNHUB_API_KEY")
	viper.BindEnv("data_source.default_china_source", "DEFAULT_CHINA_DATA_SOURCE")
	viper.BindEnv("cache.max_content_length", "MAX_CACHE_CONTENT_LENGTH")
	viper.BindEnv("cache.enable_length_check", "ENABLE_CACHE_LENGTH_CHECK")
	viper.BindEnv("cache.news_cache_hours", "NEWS_CACHE_HOURS")
	viper.BindEnv("cache.news_cache_enabled", "NEWS_CACHE_ENABLED")
}

func checkConfig() {
	switch Args.DataSource.DefaultChinaSource {
	case Tushare, AKShare, BaoStock:
	default:
		logrus.Warnf("unsupported default china data source %q, falling back to %s",
			Args.DataSource.DefaultChinaSource, AKShare)
		Args.DataSource.DefaultChinaSource = AKShare
	}
	if Args.DefaultRetry <= 0 {
		Args.DefaultRetry = 3
	}
}

func setDefaults() {
	Args.DefaultRetry = 3
	Args.LogLevel = "info"
	Args.Network.HTTPTimeout = 60
	Args.Network.DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
	Args.Network.YFMinIntervalUS = 1.0
	Args.Network.YFMinIntervalHK = 5.0
	Args.DataSource.DefaultChinaSource = AKShare
	Args.DataSource.TushareAPIURL = "http://api.tushare.pro"
	Args.DataSource.KlineFailureRetry = 3
	Args.Cache.Dir = "data_cache"
	Args.Cache.MaxContentLength = 50000
	Args.Cache.EnableLengthCheck = false
	//0 defers to the per-pool TTL table; NEWS_CACHE_HOURS overrides all pools
	Args.Cache.NewsCacheHours = 0
	Args.Cache.NewsCacheEnabled = true
	Args.Cache.LongTextKeys = []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY"}

	viper.SetDefault("default_retry", Args.DefaultRetry)
	viper.SetDefault("log_level", Args.LogLevel)
	viper.SetDefault("network.http_timeout", Args.Network.HTTPTimeout)
	viper.SetDefault("network.default_user_agent", Args.Network.DefaultUserAgent)
	viper.SetDefault("network.yf_min_interval_us", Args.Network.YFMinIntervalUS)
	viper.SetDefault("network.yf_min_interval_hk", Args.Network.YFMinIntervalHK)
	viper.SetDefault("data_source.default_china_source", Args.DataSource.DefaultChinaSource)
	viper.SetDefault("data_source.tushare_api_url", Args.DataSource.TushareAPIURL)
	viper.SetDefault("data_source.kline_failure_retry", Args.DataSource.KlineFailureRetry)
	viper.SetDefault("cache.dir", Args.Cache.Dir)
	viper.SetDefault("cache.max_content_length", Args.Cache.MaxContentLength)
	viper.SetDefault("cache.enable_length_check", Args.Cache.EnableLengthCheck)
	viper.SetDefault("cache.news_cache_hours", Args.Cache.NewsCacheHours)
	viper.SetDefault("cache.news_cache_enabled", Args.Cache.NewsCacheEnabled)
	viper.SetDefault("cache.long_text_keys", Args.Cache.LongTextKeys)
}
