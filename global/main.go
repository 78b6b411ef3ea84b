package global

import (
	"io"
	"os"

	"github.com/aiinpocket/TradingAgents-CN-sub001/conf"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	//Log shared logger for all packages
	Log = logrus.New()
)

const (
	//DateFormat canonical date string layout
	DateFormat = "2006-01-02"
	//CompactDateFormat layout used by upstream daily endpoints
	CompactDateFormat = "20060102"
)

func init() {
	switch conf.Args.LogLevel {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	case "panic":
		Log.SetLevel(logrus.PanicLevel)
	}

	Log.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})

	if conf.Args.LogFile != "" {
		logFile, e := os.OpenFile(conf.Args.LogFile, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
		if e != nil {
			Log.Warnf("failed to open log file %s: %+v", conf.Args.LogFile, e)
			return
		}
		mw := io.MultiWriter(os.Stdout, logFile)
		Log.SetOutput(mw)
	}
}
