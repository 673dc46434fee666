package convert

import (
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the minimal logging contract the converter needs. glog loggers
// satisfy it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	defaultLoggerOnce sync.Once
	defaultLoggerInst Logger
)

func defaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		root := glog.NewLogger(
			glog.WithLoggerTypeConsole(),
			glog.WithLevel(glog.Info),
		)
		defaultLoggerInst = root.GetLogger("convert")
	})
	return defaultLoggerInst
}
