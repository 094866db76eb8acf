package config

import (
	"github.com/MonkyMars/gecho"
)

// InitializeLogger builds the process logger at the configured level.
// Callers outside main receive the logger by injection.
func InitializeLogger() *gecho.Logger {
	return gecho.NewLogger(gecho.NewConfig(
		gecho.WithShowCaller(!IsProduction()),
		gecho.WithLogLevel(gecho.ParseLogLevel(GetLogLevel())),
	))
}
