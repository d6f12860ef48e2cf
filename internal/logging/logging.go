// Package logging builds the application's zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a colored console logger when
// mode is "development".
func New(mode string) (*zap.Logger, error) {
	if mode == "development" {
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return conf.Build()
	}
	conf := zap.NewProductionConfig()
	conf.DisableStacktrace = true
	return conf.Build()
}
