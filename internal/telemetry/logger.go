// Package telemetry wires the structured logging and Prometheus metrics
// SPEC_FULL.md's ambient stack calls for.
package telemetry

import (
	"go.uber.org/zap"
)

// NewLogger builds a production zap logger, or a development logger
// with human-friendly console output when dev is true.
func NewLogger(dev bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
