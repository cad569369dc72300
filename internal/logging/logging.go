// Package logging builds the service logger. The logger is passed in
// explicitly everywhere; there is no package-level singleton.
package logging

import "go.uber.org/zap"

// New returns a JSON logger in production mode and a human-readable console
// logger otherwise.
func New(mode string) (*zap.Logger, error) {
	if mode == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
