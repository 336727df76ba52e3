// Package api provides factory implementations for dependency injection
package api

import (
	"context"

	"github.com/ssargent/parcel/pkg/storage"
)

// DefaultSpoolFactory opens pebble spools
type DefaultSpoolFactory struct{}

// NewSpoolFactory creates a new spool factory
func NewSpoolFactory() SpoolFactory {
	return &DefaultSpoolFactory{}
}

// OpenSpool opens a pebble spool
func (f *DefaultSpoolFactory) OpenSpool(config storage.Config) (SpoolCloser, error) {
	return storage.Open(config)
}

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, spool ISpool, config ServerConfig) error {
	return StartServer(ctx, spool, config)
}
