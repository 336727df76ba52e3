// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/parcel/pkg/storage"
)

// SpoolCloser is a spool the caller must close
type SpoolCloser interface {
	ISpool
	Close() error
}

// SpoolFactory opens spools
type SpoolFactory interface {
	// OpenSpool opens the spool described by config
	OpenSpool(config storage.Config) (SpoolCloser, error)
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is done
	StartServer(ctx context.Context, spool ISpool, config ServerConfig) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
