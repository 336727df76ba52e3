// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/parcel/pkg/api" //nolint:depguard
)

// Container holds all the dependencies for the application
type Container struct {
	spoolFactory  api.SpoolFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		spoolFactory:  api.NewSpoolFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetSpoolFactory returns the spool factory
func (c *Container) GetSpoolFactory() api.SpoolFactory {
	return c.spoolFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetSpoolFactory allows overriding the spool factory (for testing)
func (c *Container) SetSpoolFactory(factory api.SpoolFactory) {
	c.spoolFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
