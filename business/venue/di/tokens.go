// Package di exposes typed DI tokens for the venue context.
package di

import (
	"github.com/fd1az/dexarb/business/venue/app"
	"github.com/fd1az/dexarb/internal/di"
)

// Public services exposed to other modules.
var (
	VenueRegistry = di.NewToken[*app.Registry]("venue.Registry")
)

// GetVenueRegistry resolves the venue registry.
func GetVenueRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, VenueRegistry)
}
