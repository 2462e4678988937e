package api

import (
	"github.com/fleetpulse/fleetpulse/pkg/api/routes"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/gofiber/fiber/v2"
)

func SetupServer(listen string, service *tracker.Service) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.VehiclesRouter(group.Group("/vehicles"), service)
	routes.TenantsRouter(group.Group("/tenants", EnsureValidToken()), service)
	routes.GtfsrtRouter(group.Group("/gtfsrt"), service)

	return webApp.Listen(listen)
}
