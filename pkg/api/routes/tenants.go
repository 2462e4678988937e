package routes

import (
	"context"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const liveBoardMaxGoroutines = 25

func TenantsRouter(router fiber.Router, service *tracker.Service) {
	router.Get("/:identifier", getTenant)
	router.Get("/:identifier/vehicles", getTenantVehicles(service))
}

func getTenant(c *fiber.Ctx) error {
	identifier := ftdf.TenantIdentifier(c.Params("identifier"))

	tenantsCollection := database.GetCollection("tenants")
	var tenant *ftdf.Tenant
	tenantsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&tenant)

	if tenant == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Tenant matching Tenant Identifier",
		})
	}

	reducedTenant, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, tenant)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce Tenant",
		})
	}

	return c.JSON(reducedTenant)
}

// getTenantVehicles assembles the live board - a snapshot of every registered
// vehicle in the fleet, online or not, in one response
func getTenantVehicles(service *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := ftdf.TenantIdentifier(c.Params("identifier"))

		tenantsCollection := database.GetCollection("tenants")
		var tenant *ftdf.Tenant
		tenantsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&tenant)

		if tenant == nil {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Tenant matching Tenant Identifier",
			})
		}

		vehiclesCollection := database.GetCollection("vehicles")
		opts := options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}})

		cursor, err := vehiclesCollection.Find(context.Background(), bson.M{"tenantref": tenant.PrimaryIdentifier}, opts)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Could not query Vehicles for Tenant",
			})
		}

		var vehicles []*ftdf.Vehicle
		if err := cursor.All(context.Background(), &vehicles); err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Could not decode Vehicles for Tenant",
			})
		}

		assemblyPool := pool.NewWithResults[*tracker.VehicleSnapshot]().WithMaxGoroutines(liveBoardMaxGoroutines)

		for _, vehicle := range vehicles {
			assemblyPool.Go(func() *tracker.VehicleSnapshot {
				return service.Snapshot(context.Background(), vehicle, "", nil)
			})
		}

		snapshots := assemblyPool.Wait()
		if snapshots == nil {
			snapshots = []*tracker.VehicleSnapshot{}
		}

		reducedSnapshots, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, snapshots)

		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sheriff could not reduce VehicleSnapshots",
			})
		}

		return c.JSON(reducedSnapshots)
	}
}
