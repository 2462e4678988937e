package routes

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// EnsureVehicleToken is a middleware that authenticates a device against the
// ingest token held in the vehicle registry. It runs before any state is
// touched & deliberately answers unknown vehicles and bad tokens identically.
func EnsureVehicleToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Authorization bearer token is required",
			})
		}

		suppliedToken := strings.TrimPrefix(authHeader, "Bearer ")

		identifier := ftdf.VehicleIdentifier(c.Params("identifier"))

		vehiclesCollection := database.GetCollection("vehicles")
		var vehicle *ftdf.Vehicle
		vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

		if vehicle == nil || vehicle.IngestToken == "" ||
			subtle.ConstantTimeCompare([]byte(suppliedToken), []byte(vehicle.IngestToken)) != 1 {
			c.SendStatus(fiber.StatusUnauthorized)
			return c.JSON(fiber.Map{
				"error": "Invalid ingest token",
			})
		}

		c.Locals("vehicle", vehicle)

		return c.Next()
	}
}
