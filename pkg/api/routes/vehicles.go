package routes

import (
	"context"
	"strings"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var validate = validator.New()

func VehiclesRouter(router fiber.Router, service *tracker.Service) {
	router.Get("/:identifier", getVehicle)
	router.Get("/:identifier/location", getVehicleLocation(service))
	router.Get("/:identifier/stops", getVehicleStops)

	router.Post("/:identifier/location", EnsureVehicleToken(), submitVehicleLocation(service))
	router.Post("/:identifier/stop-tracking", EnsureVehicleToken(), stopVehicleTracking(service))
}

// locationSubmission is the wire form of a device fix. Coordinates are
// pointers so a genuine zero (the equator, the meridian) survives the
// required check.
type locationSubmission struct {
	Latitude  *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"lon" validate:"required,gte=-180,lte=180"`

	SpeedKmh  float64  `json:"speed_kmh" validate:"gte=0"`
	Bearing   *float64 `json:"bearing" validate:"omitempty,gte=0,lt=360"`
	AccuracyM *float64 `json:"accuracy_m" validate:"omitempty,gte=0"`
	AltitudeM *float64 `json:"altitude_m"`

	Source string `json:"source" validate:"omitempty,oneof=DEVICE APP"`
}

func getVehicle(c *fiber.Ctx) error {
	identifier := ftdf.VehicleIdentifier(c.Params("identifier"))

	vehiclesCollection := database.GetCollection("vehicles")
	var vehicle *ftdf.Vehicle
	vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

	if vehicle == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Vehicle Identifier",
		})
	}

	reducedVehicle, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, vehicle)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce Vehicle",
		})
	}

	return c.JSON(reducedVehicle)
}

func getVehicleLocation(service *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := ftdf.VehicleIdentifier(c.Params("identifier"))

		vehiclesCollection := database.GetCollection("vehicles")
		var vehicle *ftdf.Vehicle
		vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

		// A tenant scope that doesn't own the vehicle reveals nothing
		if tenantParam := c.Query("tenant"); vehicle != nil && tenantParam != "" && ftdf.TenantIdentifier(tenantParam) != vehicle.TenantRef {
			vehicle = nil
		}

		if vehicle == nil {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find Vehicle matching Vehicle Identifier",
			})
		}

		selectedStop := c.Query("selected_stop")

		var priorReached []string
		if reachedParam := c.Query("reached"); reachedParam != "" {
			priorReached = strings.Split(reachedParam, ",")
		}

		snapshot := service.Snapshot(context.Background(), vehicle, selectedStop, priorReached)

		reducedSnapshot, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic", "detailed"},
		}, snapshot)

		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sheriff could not reduce VehicleSnapshot",
			})
		}

		return c.JSON(reducedSnapshot)
	}
}

func getVehicleStops(c *fiber.Ctx) error {
	identifier := ftdf.VehicleIdentifier(c.Params("identifier"))

	vehiclesCollection := database.GetCollection("vehicles")
	var vehicle *ftdf.Vehicle
	vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

	if vehicle == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Vehicle Identifier",
		})
	}

	stopsCollection := database.GetCollection("stops")
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cursor, err := stopsCollection.Find(context.Background(), bson.M{"vehicleref": identifier}, opts)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not query Stops for Vehicle",
		})
	}

	stops := []*ftdf.Stop{}
	if err := cursor.All(context.Background(), &stops); err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Could not decode Stops for Vehicle",
		})
	}

	reducedStops, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, stops)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sheriff could not reduce Stops",
		})
	}

	return c.JSON(reducedStops)
}

func submitVehicleLocation(service *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicle := c.Locals("vehicle").(*ftdf.Vehicle)

		var submission locationSubmission
		if err := c.BodyParser(&submission); err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Could not parse location submission",
			})
		}

		if err := validate.Struct(submission); err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		fix := &ftdf.Fix{
			Location: ftdf.NewLocation(*submission.Latitude, *submission.Longitude),

			SpeedKmh:  submission.SpeedKmh,
			Bearing:   submission.Bearing,
			AccuracyM: submission.AccuracyM,
			AltitudeM: submission.AltitudeM,

			Source: ftdf.FixSource(submission.Source),
		}

		if _, err := service.Ingest(context.Background(), vehicle, fix); err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		snapshot := service.Snapshot(context.Background(), vehicle, "", nil)

		reducedSnapshot, err := sheriff.Marshal(&sheriff.Options{
			Groups: []string{"basic"},
		}, snapshot)

		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Sheriff could not reduce VehicleSnapshot",
			})
		}

		return c.JSON(reducedSnapshot)
	}
}

func stopVehicleTracking(service *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicle := c.Locals("vehicle").(*ftdf.Vehicle)

		if !service.StopTracking(vehicle) {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "No tracked location exists for this Vehicle",
			})
		}

		return c.JSON(fiber.Map{
			"status": "offline",
		})
	}
}
