package routes

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/gofiber/fiber/v2"
	"google.golang.org/protobuf/proto"
)

func GtfsrtRouter(router fiber.Router, service *tracker.Service) {
	router.Get("/vehicle-positions", getVehiclePositions(service))
}

// getVehiclePositions exports every online cached location as a GTFS-RT
// VehiclePosition feed for third party consumers
func getVehiclePositions(service *tracker.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var locations []*ftdf.VehicleLocation
		if tenantParam := c.Query("tenant"); tenantParam != "" {
			locations = service.Cache.AllForTenant(ftdf.TenantIdentifier(tenantParam))
		} else {
			locations = service.Cache.All()
		}

		now := service.Now()

		feed := gtfs.FeedMessage{
			Header: &gtfs.FeedHeader{
				GtfsRealtimeVersion: proto.String("2.0"),
				Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
				Timestamp:           proto.Uint64(uint64(now.Unix())),
			},
		}

		for _, location := range locations {
			if !location.IsOnline(now, service.Cache.OfflineThreshold()) {
				continue
			}

			vehiclePosition := &gtfs.VehiclePosition{
				Vehicle: &gtfs.VehicleDescriptor{
					Id:    proto.String(location.VehicleRef),
					Label: proto.String(location.VehicleName),
				},
				Position: &gtfs.Position{
					Latitude:  proto.Float32(float32(location.Location.Latitude())),
					Longitude: proto.Float32(float32(location.Location.Longitude())),

					// GTFS-RT speeds are meters per second
					Speed: proto.Float32(float32(location.SpeedKmh / 3.6)),
				},
				Timestamp: proto.Uint64(uint64(location.CapturedAt.Unix())),
			}

			if location.Bearing != nil {
				vehiclePosition.Position.Bearing = proto.Float32(float32(*location.Bearing))
			}

			feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
				Id:      proto.String(location.VehicleRef),
				Vehicle: vehiclePosition,
			})
		}

		feedBytes, err := proto.Marshal(&feed)
		if err != nil {
			c.SendStatus(fiber.StatusInternalServerError)
			return c.JSON(fiber.Map{
				"error": "Could not marshal GTFS-RT feed",
			})
		}

		c.Set("Content-Type", "application/x-protobuf")
		return c.Send(feedBytes)
	}
}
