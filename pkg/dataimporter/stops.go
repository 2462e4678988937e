package dataimporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stopRecord struct {
	Vehicle string `csv:"vehicle"`
	Order   int    `csv:"order"`

	Name string `csv:"name"`

	Latitude  float64 `csv:"lat"`
	Longitude float64 `csv:"lon"`
}

// ImportStops replaces the route of every vehicle named in the file. Orders
// must run 1..N per vehicle with no gaps or duplicates - anything else
// rejects the whole file before a single write happens.
func ImportStops(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var records []*stopRecord
	if err := gocsv.Unmarshal(file, &records); err != nil {
		return err
	}

	perVehicle := map[string][]*stopRecord{}
	for _, record := range records {
		if record.Vehicle == "" {
			return fmt.Errorf("stop record is missing a vehicle")
		}

		vehicleRef := ftdf.VehicleIdentifier(record.Vehicle)
		perVehicle[vehicleRef] = append(perVehicle[vehicleRef], record)
	}

	now := time.Now()
	datasource := &ftdf.DataSource{
		OriginalFormat: "csv",
		Provider:       "registry-import",
		Dataset:        filepath.Base(filePath),
		Identifier:     now.Format(time.RFC3339),
	}

	vehiclesCollection := database.GetCollection("vehicles")

	var operations []mongo.WriteModel

	for vehicleRef, vehicleStops := range perVehicle {
		var vehicle *ftdf.Vehicle
		vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": vehicleRef}).Decode(&vehicle)

		if vehicle == nil {
			return fmt.Errorf("stops reference unknown vehicle %s", vehicleRef)
		}

		sort.Slice(vehicleStops, func(i, j int) bool {
			return vehicleStops[i].Order < vehicleStops[j].Order
		})

		for index, record := range vehicleStops {
			if record.Order != index+1 {
				return fmt.Errorf("stop orders for vehicle %s must run 1..%d without gaps or duplicates", vehicleRef, len(vehicleStops))
			}

			location := ftdf.NewLocation(record.Latitude, record.Longitude)
			if err := location.Validate(); err != nil {
				return fmt.Errorf("stop %d for vehicle %s: %w", record.Order, vehicleRef, err)
			}

			stop := &ftdf.Stop{
				PrimaryIdentifier: ftdf.StopIdentifier(vehicleRef, record.Order),

				VehicleRef: vehicleRef,
				TenantRef:  vehicle.TenantRef,

				Name: record.Name,

				Location: &location,

				Order: record.Order,

				CreationDateTime:     now.Format(time.RFC3339),
				ModificationDateTime: now.Format(time.RFC3339),

				DataSource: datasource,
			}

			bsonRep, _ := bson.Marshal(bson.M{"$set": stop})
			updateModel := mongo.NewUpdateOneModel()
			updateModel.SetFilter(bson.M{"primaryidentifier": stop.PrimaryIdentifier})
			updateModel.SetUpdate(bsonRep)
			updateModel.SetUpsert(true)

			operations = append(operations, updateModel)
		}

		// Replacing a route with a shorter one must not leave orphan rows
		deleteModel := mongo.NewDeleteManyModel()
		deleteModel.SetFilter(bson.M{"vehicleref": vehicleRef, "order": bson.M{"$gt": len(vehicleStops)}})

		operations = append(operations, deleteModel)
	}

	if len(operations) > 0 {
		stopsCollection := database.GetCollection("stops")
		if _, err := stopsCollection.BulkWrite(context.Background(), operations, &options.BulkWriteOptions{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to bulk write Stops")
		}
	}

	log.Info().Int("vehicles", len(perVehicle)).Str("file", filePath).Msg("Imported stops")

	return nil
}
