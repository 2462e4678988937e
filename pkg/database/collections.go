package database

import (
	"context"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/senseyeio/duration"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultHistoryRetention = "P30D"

func createIndexes() {
	createRegistryIndexes()
	createHistoryIndexes()
}

func createRegistryIndexes() {
	// Vehicles
	vehiclesCollection := GetCollection("vehicles")
	vehiclesIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tenantref", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := vehiclesCollection.Indexes().CreateMany(context.Background(), vehiclesIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Tenants
	tenantsCollection := GetCollection("tenants")
	tenantsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
	}

	opts = options.CreateIndexes()
	_, err = tenantsCollection.Indexes().CreateMany(context.Background(), tenantsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Stops
	stopsCollection := GetCollection("stops")
	stopsIndex := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "vehicleref", Value: 1},
				{Key: "order", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "location.coordinates", Value: "2d"}},
		},
	}

	opts = options.CreateIndexes()
	_, err = stopsCollection.Indexes().CreateMany(context.Background(), stopsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createHistoryIndexes() {
	historyCollection := GetCollection("location_history")
	_, err := historyCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "vehicleref", Value: 1},
				{Key: "recordedat", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "recordedat", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(HistoryRetentionSeconds()),
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

// HistoryRetentionSeconds resolves the location history retention window from
// the FLEETPULSE_HISTORY_RETENTION ISO8601 period (default P30D)
func HistoryRetentionSeconds() int32 {
	retention := util.GetEnvironmentVariable("FLEETPULSE_HISTORY_RETENTION", defaultHistoryRetention)

	period, err := duration.ParseISO8601(retention)
	if err != nil {
		log.Error().Err(err).Str("retention", retention).Msg("Invalid history retention period, using default")
		period, _ = duration.ParseISO8601(defaultHistoryRetention)
	}

	now := time.Now()
	return int32(period.Shift(now).Sub(now).Seconds())
}
