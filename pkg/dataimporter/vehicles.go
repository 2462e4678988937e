package dataimporter

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type vehicleRecord struct {
	Identifier string `csv:"identifier"`
	Tenant     string `csv:"tenant"`

	Name         string `csv:"name"`
	OperatorName string `csv:"operator_name"`
	Registration string `csv:"registration"`

	IngestToken string `csv:"ingest_token"`
}

func ImportVehicles(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var records []*vehicleRecord
	if err := gocsv.Unmarshal(file, &records); err != nil {
		return err
	}

	now := time.Now()
	datasource := &ftdf.DataSource{
		OriginalFormat: "csv",
		Provider:       "registry-import",
		Dataset:        filepath.Base(filePath),
		Identifier:     now.Format(time.RFC3339),
	}

	tenantsCollection := database.GetCollection("tenants")
	vehiclesCollection := database.GetCollection("vehicles")

	knownTenants := map[string]bool{}

	var operations []mongo.WriteModel

	for index, record := range records {
		if record.Identifier == "" || record.Tenant == "" {
			return fmt.Errorf("vehicle record %d is missing an identifier or tenant", index+1)
		}

		tenantRef := ftdf.TenantIdentifier(record.Tenant)

		if !knownTenants[tenantRef] {
			var tenant *ftdf.Tenant
			tenantsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": tenantRef}).Decode(&tenant)

			if tenant == nil {
				return fmt.Errorf("vehicle record %d references unknown tenant %s", index+1, tenantRef)
			}

			knownTenants[tenantRef] = true
		}

		identifier := ftdf.VehicleIdentifier(record.Identifier)

		// A blank token column keeps an existing token, so a re-import never
		// breaks devices already enrolled with theirs
		ingestToken := record.IngestToken
		if ingestToken == "" {
			var existing *ftdf.Vehicle
			vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&existing)

			if existing != nil && existing.IngestToken != "" {
				ingestToken = existing.IngestToken
			} else {
				ingestToken = generateIngestToken()
				log.Info().Str("vehicle", identifier).Str("ingesttoken", ingestToken).Msg("Generated new ingest token")
			}
		}

		vehicle := &ftdf.Vehicle{
			PrimaryIdentifier: identifier,

			TenantRef: tenantRef,

			Name:         record.Name,
			OperatorName: record.OperatorName,

			IngestToken: ingestToken,

			CreationDateTime:     now,
			ModificationDateTime: now,

			DataSource: datasource,
		}

		if record.Registration != "" {
			vehicle.OtherIdentifiers = map[string]string{
				"Registration": record.Registration,
			}
		}

		bsonRep, _ := bson.Marshal(bson.M{"$set": vehicle})
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"primaryidentifier": vehicle.PrimaryIdentifier})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		operations = append(operations, updateModel)
	}

	if len(operations) > 0 {
		if _, err := vehiclesCollection.BulkWrite(context.Background(), operations, &options.BulkWriteOptions{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to bulk write Vehicles")
		}
	}

	log.Info().Int("vehicles", len(operations)).Str("file", filePath).Msg("Imported vehicles")

	return nil
}

func generateIngestToken() string {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate ingest token")
	}

	return hex.EncodeToString(tokenBytes)
}
