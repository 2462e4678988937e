package dataimporter

import (
	"context"
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

type tenantRecord struct {
	Identifier string `csv:"identifier"`
	Name       string `csv:"name"`
	Website    string `csv:"website"`
	Email      string `csv:"email"`
}

func ImportTenants(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	var records []*tenantRecord
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

	var operations []mongo.WriteModel

	for index, record := range records {
		if record.Identifier == "" || record.Name == "" {
			return fmt.Errorf("tenant record %d is missing an identifier or name", index+1)
		}

		tenant := &ftdf.Tenant{
			PrimaryIdentifier: ftdf.TenantIdentifier(record.Identifier),

			Name: record.Name,

			Website: record.Website,
			Email:   record.Email,

			CreationDateTime:     now,
			ModificationDateTime: now,

			DataSource: datasource,
		}

		bsonRep, _ := bson.Marshal(bson.M{"$set": tenant})
		updateModel := mongo.NewUpdateOneModel()
		updateModel.SetFilter(bson.M{"primaryidentifier": tenant.PrimaryIdentifier})
		updateModel.SetUpdate(bsonRep)
		updateModel.SetUpsert(true)

		operations = append(operations, updateModel)
	}

	if len(operations) > 0 {
		tenantsCollection := database.GetCollection("tenants")
		if _, err := tenantsCollection.BulkWrite(context.Background(), operations, &options.BulkWriteOptions{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to bulk write Tenants")
		}
	}

	log.Info().Int("tenants", len(operations)).Str("file", filePath).Msg("Imported tenants")

	return nil
}
