package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/fleetpulse/fleetpulse/pkg/consumer"
	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const historyQueueName = "history-queue"

const historyNumConsumers = 2
const historyBatchSize = 200

// OpenHistoryQueue returns the queue ingestion publishes history entries to
func OpenHistoryQueue() (rmq.Queue, error) {
	return redis_client.QueueConnection.OpenQueue(historyQueueName)
}

// StartHistoryConsumers runs the background consumers draining the history
// queue into the durable location log
func StartHistoryConsumers() {
	redisConsumer := consumer.RedisConsumer{
		QueueName: historyQueueName,

		NumberConsumers: historyNumConsumers,
		BatchSize:       historyBatchSize,

		Timeout: 2 * time.Second,

		Consumer: &historyBatchConsumer{},
	}
	redisConsumer.Setup()
}

type historyBatchConsumer struct{}

func (h *historyBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	var insertOperations []mongo.WriteModel

	for _, payload := range payloads {
		var entry *ftdf.HistoryEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			log.Error().Err(err).Msg("Failed to decode history entry")
			continue
		}

		insertOperations = append(insertOperations, mongo.NewInsertOneModel().SetDocument(entry))
	}

	if len(insertOperations) > 0 {
		historyCollection := database.GetCollection("location_history")

		startTime := time.Now()
		_, err := historyCollection.BulkWrite(context.Background(), insertOperations, &options.BulkWriteOptions{})
		log.Info().Int("Length", len(insertOperations)).Str("Time", time.Now().Sub(startTime).String()).Msg("Bulk write")

		if err != nil {
			log.Fatal().Err(err).Msg("Failed to bulk write location history")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Fatal().Err(err).Msg("Failed to consume history entry")
		}
	}
}
