package tracker

import (
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// StartCleaner periodically returns unacked & rejected deliveries back onto
// the history queue. Blocks forever.
func StartCleaner() {
	cleaner := rmq.NewCleaner(redis_client.QueueConnection)

	log.Info().Msg("Starting history-queue cleaner process")

	for range time.Tick(5 * time.Minute) {
		returned, err := cleaner.Clean()
		if err != nil {
			log.Error().Err(err).Msg("Failed to clean")
			continue
		}

		if returned != 0 {
			log.Info().Msgf("Cleaned %d records", returned)
		}
	}
}
