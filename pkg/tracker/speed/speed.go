// Package speed estimates how fast a vehicle typically travels from its
// recent location history, so ETAs stay sane when the live speed reads zero
// at a red light.
package speed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"github.com/senseyeio/duration"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/slices"
)

// CachedAverage holds one vehicle's computed average in Redis
type CachedAverage struct {
	SpeedKmh   float64 `json:"speed_kmh"`
	HasHistory bool    `json:"has_history"`
}

func (c *CachedAverage) MarshalBinary() ([]byte, error) {
	return json.Marshal(c)
}

func (c *CachedAverage) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, c)
}

type Estimator struct {
	config Config

	averageCache *cache.Cache[*CachedAverage]
}

func NewEstimator(config Config) *Estimator {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(config.CacheExpiration))

	return &Estimator{
		config:       config,
		averageCache: cache.New[*CachedAverage](redisStore),
	}
}

// AverageSpeed returns the vehicle's trailing average moving speed. The
// second return is false when too little history exists to say anything -
// the value is then the base speed constant unchanged. Results are cached,
// staleness resolves lazily on the access after expiry.
func (estimator *Estimator) AverageSpeed(ctx context.Context, vehicleRef string) (float64, bool) {
	cacheKey := fmt.Sprintf("average_speed:%s", vehicleRef)

	cached, err := estimator.averageCache.Get(ctx, cacheKey)
	if err == nil && cached != nil {
		return cached.SpeedKmh, cached.HasHistory
	}

	speedKmh, hasHistory := estimator.computeAverage(ctx, vehicleRef)

	err = estimator.averageCache.Set(ctx, cacheKey, &CachedAverage{
		SpeedKmh:   speedKmh,
		HasHistory: hasHistory,
	})
	if err != nil {
		log.Debug().Err(err).Str("vehicle", vehicleRef).Msg("Failed to cache average speed")
	}

	return speedKmh, hasHistory
}

func (estimator *Estimator) computeAverage(ctx context.Context, vehicleRef string) (float64, bool) {
	config := estimator.config

	windowStart := sampleWindowStart(config.SampleWindow, time.Now())

	historyCollection := database.GetCollection("location_history")

	opts := options.Find().
		SetSort(bson.D{{Key: "recordedat", Value: -1}}).
		SetLimit(config.MaximumSamples).
		SetProjection(bson.M{"speedkmh": 1})

	cursor, err := historyCollection.Find(ctx, bson.M{
		"vehicleref": vehicleRef,
		"recordedat": bson.M{"$gte": windowStart},
		"speedkmh":   bson.M{"$gt": config.MovingSpeedCutoffKmh},
	}, opts)
	if err != nil {
		log.Error().Err(err).Str("vehicle", vehicleRef).Msg("Failed to query location history")
		return config.BaseSpeedKmh, false
	}
	defer cursor.Close(ctx)

	var samples []float64
	for cursor.Next(ctx) {
		var row struct {
			SpeedKmh float64 `bson:"speedkmh"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}

		samples = append(samples, row.SpeedKmh)
	}

	return TrimmedMean(samples, config.MinimumSamples, config.TrimFraction, config.BaseSpeedKmh)
}

func sampleWindowStart(window string, now time.Time) time.Time {
	period, err := duration.ParseISO8601(window)
	if err != nil {
		log.Error().Err(err).Str("window", window).Msg("Invalid speed sample window, using default")
		period, _ = duration.ParseISO8601(defaultConfig.SampleWindow)
	}

	return now.Add(-period.Shift(now).Sub(now))
}

// TrimmedMean sorts the samples, discards trimFraction of them from each end
// & averages the rest. Fewer than minimumSamples returns fallback unchanged
// with false.
func TrimmedMean(samples []float64, minimumSamples int, trimFraction float64, fallback float64) (float64, bool) {
	if len(samples) < minimumSamples {
		return fallback, false
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	slices.Sort(sorted)

	trim := int(float64(len(sorted)) * trimFraction)
	trimmed := sorted[trim : len(sorted)-trim]
	if len(trimmed) == 0 {
		return fallback, false
	}

	sum := 0.0
	for _, sample := range trimmed {
		sum += sample
	}

	return sum / float64(len(trimmed)), true
}
