package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/eta"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/progress"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/speed"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Publisher pushes a freshly assembled snapshot towards realtime subscribers.
// Best effort - a failed publish never affects the ingest outcome.
type Publisher interface {
	Publish(ctx context.Context, snapshot *VehicleSnapshot) error
}

// Service ties the location cache, history queue, classifier & predictor
// together. Construct with NewService then override individual fields for
// wiring (or in tests).
type Service struct {
	Cache *LocationCache

	HistoryQueue   rmq.Queue
	Publisher      Publisher
	SpeedEstimator *speed.Estimator

	Config          Config
	ProgressOptions progress.Options
	Predictor       *eta.Predictor

	Now func() time.Time
}

func NewService(cache *LocationCache) *Service {
	return &Service{
		Cache:           cache,
		Config:          GetConfig(),
		ProgressOptions: progress.GetOptions(),
		Predictor:       eta.NewPredictor(eta.GetConfig(), eta.GetTrafficProfile()),
		Now:             time.Now,
	}
}

// Ingest validates & normalises an incoming fix for the vehicle, overwrites
// the cached location, enqueues the durable history write & publishes the
// resulting snapshot. A fix failing validation touches no store at all.
func (service *Service) Ingest(ctx context.Context, vehicle *ftdf.Vehicle, fix *ftdf.Fix) (*ftdf.VehicleLocation, error) {
	capturedAt := service.Now()

	fix.VehicleRef = vehicle.PrimaryIdentifier
	fix.TenantRef = vehicle.TenantRef
	// Device clocks are untrusted, the capture time is always ours
	fix.CapturedAt = capturedAt
	if fix.Source == "" {
		fix.Source = ftdf.FixSourceDevice
	}

	if err := fix.Validate(); err != nil {
		return nil, err
	}

	if fix.AccuracyM != nil && *fix.AccuracyM > service.Config.AccuracyWarningMeters {
		log.Warn().
			Str("vehicle", fix.VehicleRef).
			Float64("accuracy", *fix.AccuracyM).
			Msg("Accepting fix with poor GPS accuracy")
	}

	location := &ftdf.VehicleLocation{
		PrimaryIdentifier: fmt.Sprintf(ftdf.VehicleLocationIDFormat, vehicle.PrimaryIdentifier),

		VehicleRef: vehicle.PrimaryIdentifier,
		TenantRef:  vehicle.TenantRef,

		VehicleName:  vehicle.Name,
		OperatorName: vehicle.OperatorName,

		Location: fix.Location,

		SpeedKmh:  fix.SpeedKmh,
		Bearing:   fix.Bearing,
		AccuracyM: fix.AccuracyM,
		AltitudeM: fix.AltitudeM,

		Source: fix.Source,

		CapturedAt: capturedAt,

		CreationDateTime:     capturedAt,
		ModificationDateTime: capturedAt,

		DataSource: &ftdf.DataSource{
			OriginalFormat: "fix",
			Provider:       string(fix.Source),
			Dataset:        vehicle.TenantRef,
			Identifier:     capturedAt.Format(time.RFC3339),
		},
	}

	service.Cache.Store(location)

	service.enqueueHistory(fix, capturedAt)

	if service.Publisher != nil {
		snapshot := service.assembleSnapshot(ctx, vehicle, location, "", nil)

		if err := service.Publisher.Publish(ctx, snapshot); err != nil {
			log.Error().Err(err).Str("vehicle", fix.VehicleRef).Msg("Failed to publish snapshot")
		}
	}

	service.recordIngestEvent(location)

	return location, nil
}

// enqueueHistory hands the durable write to the background consumers.
// Failure is logged & otherwise invisible - history durability is best
// effort, current location correctness is not.
func (service *Service) enqueueHistory(fix *ftdf.Fix, recordedAt time.Time) {
	if service.HistoryQueue == nil {
		return
	}

	entryBytes, err := json.Marshal(ftdf.HistoryEntryFromFix(fix, recordedAt))
	if err == nil {
		err = service.HistoryQueue.PublishBytes(entryBytes)
	}
	if err != nil {
		log.Error().Err(err).Str("vehicle", fix.VehicleRef).Msg("Failed to enqueue history entry")
	}
}

// Snapshot assembles the current view of one vehicle for a viewing session.
// selectedStopRef & priorReached personalise the classification, both can be
// empty for the neutral view.
func (service *Service) Snapshot(ctx context.Context, vehicle *ftdf.Vehicle, selectedStopRef string, priorReached []string) *VehicleSnapshot {
	location, exists := service.Cache.Latest(vehicle.PrimaryIdentifier)
	if !exists {
		location = service.historyFallback(ctx, vehicle)
		if location != nil {
			service.Cache.Store(location)
		}
	}

	return service.assembleSnapshot(ctx, vehicle, location, selectedStopRef, priorReached)
}

// StopTracking is the explicit end of shift signal. The vehicle reads as
// offline on the very next lookup instead of waiting out the threshold.
// Returns false when no location was ever cached for the vehicle.
func (service *Service) StopTracking(vehicle *ftdf.Vehicle) bool {
	return service.Cache.MarkOffline(vehicle.PrimaryIdentifier, service.Now())
}

func (service *Service) assembleSnapshot(ctx context.Context, vehicle *ftdf.Vehicle, location *ftdf.VehicleLocation, selectedStopRef string, priorReached []string) *VehicleSnapshot {
	now := service.Now()

	stops := service.vehicleStops(ctx, vehicle.PrimaryIdentifier)

	journeyProgress := progress.Classify(location, stops, selectedStopRef, priorReached, service.ProgressOptions)

	if location != nil {
		service.attachEstimates(ctx, location, journeyProgress, now)
	}

	snapshot := &VehicleSnapshot{
		Vehicle:  vehicle,
		Location: location,

		HasLocation: location != nil,

		Progress: journeyProgress,

		GeneratedAt: now,
	}

	if location != nil {
		snapshot.IsOnline = location.IsOnline(now, service.Cache.OfflineThreshold())
	}

	return snapshot
}

// historyFallback recovers the most recent durable entry when the cache has
// nothing, one Mongo read per cold vehicle. The caller warms the cache with
// the result so the fallback stays a one time read.
func (service *Service) historyFallback(ctx context.Context, vehicle *ftdf.Vehicle) *ftdf.VehicleLocation {
	historyCollection := database.GetCollection("location_history")

	opts := options.FindOne().SetSort(bson.D{{Key: "recordedat", Value: -1}})

	var entry ftdf.HistoryEntry
	err := historyCollection.FindOne(ctx, bson.M{"vehicleref": vehicle.PrimaryIdentifier}, opts).Decode(&entry)
	if err != nil {
		return nil
	}

	return &ftdf.VehicleLocation{
		PrimaryIdentifier: fmt.Sprintf(ftdf.VehicleLocationIDFormat, vehicle.PrimaryIdentifier),

		VehicleRef: vehicle.PrimaryIdentifier,
		TenantRef:  vehicle.TenantRef,

		VehicleName:  vehicle.Name,
		OperatorName: vehicle.OperatorName,

		Location: entry.Location,

		SpeedKmh:  entry.SpeedKmh,
		Bearing:   entry.Bearing,
		AccuracyM: entry.AccuracyM,
		AltitudeM: entry.AltitudeM,

		Source: entry.Source,

		CapturedAt: entry.CapturedAt,

		CreationDateTime:     entry.RecordedAt,
		ModificationDateTime: entry.RecordedAt,
	}
}

func (service *Service) vehicleStops(ctx context.Context, vehicleRef string) []*ftdf.Stop {
	stopsCollection := database.GetCollection("stops")

	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cursor, err := stopsCollection.Find(ctx, bson.M{"vehicleref": vehicleRef}, opts)
	if err != nil {
		log.Error().Err(err).Str("vehicle", vehicleRef).Msg("Failed to query stops")
		return nil
	}

	var stops []*ftdf.Stop
	if err := cursor.All(ctx, &stops); err != nil {
		log.Error().Err(err).Str("vehicle", vehicleRef).Msg("Failed to decode stops")
		return nil
	}

	return stops
}

// attachEstimates fills in an ETA for every stop not yet reached
func (service *Service) attachEstimates(ctx context.Context, location *ftdf.VehicleLocation, journeyProgress *ftdf.JourneyProgress, now time.Time) {
	if len(journeyProgress.Stops) == 0 || service.Predictor == nil {
		return
	}

	var historicalSpeedKmh *float64
	if service.SpeedEstimator != nil {
		averageSpeed, hasHistory := service.SpeedEstimator.AverageSpeed(ctx, location.VehicleRef)
		if hasHistory {
			historicalSpeedKmh = &averageSpeed
		}
	}

	for _, classified := range journeyProgress.Stops {
		if classified.Status == ftdf.StopStatusReached {
			continue
		}

		classified.ETA = service.Predictor.Estimate(
			classified.Stop.PrimaryIdentifier,
			classified.DistanceMeters,
			location.SpeedKmh,
			historicalSpeedKmh,
			now,
		)
	}
}
