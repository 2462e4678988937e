package tracker

import (
	"sync"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

// LocationCache holds the single latest location per vehicle. It is owned by
// one service instance & passed into anything that needs it, so tests can run
// isolated caches side by side.
//
// Online state is never stored - reads derive it from CapturedAt so a stale
// flag cannot survive a missed update cycle.
type LocationCache struct {
	mutex     sync.RWMutex
	locations map[string]*ftdf.VehicleLocation

	offlineThreshold time.Duration
}

func NewLocationCache(offlineThreshold time.Duration) *LocationCache {
	return &LocationCache{
		locations:        map[string]*ftdf.VehicleLocation{},
		offlineThreshold: offlineThreshold,
	}
}

func (cache *LocationCache) OfflineThreshold() time.Duration {
	return cache.offlineThreshold
}

// Store overwrites the cached location for the vehicle. Last writer wins -
// receivers resolve ordering by CapturedAt, not arrival order.
func (cache *LocationCache) Store(location *ftdf.VehicleLocation) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	cache.locations[location.VehicleRef] = location
}

// Latest returns a snapshot copy of the latest location for the vehicle
func (cache *LocationCache) Latest(vehicleRef string) (*ftdf.VehicleLocation, bool) {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	location, exists := cache.locations[vehicleRef]
	if !exists {
		return nil, false
	}

	return copyLocation(location), true
}

// copyLocation deep copies a record so a caller can never reach back into the
// cache through a shared pointer field
func copyLocation(location *ftdf.VehicleLocation) *ftdf.VehicleLocation {
	var copied ftdf.VehicleLocation
	if err := copier.CopyWithOption(&copied, *location, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Str("vehicle", location.VehicleRef).Msg("Failed to copy cached location")
		copied = *location
	}

	return &copied
}

// MarkOffline rewinds the vehicle's capture time to just beyond the offline
// threshold, so the derived online state flips false on the very next read
// without any special casing there. Returns false if the vehicle has no
// cached location.
func (cache *LocationCache) MarkOffline(vehicleRef string, now time.Time) bool {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	location, exists := cache.locations[vehicleRef]
	if !exists {
		return false
	}

	location.CapturedAt = now.Add(-cache.offlineThreshold - time.Second)
	location.ModificationDateTime = now

	return true
}

// AllForTenant returns snapshot copies of every cached location belonging to
// the tenant
func (cache *LocationCache) AllForTenant(tenantRef string) []*ftdf.VehicleLocation {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	var locations []*ftdf.VehicleLocation
	for _, location := range cache.locations {
		if location.TenantRef != tenantRef {
			continue
		}

		locations = append(locations, copyLocation(location))
	}

	return locations
}

// All returns snapshot copies of every cached location
func (cache *LocationCache) All() []*ftdf.VehicleLocation {
	cache.mutex.RLock()
	defer cache.mutex.RUnlock()

	locations := make([]*ftdf.VehicleLocation, 0, len(cache.locations))
	for _, location := range cache.locations {
		locations = append(locations, copyLocation(location))
	}

	return locations
}
