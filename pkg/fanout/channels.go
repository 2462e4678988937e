// Package fanout pushes post-ingestion snapshots to realtime subscribers.
// Delivery is at most once with no replay - receivers resolve duplicates &
// reordering by comparing CapturedAt.
package fanout

import "fmt"

const vehicleChannelFormat = "fleetpulse.vehicle.%s.%s"
const tenantChannelFormat = "fleetpulse.tenant.%s"

// VehicleChannel is the pub/sub channel carrying one vehicle's snapshots
func VehicleChannel(tenantRef string, vehicleRef string) string {
	return fmt.Sprintf(vehicleChannelFormat, tenantRef, vehicleRef)
}

// TenantChannel is the pub/sub channel carrying every snapshot of a tenant's
// fleet
func TenantChannel(tenantRef string) string {
	return fmt.Sprintf(tenantChannelFormat, tenantRef)
}
