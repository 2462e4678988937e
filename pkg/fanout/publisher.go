package fanout

import (
	"context"
	"encoding/json"

	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
)

// RedisPublisher fans a snapshot out over Redis pub/sub to the vehicle's own
// channel & its tenant's aggregate channel.
type RedisPublisher struct{}

func NewPublisher() *RedisPublisher {
	return &RedisPublisher{}
}

func (publisher *RedisPublisher) Publish(ctx context.Context, snapshot *tracker.VehicleSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	vehicleRef := snapshot.Vehicle.PrimaryIdentifier
	tenantRef := snapshot.Vehicle.TenantRef

	if err := redis_client.Client.Publish(ctx, VehicleChannel(tenantRef, vehicleRef), payload).Err(); err != nil {
		return err
	}

	return redis_client.Client.Publish(ctx, TenantChannel(tenantRef), payload).Err()
}
