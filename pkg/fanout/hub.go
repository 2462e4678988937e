package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/fleetpulse/fleetpulse/pkg/consumer"
	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/progress"
	"github.com/fleetpulse/fleetpulse/pkg/util"
	"github.com/gorilla/websocket"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

// Hub bridges Redis pub/sub onto local websocket subscribers. Slow
// subscribers lose events instead of stalling anyone else - every snapshot
// fully supersedes the previous one so nothing needs replaying.
type Hub struct {
	mutex       sync.Mutex
	connections []*Connection

	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// StartBridge runs the goroutine feeding published snapshots into the hub
func (hub *Hub) StartBridge(ctx context.Context) {
	pubsub := redis_client.Client.PSubscribe(ctx, "fleetpulse.vehicle.*", "fleetpulse.tenant.*")

	go func() {
		for message := range pubsub.Channel() {
			hub.dispatch(message.Channel, []byte(message.Payload))
		}
	}()
}

// Listen serves websocket subscriptions & the process health endpoint.
// Blocks forever.
func (hub *Hub) Listen(address string) {
	http.HandleFunc("/realtime/ws", hub.HandleSubscribe)
	http.Handle("/health", consumer.NewHealthHandler())

	log.Info().Msgf("Realtime hub listening on %s", address)
	if err := http.ListenAndServe(address, nil); err != nil {
		log.Fatal().Err(err).Msg("Realtime hub listener failed")
	}
}

// HandleSubscribe upgrades a subscriber onto a vehicle or tenant channel.
// `vehicle=` or `tenant=` picks the channel, `filter=` adds an expression
// filter & `selected_stop=` marks the rider's destination.
func (hub *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	channel, status := resolveChannel(r)
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	var filterProgram *vm.Program
	if expression := r.URL.Query().Get("filter"); expression != "" {
		var err error
		filterProgram, err = CompileFilter(expression)
		if err != nil {
			http.Error(w, "invalid filter expression", http.StatusBadRequest)
			return
		}
	}

	socket, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}

	connection := newConnection(hub, socket, channel, filterProgram, r.URL.Query().Get("selected_stop"))
	hub.register(connection)

	go connection.writePump()
	go connection.readPump()
}

// resolveChannel validates the subscription target against the registry &
// returns the pub/sub channel it maps onto
func resolveChannel(r *http.Request) (string, int) {
	query := r.URL.Query()

	if identifier := query.Get("vehicle"); identifier != "" {
		vehicleRef := ftdf.VehicleIdentifier(identifier)

		vehiclesCollection := database.GetCollection("vehicles")

		var vehicle *ftdf.Vehicle
		if err := vehiclesCollection.FindOne(r.Context(), bson.M{"primaryidentifier": vehicleRef}).Decode(&vehicle); err != nil {
			return "", http.StatusNotFound
		}

		// A tenant scope that doesn't own the vehicle reveals nothing
		if tenant := query.Get("tenant"); tenant != "" && ftdf.TenantIdentifier(tenant) != vehicle.TenantRef {
			return "", http.StatusNotFound
		}

		return VehicleChannel(vehicle.TenantRef, vehicleRef), http.StatusOK
	}

	if identifier := query.Get("tenant"); identifier != "" {
		tenantRef := ftdf.TenantIdentifier(identifier)

		tenantsCollection := database.GetCollection("tenants")

		var tenant *ftdf.Tenant
		if err := tenantsCollection.FindOne(r.Context(), bson.M{"primaryidentifier": tenantRef}).Decode(&tenant); err != nil {
			return "", http.StatusNotFound
		}

		return TenantChannel(tenantRef), http.StatusOK
	}

	return "", http.StatusBadRequest
}

func (hub *Hub) register(connection *Connection) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	hub.connections = append(hub.connections, connection)
}

func (hub *Hub) unregister(connection *Connection) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	util.InPlaceFilter(&hub.connections, func(existing *Connection) bool {
		return existing != connection
	})
}

func (hub *Hub) dispatch(channel string, payload []byte) {
	var snapshot *tracker.VehicleSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		log.Error().Err(err).Msg("Failed to decode published snapshot")
		return
	}
	if snapshot == nil || snapshot.Vehicle == nil {
		return
	}

	hub.mutex.Lock()
	var matched []*Connection
	for _, connection := range hub.connections {
		if connection.channel == channel {
			matched = append(matched, connection)
		}
	}
	hub.mutex.Unlock()

	for _, connection := range matched {
		hub.deliver(connection, snapshot)
	}
}

// deliver personalises the snapshot for one subscription & queues it. Late,
// duplicate & filtered out snapshots are skipped, and a subscriber whose
// buffer is full loses the event instead of blocking the dispatcher.
func (hub *Hub) deliver(connection *Connection, snapshot *tracker.VehicleSnapshot) {
	vehicleRef := snapshot.Vehicle.PrimaryIdentifier

	// Last writer wins by capture time, not arrival time
	if snapshot.Location != nil {
		if last, exists := connection.lastCaptured[vehicleRef]; exists && !snapshot.Location.CapturedAt.After(last) {
			return
		}
	}

	if !runFilter(connection.filter, snapshot) {
		return
	}

	personalised := *snapshot
	personalised.Progress = progress.Reapply(snapshot.Progress, connection.selectedStopRef, connection.reachedStops[vehicleRef])

	payload, err := marshalSnapshot(&personalised)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot for subscriber")
		return
	}

	select {
	case connection.send <- payload:
		if snapshot.Location != nil {
			connection.lastCaptured[vehicleRef] = snapshot.Location.CapturedAt
		}
		if personalised.Progress != nil {
			connection.reachedStops[vehicleRef] = personalised.Progress.ReachedStops
		}
	default:
	}
}

func marshalSnapshot(snapshot *tracker.VehicleSnapshot) ([]byte, error) {
	marshalled, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, snapshot)
	if err != nil {
		return nil, err
	}

	return json.Marshal(marshalled)
}
