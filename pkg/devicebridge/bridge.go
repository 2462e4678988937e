// Package devicebridge feeds fixes published by telematics gateways over a
// STOMP broker into the ingest service. The broker authenticates the gateway,
// so unlike the HTTP ingest path no per-vehicle token check happens here.
package devicebridge

import (
	"context"
	"encoding/json"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/go-stomp/stomp/v3"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

type Bridge struct {
	Address   string
	Username  string
	Password  string
	QueueName string

	Service *tracker.Service
}

// rawFix is one gateway reading. Identifiers arrive in whatever form the
// gateway holds them & are canonicalised on ingest.
type rawFix struct {
	Vehicle string `json:"vehicle"`

	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`

	SpeedKmh  float64  `json:"speed_kmh"`
	Bearing   *float64 `json:"bearing"`
	AccuracyM *float64 `json:"accuracy_m"`
	AltitudeM *float64 `json:"altitude_m"`
}

func (b *Bridge) Run() {
	var stompOptions []func(*stomp.Conn) error
	if b.Username != "" {
		stompOptions = append(stompOptions, stomp.ConnOpt.Login(b.Username, b.Password))
	}

	conn, err := stomp.Dial("tcp", b.Address, stompOptions...)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to stomp broker")
	}

	sub, err := conn.Subscribe(b.QueueName, stomp.AckAuto)
	if err != nil {
		log.Fatal().Str("queue", b.QueueName).Err(err).Msg("cannot subscribe to queue")
	}

	log.Info().Str("address", b.Address).Str("queue", b.QueueName).Msg("Device bridge started")

	for msg := range sub.C {
		if msg.Err != nil {
			log.Error().Err(msg.Err).Msg("stomp subscription failed")
			continue
		}

		b.ParseMessage(msg.Body)
	}
}

// ParseMessage handles one broker message, a JSON array of raw fixes.
// A fix that cannot be parsed, matched to a vehicle or validated is logged
// & skipped - one bad reading never holds up the rest of the batch.
func (b *Bridge) ParseMessage(messageBytes []byte) {
	var fixes []*rawFix
	if err := json.Unmarshal(messageBytes, &fixes); err != nil {
		log.Error().Err(err).Msg("Failed to decode fix batch")
		return
	}

	vehiclesCollection := database.GetCollection("vehicles")

	for _, raw := range fixes {
		if raw == nil {
			continue
		}

		identifier := ftdf.VehicleIdentifier(raw.Vehicle)

		var vehicle *ftdf.Vehicle
		vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

		if vehicle == nil {
			log.Debug().Str("vehicle", identifier).Msg("Fix for unknown vehicle")
			continue
		}

		fix := &ftdf.Fix{
			Location: ftdf.NewLocation(raw.Latitude, raw.Longitude),

			SpeedKmh:  raw.SpeedKmh,
			Bearing:   raw.Bearing,
			AccuracyM: raw.AccuracyM,
			AltitudeM: raw.AltitudeM,

			Source: ftdf.FixSourceDevice,
		}

		if _, err := b.Service.Ingest(context.Background(), vehicle, fix); err != nil {
			log.Error().Err(err).Str("vehicle", identifier).Msg("Rejected fix from device bridge")
		}
	}
}
