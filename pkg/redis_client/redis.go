package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/fleetpulse/fleetpulse/pkg/util"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["FLEETPULSE_REDIS_ADDRESS"] != "" {
		address = env["FLEETPULSE_REDIS_ADDRESS"]
	}

	if env["FLEETPULSE_REDIS_PASSWORD"] != "" {
		password = env["FLEETPULSE_REDIS_PASSWORD"]
	}

	if env["FLEETPULSE_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["FLEETPULSE_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient("fleetpulse", Client, nil)

	if err != nil {
		return err
	}

	return nil
}
