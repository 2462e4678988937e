package api

import (
	"context"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/devicebridge"
	"github.com/fleetpulse/fleetpulse/pkg/elastic_client"
	"github.com/fleetpulse/fleetpulse/pkg/fanout"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/fleetpulse/fleetpulse/pkg/tracker"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/speed"
	"github.com/fleetpulse/fleetpulse/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Provides the web API & realtime fan-out",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the api & websocket servers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:  "realtime-listen",
						Value: ":8081",
						Usage: "listen target for the websocket server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					cache := tracker.NewLocationCache(tracker.GetConfig().OfflineThreshold)

					service := tracker.NewService(cache)
					service.Publisher = fanout.NewPublisher()
					service.SpeedEstimator = speed.NewEstimator(speed.GetConfig())

					historyQueue, err := tracker.OpenHistoryQueue()
					if err != nil {
						return err
					}
					service.HistoryQueue = historyQueue

					hub := fanout.NewHub()
					hub.StartBridge(context.Background())
					go hub.Listen(c.String("realtime-listen"))

					env := util.GetEnvironmentVariables()
					if stompAddress := env["FLEETPULSE_STOMP_ADDRESS"]; stompAddress != "" {
						bridge := devicebridge.Bridge{
							Address:   stompAddress,
							Username:  env["FLEETPULSE_STOMP_USERNAME"],
							Password:  env["FLEETPULSE_STOMP_PASSWORD"],
							QueueName: util.GetEnvironmentVariable("FLEETPULSE_STOMP_QUEUE", "/queue/fleetpulse.fixes"),

							Service: service,
						}
						go bridge.Run()
					}

					return SetupServer(c.String("listen"), service)
				},
			},
		},
	}
}
