package tracker

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/fleetpulse/fleetpulse/pkg/ftdf"
	"github.com/fleetpulse/fleetpulse/pkg/redis_client"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/eta"
	"github.com/fleetpulse/fleetpulse/pkg/tracker/progress"
	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Location tracking engine debug tools",
		Subcommands: []*cli.Command{
			{
				Name:  "test-classify",
				Usage: "classify a synthetic fix against a synthetic route",
				Action: func(c *cli.Context) error {
					hydeParkCorner := ftdf.NewLocation(51.5027, -0.1527)
					greenPark := ftdf.NewLocation(51.5067, -0.1428)
					piccadillyCircus := ftdf.NewLocation(51.5101, -0.1340)
					trafalgarSquare := ftdf.NewLocation(51.5080, -0.1281)

					stops := []*ftdf.Stop{
						{
							PrimaryIdentifier: ftdf.StopIdentifier("FLEETPULSE:VEHICLE:DEMO1", 1),
							Name:              "Hyde Park Corner",
							Location:          &hydeParkCorner,
							Order:             1,
						},
						{
							PrimaryIdentifier: ftdf.StopIdentifier("FLEETPULSE:VEHICLE:DEMO1", 2),
							Name:              "Green Park Station",
							Location:          &greenPark,
							Order:             2,
						},
						{
							PrimaryIdentifier: ftdf.StopIdentifier("FLEETPULSE:VEHICLE:DEMO1", 3),
							Name:              "Piccadilly Circus",
							Location:          &piccadillyCircus,
							Order:             3,
						},
						{
							PrimaryIdentifier: ftdf.StopIdentifier("FLEETPULSE:VEHICLE:DEMO1", 4),
							Name:              "Trafalgar Square",
							Location:          &trafalgarSquare,
							Order:             4,
						},
					}

					location := &ftdf.VehicleLocation{
						VehicleRef: "FLEETPULSE:VEHICLE:DEMO1",
						TenantRef:  "FLEETPULSE:TENANT:DEMO",
						Location:   ftdf.NewLocation(51.5084, -0.1392),
						SpeedKmh:   18,
						CapturedAt: time.Now(),
					}

					journeyProgress := progress.Classify(location, stops, "", nil, progress.GetOptions())
					pretty.Println(journeyProgress)

					predictor := eta.NewPredictor(eta.GetConfig(), eta.GetTrafficProfile())
					for _, classified := range journeyProgress.Stops {
						if classified.Status == ftdf.StopStatusReached {
							continue
						}

						estimate := predictor.Estimate(classified.Stop.PrimaryIdentifier, classified.DistanceMeters, location.SpeedKmh, nil, time.Now())
						pretty.Println(estimate)
					}

					return nil
				},
			},
		},
	}
}

func RegisterHistoryWriterCLI() *cli.Command {
	return &cli.Command{
		Name:  "history-writer",
		Usage: "Drains the history queue into the durable location log",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the history batch consumers",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					StartHistoryConsumers()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "cleaner",
				Usage: "run the queue cleaner for the history queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					go StartCleaner()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}
