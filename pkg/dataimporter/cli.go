package dataimporter

import (
	"fmt"

	"github.com/fleetpulse/fleetpulse/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "data-importer",
		Usage: "Import registry records from csv files",
		Subcommands: []*cli.Command{
			{
				Name:  "file",
				Usage: "Import a single csv file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "format",
						Usage:    "Format of the records - tenants, vehicles or stops",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path of the csv file",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					filePath := c.String("file")

					switch format := c.String("format"); format {
					case "tenants":
						return ImportTenants(filePath)
					case "vehicles":
						return ImportVehicles(filePath)
					case "stops":
						return ImportStops(filePath)
					default:
						return fmt.Errorf("unknown format %s", format)
					}
				},
			},
		},
	}
}
