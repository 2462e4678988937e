package ftdf

import (
	"fmt"
	"strings"
	"time"
)

const VehicleIDFormat = "FLEETPULSE:VEHICLE:%s"

// Vehicle is a registry record for a tracked vehicle. PrimaryIdentifier is the
// uppercase canonical form so lookups can be case-insensitive.
type Vehicle struct {
	PrimaryIdentifier string            `groups:"basic"`
	OtherIdentifiers  map[string]string `groups:"basic"`

	TenantRef string `groups:"basic"`

	Name         string `groups:"basic"`
	OperatorName string `groups:"basic"`

	IngestToken string `groups:"internal" json:"-"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

// VehicleIdentifier canonicalises a raw identifier into the uppercase primary form
func VehicleIdentifier(identifier string) string {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	if strings.HasPrefix(identifier, "FLEETPULSE:VEHICLE:") {
		return identifier
	}

	return fmt.Sprintf(VehicleIDFormat, identifier)
}
