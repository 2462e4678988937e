package ftdf

import (
	"fmt"
	"strings"
	"time"
)

const TenantIDFormat = "FLEETPULSE:TENANT:%s"

// Tenant is an independent fleet-owning organisation. Vehicles & subscribers
// are always scoped to exactly one tenant.
type Tenant struct {
	PrimaryIdentifier string `groups:"basic"`

	Name string `groups:"basic"`

	Website string `groups:"detailed"`
	Email   string `groups:"detailed"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

func TenantIdentifier(identifier string) string {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	if strings.HasPrefix(identifier, "FLEETPULSE:TENANT:") {
		return identifier
	}

	return fmt.Sprintf(TenantIDFormat, identifier)
}
