package ftdf

import "fmt"

const StopIDFormat = "FLEETPULSE:STOP:%s:%d"

// Stop is a single point on a vehicle's route. Order is a dense 1..N sequence
// unique within the vehicle.
type Stop struct {
	PrimaryIdentifier string `groups:"basic"`

	VehicleRef string `groups:"internal"`
	TenantRef  string `groups:"internal"`

	Name string `groups:"basic"`

	Location *Location `groups:"basic"`

	Order int `groups:"basic"`

	CreationDateTime     string `groups:"detailed"`
	ModificationDateTime string `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`
}

func StopIdentifier(vehicleRef string, order int) string {
	return fmt.Sprintf(StopIDFormat, vehicleRef, order)
}
