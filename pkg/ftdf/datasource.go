package ftdf

type DataSource struct {
	OriginalFormat string `groups:"internal"` // eg. api, stomp, csv
	Provider       string `groups:"internal"`
	Dataset        string `groups:"internal"`
	Identifier     string `groups:"internal"`
}
