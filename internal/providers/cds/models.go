package cds

// ERA5Request is the retrieval request body of the Climate Data Store
// API, limited to the fields the wind downloads use.
type ERA5Request struct {
	ProductType   string   `json:"product_type"`
	Format        string   `json:"format"`
	Variable      []string `json:"variable"`
	PressureLevel []string `json:"pressure_level"`
	Year          string   `json:"year"`
	Month         string   `json:"month"`
	Day           string   `json:"day"`
	Time          []string `json:"time"`
	// Area is north, west, south, east in degrees. Empty means global.
	Area []float64 `json:"area,omitempty"`
}

// taskState is the CDS task envelope returned on submission and polling.
type taskState struct {
	State     string `json:"state"`
	RequestID string `json:"request_id"`
	Location  string `json:"location"`
	Error     struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

const (
	stateQueued    = "queued"
	stateRunning   = "running"
	stateCompleted = "completed"
	stateFailed    = "failed"
)
